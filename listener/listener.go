// Package listener translates host events into launcher operations.
//
// Handlers run synchronously on the host's event thread and must return a
// Verdict before the host continues, so captures are started but never
// awaited here.
package listener

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/mob-launch/auth"
	"github.com/lixenwraith/mob-launch/config"
	"github.com/lixenwraith/mob-launch/launcher"
	"github.com/lixenwraith/mob-launch/status"
	"github.com/lixenwraith/mob-launch/tag"
)

const (
	MsgNametagBound  = "nametag-bound"
	MsgNametagDenied = "nametag-denied"
)

type nopNotifier struct{}

func (nopNotifier) Notify(uuid.UUID, string, ...any) {}

// HandlerFunc processes one event and may amend the verdict
type HandlerFunc func(ctx context.Context, ev *Event, v *Verdict)

// Listener routes host events to handlers in registration order
type Listener struct {
	mgr    *launcher.Manager
	tags   *tag.Tags
	cfg    *config.Store
	notify launcher.Notifier
	log    zerolog.Logger

	handlers map[EventType][]HandlerFunc
	events   *atomic.Int64
	forced   *atomic.Int64
}

func New(mgr *launcher.Manager, tags *tag.Tags, cfg *config.Store, notify launcher.Notifier, logger zerolog.Logger, stats *status.Registry) *Listener {
	l := &Listener{
		mgr:      mgr,
		tags:     tags,
		cfg:      cfg,
		notify:   notify,
		log:      logger.With().Str("component", "listener").Logger(),
		handlers: make(map[EventType][]HandlerFunc),
		events:   stats.Counter("listener.events"),
		forced:   stats.Counter("listener.forced_drops"),
	}

	if l.notify == nil {
		l.notify = nopNotifier{}
	}

	l.Register(EventInteract, l.onInteract)
	l.Register(EventDamage, l.onDamage)
	l.Register(EventToggleSneak, l.onToggleSneak)
	l.Register(EventQuit, l.onLeave)
	l.Register(EventDeath, l.onLeave)
	l.Register(EventTeleport, l.onTeleport)
	l.Register(EventFallDamage, l.onFallDamage)
	return l
}

// Register appends a handler for t
func (l *Listener) Register(t EventType, fn HandlerFunc) {
	l.handlers[t] = append(l.handlers[t], fn)
}

// Handle runs every handler for the event; a panicking handler cancels nothing and is logged
func (l *Listener) Handle(ctx context.Context, ev *Event) Verdict {
	var v Verdict
	if ev == nil {
		return v
	}
	l.events.Add(1)
	for _, fn := range l.handlers[ev.Type] {
		l.call(ctx, fn, ev, &v)
	}
	return v
}

func (l *Listener) call(ctx context.Context, fn HandlerFunc, ev *Event, v *Verdict) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Str("event", ev.Type.String()).Str("panic", fmt.Sprint(r)).Msg("event handler panicked")
		}
	}()
	fn(ctx, ev, v)
}

// holdsObject reports whether the event's actor carries the event's object through the launcher
func (l *Listener) holdsObject(ev *Event) bool {
	if ev.Actor == nil || ev.Object == nil {
		return false
	}
	return l.mgr.Holding(ev.Actor) && ev.Actor.HasPassenger(ev.Object)
}

func (l *Listener) onInteract(ctx context.Context, ev *Event, v *Verdict) {
	if ev.Actor == nil || ev.Object == nil {
		return
	}
	if l.holdsObject(ev) {
		v.Cancel = true
		return
	}

	if ev.MainHand.Kind == ItemNameTag && ev.MainHand.DisplayName != "" {
		l.bindOwner(ev, v)
		return
	}

	if !ev.Sneaking || !ev.HandsEmpty() {
		return
	}
	if l.mgr.Holding(ev.Actor) {
		l.notify.Notify(ev.Actor.ID(), launcher.MsgAlreadyHolding)
		v.Cancel = true
		return
	}

	res := l.mgr.Capture(ctx, ev.Actor, ev.Object)
	v.Cancel = true
	select {
	case err := <-res:
		if err != nil {
			l.log.Debug().Err(err).Str("actor", ev.Actor.ID().String()).Msg("capture refused")
		}
	default:
		// Repositioning continues on the object's region
	}
}

func (l *Listener) bindOwner(ev *Event, v *Verdict) {
	if !auth.OwnerAllows(l.tags, ev.Actor, ev.Object) {
		l.notify.Notify(ev.Actor.ID(), MsgNametagDenied)
		v.Cancel = true
		return
	}
	l.tags.SetOwner(ev.Object.ID(), ev.Actor.ID())
	l.notify.Notify(ev.Actor.ID(), MsgNametagBound, ev.MainHand.DisplayName)
	v.ConsumeItem = !ev.Creative || l.cfg.Get().Protection.ConsumeNametagCreative
	l.log.Debug().Str("actor", ev.Actor.ID().String()).Str("object", ev.Object.ID().String()).Msg("bound ownership")
}

func (l *Listener) onDamage(_ context.Context, ev *Event, v *Verdict) {
	if l.holdsObject(ev) {
		v.Cancel = true
	}
}

func (l *Listener) onToggleSneak(ctx context.Context, ev *Event, _ *Verdict) {
	if ev.Actor == nil || !l.mgr.IsHolding(ev.Actor.ID()) {
		return
	}
	id := ev.Actor.ID()

	if ev.Sneaking {
		if !ev.HandsEmpty() {
			return
		}
		if err := l.mgr.StartCharging(id); err != nil {
			l.log.Warn().Err(err).Str("actor", id.String()).Msg("charge not started")
		}
		return
	}

	out, err := l.mgr.StopChargingAndResolve(ctx, id)
	if err != nil {
		l.log.Warn().Err(err).Str("actor", id.String()).Msg("release failed")
		return
	}
	l.log.Debug().Str("actor", id.String()).Str("outcome", out.Kind.String()).Int("percent", out.Percent).Msg("released")
}

// onLeave drops unconditionally; the actor may already be invalid
func (l *Listener) onLeave(_ context.Context, ev *Event, _ *Verdict) {
	if ev.Actor == nil {
		return
	}
	l.forceDrop(ev)
}

func (l *Listener) onTeleport(_ context.Context, ev *Event, _ *Verdict) {
	if ev.Actor == nil || ev.FromWorld == ev.ToWorld {
		return
	}
	l.forceDrop(ev)
}

func (l *Listener) forceDrop(ev *Event) {
	out := l.mgr.ReleaseAsDrop(ev.Actor.ID())
	if out.Kind == launcher.OutcomeNone {
		return
	}
	l.forced.Add(1)
	l.log.Debug().Str("actor", ev.Actor.ID().String()).Str("event", ev.Type.String()).Str("outcome", out.Kind.String()).Msg("forced drop")
}

func (l *Listener) onFallDamage(_ context.Context, ev *Event, v *Verdict) {
	if ev.Object == nil {
		return
	}
	if l.tags.ConsumeNoFall(ev.Object.ID()) {
		v.Cancel = true
	}
}

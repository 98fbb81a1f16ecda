// Package launcher orchestrates capture, charge and release.
//
// Manager is the only entry point the host event layer talks to. It checks
// preconditions in a fixed order, raises the veto hooks before any ownership
// mutation, and funnels every bookkeeping change through the ownership
// registry. Velocity is applied one tick after a launch on the object's own
// scheduling context.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/mob-launch/auth"
	"github.com/lixenwraith/mob-launch/charge"
	"github.com/lixenwraith/mob-launch/clock"
	"github.com/lixenwraith/mob-launch/config"
	"github.com/lixenwraith/mob-launch/hook"
	"github.com/lixenwraith/mob-launch/host"
	"github.com/lixenwraith/mob-launch/ownership"
	"github.com/lixenwraith/mob-launch/status"
	"github.com/lixenwraith/mob-launch/tag"
	"github.com/lixenwraith/mob-launch/vmath"
)

var (
	ErrAlreadyCapturing = ownership.ErrAlreadyCapturing
	ErrAlreadyCaptured  = ownership.ErrAlreadyCaptured
	ErrNotPermitted     = errors.New("capture not permitted")
	ErrVetoed           = errors.New("vetoed by hook")
	ErrInvalidTarget    = errors.New("actor or object no longer live")
	ErrNotHolding       = errors.New("actor holds nothing")
)

// Message keys sent through the Notifier
const (
	MsgNoPermission   = "no-permission-use"
	MsgKindNotAllowed = "mob-not-allowed"
	MsgOwnedByOther   = "mob-owned-by-other"
	MsgAlreadyHolding = "already-holding-mob"
	MsgAlreadyMounted = "mob-already-mounted"
	MsgCaptureVetoed  = "capture-vetoed"
	MsgCaptureFailed  = "capture-failed"
	MsgChargeFailed   = "charge-unavailable"
	MsgPickup         = "pickup-success"
	MsgPutdown        = "putdown-success"
	MsgLaunch         = "launch-message"
)

const (
	cuePickup = "pickup"
	cueLaunch = "launch"
)

// Notifier delivers a message key to an actor
type Notifier interface {
	Notify(actor uuid.UUID, key string, args ...any)
}

// Cuer plays named one-shot cues
type Cuer interface {
	Cue(actor uuid.UUID, name string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(uuid.UUID, string, ...any) {}

// Deps are the Manager's collaborators; Directory, Registry, Tags, Scheduler and Config are required
type Deps struct {
	Directory  host.Directory
	Positioner host.Positioner
	Registry   *ownership.Registry
	Tags       *tag.Tags
	Scheduler  *clock.Scheduler
	Hooks      *hook.Bus
	Authorizer auth.Authorizer
	Sink       charge.Sink
	Cues       Cuer
	Config     *config.Store
	Notifier   Notifier
	Logger     zerolog.Logger
	Status     *status.Registry
}

type counters struct {
	captures *atomic.Int64
	drops    *atomic.Int64
	launches *atomic.Int64
	vetoes   *atomic.Int64
}

type Manager struct {
	dir    host.Directory
	place  host.Positioner
	reg    *ownership.Registry
	tags   *tag.Tags
	sched  *clock.Scheduler
	hooks  *hook.Bus
	authz  auth.Authorizer
	sink   charge.Sink
	cues   Cuer
	cfg    *config.Store
	notify Notifier
	log    zerolog.Logger
	stats  counters
}

func New(d Deps) *Manager {
	logger := d.Logger.With().Str("component", "launcher").Logger()

	m := &Manager{
		dir:    d.Directory,
		place:  d.Positioner,
		reg:    d.Registry,
		tags:   d.Tags,
		sched:  d.Scheduler,
		hooks:  d.Hooks,
		authz:  d.Authorizer,
		cues:   d.Cues,
		cfg:    d.Config,
		notify: d.Notifier,
		log:    logger,
		stats: counters{
			captures: d.Status.Counter("launcher.captures"),
			drops:    d.Status.Counter("launcher.drops"),
			launches: d.Status.Counter("launcher.launches"),
			vetoes:   d.Status.Counter("launcher.vetoes"),
		},
	}
	if m.place == nil {
		m.place = host.PositionerFunc(func(_ host.Actor, _ host.Object, done func(error)) { done(nil) })
	}
	if m.notify == nil {
		m.notify = nopNotifier{}
	}
	sink := d.Sink
	if sink == nil {
		sink = charge.NopSink{}
	}
	m.sink = charge.SafeSink{Sink: sink, Log: logger}
	return m
}

// Capture attempts to take obj under actor's control
// The channel yields exactly one value once any asynchronous repositioning completes; nil means captured
func (m *Manager) Capture(ctx context.Context, actor host.Actor, obj host.Object) <-chan error {
	result := make(chan error, 1)

	if err := m.precheck(ctx, actor, obj); err != nil {
		result <- err
		return result
	}

	var once sync.Once
	done := func(placeErr error) {
		once.Do(func() {
			result <- m.completeCapture(ctx, actor, obj, placeErr)
		})
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Warn().Str("panic", fmt.Sprint(r)).Msg("positioner failed")
				done(fmt.Errorf("%w: positioner: %v", ErrInvalidTarget, r))
			}
		}()
		m.place.PlaceAbove(actor, obj, done)
	}()
	return result
}

// precheck runs the capture preconditions in order without mutating anything
func (m *Manager) precheck(ctx context.Context, actor host.Actor, obj host.Object) error {
	if !host.Live(actor) || obj == nil || !obj.Valid() {
		return ErrInvalidTarget
	}
	if m.reg.IsActorCapturing(actor) {
		m.notify.Notify(actor.ID(), MsgAlreadyHolding)
		return ErrAlreadyCapturing
	}
	if m.reg.IsObjectCaptured(obj) {
		m.notify.Notify(actor.ID(), MsgAlreadyMounted)
		return ErrAlreadyCaptured
	}

	switch auth.Decide(m.authz, actor, obj.Kind(), m.log) {
	case auth.Allowed:
	case auth.DeniedKind:
		m.notify.Notify(actor.ID(), MsgKindNotAllowed)
		return fmt.Errorf("%w: kind %s", ErrNotPermitted, obj.Kind())
	default:
		m.notify.Notify(actor.ID(), MsgNoPermission)
		return ErrNotPermitted
	}
	if !auth.OwnerAllows(m.tags, actor, obj) {
		m.notify.Notify(actor.ID(), MsgOwnedByOther)
		return fmt.Errorf("%w: owned by another actor", ErrNotPermitted)
	}

	res, err := m.hooks.Dispatch(ctx, &hook.Event{
		Type:   hook.EventPreCapture,
		Actor:  actor.ID(),
		Object: obj.ID(),
		Kind:   obj.Kind(),
	})
	if err != nil || res.Block {
		m.stats.vetoes.Add(1)
		m.log.Debug().Str("actor", actor.ID().String()).Str("reason", vetoReason(res, err)).Msg("capture vetoed")
		m.notify.Notify(actor.ID(), MsgCaptureVetoed)
		return fmt.Errorf("%w: %s", ErrVetoed, vetoReason(res, err))
	}
	return nil
}

// completeCapture runs once repositioning finished, revalidating before any mutation
func (m *Manager) completeCapture(ctx context.Context, actor host.Actor, obj host.Object, placeErr error) error {
	if placeErr != nil {
		m.notify.Notify(actor.ID(), MsgCaptureFailed)
		return fmt.Errorf("%w: reposition: %w", ErrInvalidTarget, placeErr)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("capture abandoned: %w", err)
	}
	if !host.Live(actor) || !obj.Valid() {
		return ErrInvalidTarget
	}

	err := m.reg.TryAcquire(actor, obj, func() error { return actor.AddPassenger(obj) })
	switch {
	case errors.Is(err, ownership.ErrAlreadyCapturing):
		m.notify.Notify(actor.ID(), MsgAlreadyHolding)
		return err
	case errors.Is(err, ownership.ErrAlreadyCaptured):
		m.notify.Notify(actor.ID(), MsgAlreadyMounted)
		return err
	case err != nil:
		m.notify.Notify(actor.ID(), MsgCaptureFailed)
		return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}

	m.stats.captures.Add(1)
	m.log.Debug().Str("actor", actor.ID().String()).Str("object", obj.ID().String()).Msg("captured")
	m.notify.Notify(actor.ID(), MsgPickup, obj.Name())
	m.cue(actor.ID(), cuePickup)
	m.emit(ctx, &hook.Event{Type: hook.EventCaptured, Actor: actor.ID(), Object: obj.ID(), Kind: obj.Kind()})
	return nil
}

// ReleaseAsDrop ends the capture without propulsion; safe on missing or stale state
func (m *Manager) ReleaseAsDrop(actorID uuid.UUID) Outcome {
	return m.drop(actorID, 0)
}

func (m *Manager) drop(actorID uuid.UUID, percent int) Outcome {
	link, ok := m.reg.ReleaseLink(actorID)
	if !ok {
		return Outcome{Kind: OutcomeNone}
	}

	obj := link.Object
	if !obj.Valid() {
		m.log.Debug().Str("actor", actorID.String()).Msg("drop cleared bookkeeping of invalid object")
		return Outcome{Kind: OutcomeCleared, Object: obj}
	}
	if link.Holder != nil {
		link.Holder.RemovePassenger(obj)
	}

	m.stats.drops.Add(1)
	m.notify.Notify(actorID, MsgPutdown, obj.Name())
	m.emit(context.Background(), &hook.Event{
		Type:    hook.EventDropped,
		Actor:   actorID,
		Object:  obj.ID(),
		Kind:    obj.Kind(),
		Percent: percent,
	})
	return Outcome{Kind: OutcomeDrop, Percent: percent, Object: obj}
}

// StartCharging begins a fresh charge session, replacing any existing one
// Scheduling failure drops the held object
func (m *Manager) StartCharging(actorID uuid.UUID) error {
	actor, ok := m.dir.Actor(actorID)
	if !ok || !m.reg.IsActorCapturing(actor) {
		return ErrNotHolding
	}

	cfg := m.cfg.Get()
	guard := func() bool {
		a, ok := m.dir.Actor(actorID)
		return ok && m.reg.IsActorCapturing(a)
	}
	sess := charge.NewSession(actorID, cfg.ChargeParams(), m.sink, guard)
	if !m.reg.AttachSession(actorID, sess) {
		return ErrNotHolding
	}

	if err := sess.Start(m.sched, uint64(cfg.Charge.IncrementTicks)); err != nil {
		m.log.Error().Err(err).Str("actor", actorID.String()).Msg("charge session could not be scheduled")
		m.notify.Notify(actorID, MsgChargeFailed)
		m.ReleaseAsDrop(actorID)
		return err
	}
	m.log.Debug().Str("actor", actorID.String()).Str("backend", sess.Handle().Backend()).Msg("charging")
	return nil
}

// StopChargingAndResolve ends the charge session and drops or launches the held object
// Without a running session it does nothing
func (m *Manager) StopChargingAndResolve(ctx context.Context, actorID uuid.UUID) (Outcome, error) {
	st := m.reg.TakeSession(actorID)
	if st == nil {
		return Outcome{Kind: OutcomeNone}, nil
	}
	st.Stop()

	sess, ok := st.(*charge.Session)
	if !ok {
		return m.ReleaseAsDrop(actorID), nil
	}
	percent := sess.Percent()

	actor, online := m.dir.Actor(actorID)
	if !online || !m.reg.IsActorCapturing(actor) {
		return m.ReleaseAsDrop(actorID), nil
	}
	if percent <= charge.MinPercent {
		return m.ReleaseAsDrop(actorID), nil
	}

	held, ok := m.reg.Held(actorID)
	if !ok {
		return Outcome{Kind: OutcomeNone}, nil
	}

	cfg := m.cfg.Get()
	velocity := LaunchVelocity(actor.Facing(), percent, cfg.Launch.VelocityMultiplier, cfg.Launch.VerticalBias)

	res, err := m.hooks.Dispatch(ctx, &hook.Event{
		Type:     hook.EventPreLaunch,
		Actor:    actorID,
		Object:   held.ID(),
		Kind:     held.Kind(),
		Velocity: velocity,
		Percent:  percent,
	})
	if err != nil || res.Block {
		m.stats.vetoes.Add(1)
		m.log.Debug().Str("actor", actorID.String()).Str("reason", vetoReason(res, err)).Msg("launch vetoed")
		out := m.drop(actorID, percent)
		out.Vetoed = true
		return out, nil
	}
	if res.Velocity != nil {
		velocity = *res.Velocity
	}

	link, ok := m.reg.ReleaseLink(actorID)
	if !ok {
		return Outcome{Kind: OutcomeNone}, nil
	}
	obj := link.Object
	if link.Holder != nil {
		link.Holder.RemovePassenger(obj)
	}
	if !obj.Valid() {
		return Outcome{Kind: OutcomeCleared, Object: obj}, nil
	}

	noFall := cfg.Protection.DisableFallDamage
	apply := func() {
		if !obj.Valid() {
			return
		}
		obj.SetVelocity(velocity)
		if noFall {
			m.tags.MarkNoFall(obj.ID())
		}
		m.notify.Notify(actorID, MsgLaunch, percent, obj.Name())
		m.cue(actorID, cueLaunch)
	}
	if _, err := m.sched.Defer(obj.ID(), 1, apply); err != nil {
		m.log.Warn().Err(err).Str("object", obj.ID().String()).Msg("launch deferral unavailable, applying now")
		apply()
	}

	m.stats.launches.Add(1)
	m.emit(ctx, &hook.Event{
		Type:     hook.EventLaunched,
		Actor:    actorID,
		Object:   obj.ID(),
		Kind:     obj.Kind(),
		Velocity: velocity,
		Percent:  percent,
	})
	return Outcome{Kind: OutcomeLaunch, Percent: percent, Velocity: velocity, Object: obj}, nil
}

// IsHolding reports whether the actor verifiably holds an object
func (m *Manager) IsHolding(actorID uuid.UUID) bool {
	actor, ok := m.dir.Actor(actorID)
	if !ok {
		return false
	}
	return m.reg.IsActorCapturing(actor)
}

// Holding is IsHolding for a handle the directory may no longer resolve
func (m *Manager) Holding(actor host.Actor) bool {
	return m.reg.IsActorCapturing(actor)
}

// Charging reports the actor's live charge progress
func (m *Manager) Charging(actorID uuid.UUID) (charge.Progress, bool) {
	sess, ok := m.reg.Session(actorID).(*charge.Session)
	if !ok || sess.Stopped() {
		return charge.Progress{}, false
	}
	return sess.Progress(), true
}

// Shutdown detaches every captured object and clears all markers
func (m *Manager) Shutdown() int {
	links := m.reg.Drain()
	for _, l := range links {
		if l.Holder != nil && l.Object.Valid() {
			l.Holder.RemovePassenger(l.Object)
		}
	}
	if len(links) > 0 {
		m.log.Info().Int("released", len(links)).Msg("released captured objects on shutdown")
	}
	return len(links)
}

func (m *Manager) emit(ctx context.Context, ev *hook.Event) {
	if _, err := m.hooks.Dispatch(ctx, ev); err != nil {
		m.log.Debug().Err(err).Str("event", string(ev.Type)).Msg("notification dispatch interrupted")
	}
}

func (m *Manager) cue(actor uuid.UUID, name string) {
	if m.cues == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn().Str("cue", name).Str("panic", fmt.Sprint(r)).Msg("cue failed")
		}
	}()
	m.cues.Cue(actor, name)
}

func vetoReason(res *hook.Result, err error) string {
	if err != nil {
		return err.Error()
	}
	if res.Reason != "" {
		return res.Reason
	}
	return "blocked"
}

// LaunchVelocity is facing*mult*pct/100 plus an upward bias scaled by the same ratio
func LaunchVelocity(facing vmath.Vec3F, percent int, multiplier, bias float64) vmath.Vec3F {
	ratio := float64(min(max(percent, charge.MinPercent), charge.MaxPercent)) / charge.MaxPercent
	v := vmath.V3FScale(vmath.V3FNormalize(facing), multiplier*ratio)
	return vmath.V3FAdd(v, vmath.V3FScale(vmath.Up, bias*ratio))
}

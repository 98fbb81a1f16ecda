// Package hook is the synchronous veto and notification bus raised by the
// launcher at fixed points of each operation.
//
// Pre events are cancellable: any handler may block them, and PreLaunch
// handlers may replace the launch velocity for the handlers after them.
// Post events are notifications whose results are ignored.
package hook

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/mob-launch/vmath"
)

type EventType string

const (
	EventPreCapture EventType = "PreCapture"
	EventPreLaunch  EventType = "PreLaunch"
	EventCaptured   EventType = "Captured"
	EventDropped    EventType = "Dropped"
	EventLaunched   EventType = "Launched"
)

// Cancellable reports whether handlers may block the event
func (t EventType) Cancellable() bool {
	return t == EventPreCapture || t == EventPreLaunch
}

// Event is one hook invocation
type Event struct {
	Type   EventType
	Actor  uuid.UUID
	Object uuid.UUID
	// Kind is the object's entity type
	Kind string
	// Velocity is set for PreLaunch and Launched
	Velocity vmath.Vec3F
	// Percent is the resolved charge for PreLaunch, Launched and Dropped
	Percent int
}

// Result aggregates handler decisions
type Result struct {
	Block  bool
	Reason string
	// Velocity is the replacement launch vector, nil keeps the computed one
	Velocity *vmath.Vec3F
}

// Deny blocks the event with a reason
func (r *Result) Deny(reason string) {
	r.Block = true
	r.Reason = reason
}

// ReplaceVelocity swaps the launch vector seen by later handlers and the launcher
func (r *Result) ReplaceVelocity(v vmath.Vec3F) {
	r.Velocity = &v
}

// Handler reacts to events of the types it Handles, lowest Priority first
type Handler interface {
	ID() string
	Handles() []EventType
	Priority() int
	Handle(ctx context.Context, event *Event, result *Result) error
}

// Func adapts a function to Handler
type Func struct {
	Name  string
	Types []EventType
	Order int
	Fn    func(ctx context.Context, event *Event, result *Result) error
}

func (f Func) ID() string                                            { return f.Name }
func (f Func) Handles() []EventType                                  { return f.Types }
func (f Func) Priority() int                                         { return f.Order }
func (f Func) Handle(ctx context.Context, e *Event, r *Result) error { return f.Fn(ctx, e, r) }

// Bus dispatches events to registered handlers
type Bus struct {
	handlers []Handler
	mu       sync.RWMutex
	log      zerolog.Logger
}

func New(logger zerolog.Logger) *Bus {
	return &Bus{log: logger.With().Str("component", "hook").Logger()}
}

// Register adds a handler; order is resolved by priority at dispatch
func (b *Bus) Register(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Dispatch runs matching handlers sequentially in priority order
// In cancellable events a handler error or panic blocks the event; otherwise it is logged and skipped
func (b *Bus) Dispatch(ctx context.Context, event *Event) (*Result, error) {
	if event == nil {
		return nil, fmt.Errorf("hook: nil event")
	}
	if b == nil {
		return &Result{}, nil
	}

	b.mu.RLock()
	matching := b.matchingHandlers(event.Type)
	b.mu.RUnlock()

	result := &Result{}
	for _, h := range matching {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("hook: context cancelled: %w", err)
		}

		if err := b.call(ctx, h, event, result); err != nil {
			b.log.Warn().Str("handler", h.ID()).Str("event", string(event.Type)).Err(err).Msg("hook handler failed")
			if event.Type.Cancellable() {
				result.Deny(fmt.Sprintf("handler %s failed", h.ID()))
			}
		}
		if result.Velocity != nil {
			event.Velocity = *result.Velocity
		}
	}

	if !event.Type.Cancellable() {
		return &Result{}, nil
	}
	return result, nil
}

// Handlers returns all registered handlers
func (b *Bus) Handlers() []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, len(b.handlers))
	copy(out, b.handlers)
	return out
}

func (b *Bus) call(ctx context.Context, h Handler, event *Event, result *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Handle(ctx, event, result)
}

// matchingHandlers must be called with at least a read lock held
func (b *Bus) matchingHandlers(eventType EventType) []Handler {
	var matched []Handler
	for _, h := range b.handlers {
		for _, t := range h.Handles() {
			if t == eventType {
				matched = append(matched, h)
				break
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority() < matched[j].Priority()
	})
	return matched
}

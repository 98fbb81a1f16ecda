// Package clock runs repeating and deferred callbacks on host ticks.
//
// Two backends exist. RegionClock keeps an independent tick stream per
// execution region and runs a callback on the region owning its target, so
// the callback may mutate that target safely. GlobalClock is a single shared
// stream for hosts without regions. Scheduler tries backends in order and
// returns a Handle that remembers which one accepted the work.
package clock

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/mob-launch/status"
)

var (
	// ErrSchedulingUnavailable means every backend refused the task
	ErrSchedulingUnavailable = errors.New("clock: scheduling unavailable")
	ErrBackendUnavailable    = errors.New("clock: backend unavailable")
	ErrNoRegion              = errors.New("clock: target has no region")
	ErrTaskNotScheduled      = errors.New("clock: task not scheduled")
)

// Target identifies the actor or object whose context a callback runs in
type Target = uuid.UUID

// Task is a backend-level schedule
type Task interface {
	Cancel() error
	Active() bool
}

// Backend is one scheduling implementation
type Backend interface {
	Name() string
	// Available reports whether the host offers this capability at all
	Available() bool
	// RunAtFixedRate runs fn after delay ticks and then every period ticks
	RunAtFixedRate(target Target, delay, period uint64, fn func()) (Task, error)
	// RunLater runs fn once after delay ticks
	RunLater(target Target, delay uint64, fn func()) (Task, error)
}

// Handle is the caller-owned reference to a schedule
// The zero Handle is a never-scheduled handle and cancels as a no-op
type Handle struct {
	mu        sync.Mutex
	backend   string
	task      Task
	cancelled bool
}

// Backend returns the accepting backend name, "" when nothing accepted the task
func (h *Handle) Backend() string {
	if h == nil {
		return ""
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.backend
}

// Scheduled reports whether any backend ever accepted the task
func (h *Handle) Scheduled() bool {
	return h.Backend() != ""
}

// Active reports whether the callback can still run
func (h *Handle) Active() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.task != nil && !h.cancelled && h.task.Active()
}

// Cancel stops the schedule, safe to call repeatedly and from any goroutine
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.mu.Lock()
	if h.cancelled || h.task == nil {
		h.cancelled = true
		h.mu.Unlock()
		return
	}
	h.cancelled = true
	t := h.task
	h.mu.Unlock()

	defer func() { _ = recover() }()
	_ = t.Cancel()
}

// Scheduler selects a backend per submission in preference order
type Scheduler struct {
	backends  []Backend
	log       zerolog.Logger
	fallbacks *atomic.Int64
	failures  *atomic.Int64
}

// NewScheduler builds a scheduler trying backends in the given order
func NewScheduler(logger zerolog.Logger, stats *status.Registry, backends ...Backend) *Scheduler {
	return &Scheduler{
		backends:  backends,
		log:       logger.With().Str("component", "clock").Logger(),
		fallbacks: stats.Counter("clock.fallbacks"),
		failures:  stats.Counter("clock.failures"),
	}
}

// Schedule runs fn every period ticks starting one tick from now in target's context
func (s *Scheduler) Schedule(target Target, period uint64, fn func()) (*Handle, error) {
	period = max(period, 1)
	return s.submit(target, func(b Backend) (Task, error) {
		return b.RunAtFixedRate(target, 1, period, fn)
	})
}

// Defer runs fn once after delay ticks in target's context
func (s *Scheduler) Defer(target Target, delay uint64, fn func()) (*Handle, error) {
	return s.submit(target, func(b Backend) (Task, error) {
		return b.RunLater(target, delay, fn)
	})
}

// Backends returns the configured backend names in order
func (s *Scheduler) Backends() []string {
	names := make([]string, len(s.backends))
	for i, b := range s.backends {
		names[i] = b.Name()
	}
	return names
}

func (s *Scheduler) submit(target Target, op func(Backend) (Task, error)) (*Handle, error) {
	h := &Handle{}
	for i, b := range s.backends {
		if !b.Available() {
			s.log.Debug().Str("backend", b.Name()).Msg("backend unavailable, skipping")
			continue
		}
		t, err := attempt(b, op)
		if err != nil {
			s.log.Debug().Err(err).Str("backend", b.Name()).Str("target", target.String()).Msg("backend refused task")
			continue
		}
		if i > 0 {
			s.fallbacks.Add(1)
		}
		h.backend = b.Name()
		h.task = t
		return h, nil
	}
	s.failures.Add(1)
	return h, ErrSchedulingUnavailable
}

func attempt(b Backend, op func(Backend) (Task, error)) (t Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("clock: backend %s panicked: %v", b.Name(), r)
		}
	}()
	t, err = op(b)
	if err == nil && t == nil {
		err = fmt.Errorf("clock: backend %s returned no task", b.Name())
	}
	return t, err
}

package charge

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/mob-launch/clock"
)

// Sink receives display and audio output; implementations must not block
type Sink interface {
	Progress(actor uuid.UUID, p Progress)
	Signal(actor uuid.UUID, s Signal, param float64)
}

// NopSink discards everything
type NopSink struct{}

func (NopSink) Progress(uuid.UUID, Progress)      {}
func (NopSink) Signal(uuid.UUID, Signal, float64) {}

// Fanout forwards to every sink in order
type Fanout []Sink

func (f Fanout) Progress(actor uuid.UUID, p Progress) {
	for _, s := range f {
		s.Progress(actor, p)
	}
}

func (f Fanout) Signal(actor uuid.UUID, sig Signal, param float64) {
	for _, s := range f {
		s.Signal(actor, sig, param)
	}
}

// SafeSink shields the oscillator from a failing sink
type SafeSink struct {
	Sink Sink
	Log  zerolog.Logger
}

func (s SafeSink) Progress(actor uuid.UUID, p Progress) {
	defer s.recover("progress")
	s.Sink.Progress(actor, p)
}

func (s SafeSink) Signal(actor uuid.UUID, sig Signal, param float64) {
	defer s.recover(sig.String())
	s.Sink.Signal(actor, sig, param)
}

func (s SafeSink) recover(what string) {
	if r := recover(); r != nil {
		s.Log.Warn().Str("output", what).Str("panic", fmt.Sprint(r)).Msg("charge sink failed")
	}
}

// Session is one charge run for one actor
// The oscillator is touched only from the scheduled tick and from Stop's final read
type Session struct {
	actor uuid.UUID
	sink  Sink
	// guard is checked before every tick; false ends the session
	guard func() bool

	mu     sync.Mutex
	osc    *Oscillator
	handle *clock.Handle

	stopped atomic.Bool
	ticks   atomic.Int64
}

// NewSession creates an idle session at 0% rising; guard may be nil
func NewSession(actor uuid.UUID, params Params, sink Sink, guard func() bool) *Session {
	if sink == nil {
		sink = NopSink{}
	}
	return &Session{
		actor: actor,
		sink:  sink,
		guard: guard,
		osc:   NewOscillator(params),
	}
}

func (s *Session) Actor() uuid.UUID { return s.actor }

// Start schedules the oscillator tick on the actor's context every period ticks
func (s *Session) Start(sched *clock.Scheduler, period uint64) error {
	h, err := sched.Schedule(s.actor, period, s.tick)
	s.mu.Lock()
	s.handle = h
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("charge: start session for %s: %w", s.actor, err)
	}
	if s.stopped.Load() {
		h.Cancel()
	}
	return nil
}

func (s *Session) tick() {
	if s.stopped.Load() {
		return
	}
	if s.guard != nil && !s.guard() {
		s.Stop()
		return
	}

	s.mu.Lock()
	if s.stopped.Load() {
		s.mu.Unlock()
		return
	}
	p, em := s.osc.Tick()
	s.mu.Unlock()
	s.ticks.Add(1)

	s.sink.Progress(s.actor, p)
	if em.Signal != SignalNone {
		s.sink.Signal(s.actor, em.Signal, em.Param)
	}
}

// Stop cancels the schedule; idempotent and callable from any goroutine
func (s *Session) Stop() {
	s.stopped.Store(true)
	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()
	h.Cancel()
}

// Stopped reports whether Stop ran
func (s *Session) Stopped() bool { return s.stopped.Load() }

// Percent returns the current percentage, final once stopped
func (s *Session) Percent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.osc.State().Percent
}

// Progress returns the current view
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.osc.Progress()
}

// Ticks returns how many oscillator steps ran
func (s *Session) Ticks() int64 { return s.ticks.Load() }

// Handle exposes the schedule handle, nil before Start
func (s *Session) Handle() *clock.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

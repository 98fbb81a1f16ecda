package clock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const BackendGlobal = "global"

// GlobalClock is a single tick stream shared by every target
type GlobalClock struct {
	tl      *timeline
	enabled atomic.Bool
	ticks   *atomic.Int64
}

func NewGlobalClock(logger zerolog.Logger, ticks *atomic.Int64) *GlobalClock {
	c := &GlobalClock{
		tl:    newTimeline(logger.With().Str("backend", BackendGlobal).Logger()),
		ticks: ticks,
	}
	if c.ticks == nil {
		c.ticks = new(atomic.Int64)
	}
	c.enabled.Store(true)
	return c
}

func (c *GlobalClock) Name() string { return BackendGlobal }

func (c *GlobalClock) Available() bool { return c.enabled.Load() }

// SetAvailable toggles the capability, used to emulate hosts without it
func (c *GlobalClock) SetAvailable(v bool) { c.enabled.Store(v) }

func (c *GlobalClock) RunAtFixedRate(_ Target, delay, period uint64, fn func()) (Task, error) {
	if !c.Available() {
		return nil, ErrBackendUnavailable
	}
	return c.tl.add(delay, max(period, 1), fn), nil
}

func (c *GlobalClock) RunLater(_ Target, delay uint64, fn func()) (Task, error) {
	if !c.Available() {
		return nil, ErrBackendUnavailable
	}
	return c.tl.add(delay, 0, fn), nil
}

// Tick advances the shared stream once and returns the number of callbacks run
func (c *GlobalClock) Tick() int {
	c.ticks.Add(1)
	return c.tl.tick()
}

// Advance runs n ticks
func (c *GlobalClock) Advance(n int) {
	for range n {
		c.Tick()
	}
}

// Now returns the current tick number
func (c *GlobalClock) Now() uint64 { return c.tl.current() }

// Pending returns the number of live tasks
func (c *GlobalClock) Pending() int { return c.tl.pending() }

// Run ticks in real time until ctx is done
func (c *GlobalClock) Run(ctx context.Context, interval time.Duration) error {
	return drive(ctx, interval, func() { c.Tick() })
}

package clock

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const BackendRegion = "region"

// RegionID names an independently scheduled execution region
type RegionID string

// RegionResolver maps a target to the region that owns it
type RegionResolver interface {
	RegionOf(target Target) (RegionID, bool)
}

// RegionResolverFunc adapts a function to RegionResolver
type RegionResolverFunc func(target Target) (RegionID, bool)

func (f RegionResolverFunc) RegionOf(target Target) (RegionID, bool) { return f(target) }

// RegionClock keeps one tick stream per region
// Regions tick concurrently with each other, never with themselves
type RegionClock struct {
	mu       sync.RWMutex
	regions  map[RegionID]*timeline
	resolver RegionResolver
	enabled  atomic.Bool
	ticks    *atomic.Int64
	log      zerolog.Logger
}

// NewRegionClock creates a region backend; a nil resolver leaves it unavailable
func NewRegionClock(logger zerolog.Logger, resolver RegionResolver, ticks *atomic.Int64) *RegionClock {
	c := &RegionClock{
		regions:  make(map[RegionID]*timeline),
		resolver: resolver,
		ticks:    ticks,
		log:      logger.With().Str("backend", BackendRegion).Logger(),
	}
	if c.ticks == nil {
		c.ticks = new(atomic.Int64)
	}
	c.enabled.Store(resolver != nil)
	return c
}

func (c *RegionClock) Name() string { return BackendRegion }

func (c *RegionClock) Available() bool { return c.enabled.Load() }

// SetAvailable toggles the capability; enabling without a resolver has no effect
func (c *RegionClock) SetAvailable(v bool) { c.enabled.Store(v && c.resolver != nil) }

func (c *RegionClock) RunAtFixedRate(target Target, delay, period uint64, fn func()) (Task, error) {
	tl, err := c.timelineFor(target)
	if err != nil {
		return nil, err
	}
	return tl.add(delay, max(period, 1), fn), nil
}

func (c *RegionClock) RunLater(target Target, delay uint64, fn func()) (Task, error) {
	tl, err := c.timelineFor(target)
	if err != nil {
		return nil, err
	}
	return tl.add(delay, 0, fn), nil
}

func (c *RegionClock) timelineFor(target Target) (*timeline, error) {
	if !c.Available() {
		return nil, ErrBackendUnavailable
	}
	id, ok := c.resolver.RegionOf(target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRegion, target)
	}
	return c.region(id), nil
}

func (c *RegionClock) region(id RegionID) *timeline {
	c.mu.RLock()
	tl, ok := c.regions[id]
	c.mu.RUnlock()
	if ok {
		return tl
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tl, ok := c.regions[id]; ok {
		return tl
	}
	tl = newTimeline(c.log.With().Str("region", string(id)).Logger())
	c.regions[id] = tl
	return tl
}

// Regions lists known regions in sorted order
func (c *RegionClock) Regions() []RegionID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.regions))
}

// TickRegion advances a single region
func (c *RegionClock) TickRegion(id RegionID) int {
	c.mu.RLock()
	tl, ok := c.regions[id]
	c.mu.RUnlock()
	if !ok {
		return 0
	}
	return tl.tick()
}

// Tick advances every region once, regions in parallel
func (c *RegionClock) Tick() int {
	c.ticks.Add(1)

	c.mu.RLock()
	streams := slices.Collect(maps.Values(c.regions))
	c.mu.RUnlock()

	var ran atomic.Int64
	var g errgroup.Group
	for _, tl := range streams {
		g.Go(func() error {
			ran.Add(int64(tl.tick()))
			return nil
		})
	}
	_ = g.Wait()
	return int(ran.Load())
}

// Advance runs n ticks
func (c *RegionClock) Advance(n int) {
	for range n {
		c.Tick()
	}
}

// Pending returns live tasks across all regions
func (c *RegionClock) Pending() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, tl := range c.regions {
		n += tl.pending()
	}
	return n
}

// Run ticks all regions in real time until ctx is done
func (c *RegionClock) Run(ctx context.Context, interval time.Duration) error {
	return drive(ctx, interval, func() { c.Tick() })
}

// Package engine assembles the capture engine from a host and a configuration
// store and drives its clocks.
//
// The host supplies the actor directory, the repositioning step and, when it
// has independent execution regions, a region resolver. Everything else is
// built here: clocks and the scheduler, the ownership registry, hooks,
// message catalog, display and audio sinks, the launcher and the event
// listener.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/mob-launch/audio"
	"github.com/lixenwraith/mob-launch/auth"
	"github.com/lixenwraith/mob-launch/charge"
	"github.com/lixenwraith/mob-launch/clock"
	"github.com/lixenwraith/mob-launch/config"
	"github.com/lixenwraith/mob-launch/hook"
	"github.com/lixenwraith/mob-launch/host"
	"github.com/lixenwraith/mob-launch/lang"
	"github.com/lixenwraith/mob-launch/launcher"
	"github.com/lixenwraith/mob-launch/listener"
	"github.com/lixenwraith/mob-launch/ownership"
	"github.com/lixenwraith/mob-launch/render"
	"github.com/lixenwraith/mob-launch/status"
	"github.com/lixenwraith/mob-launch/tag"
)

var ErrNoDirectory = errors.New("engine: host directory is required")

// Options are the host-provided collaborators
type Options struct {
	Directory host.Directory
	// Positioner may be nil for hosts that attach in place
	Positioner host.Positioner
	// Regions enables the region clock; nil runs everything on the global clock
	Regions clock.RegionResolver
	// TagStore defaults to an in-memory store
	TagStore tag.Store
	// Authorizer defaults to permission nodes plus the configured allow list
	Authorizer auth.Authorizer
	Meta       lang.Meta
	Logger     zerolog.Logger
}

// Engine owns every component of a running instance
type Engine struct {
	Config    *config.Store
	Stats     *status.Registry
	Tags      *tag.Tags
	Registry  *ownership.Registry
	Global    *clock.GlobalClock
	Region    *clock.RegionClock
	Scheduler *clock.Scheduler
	Hooks     *hook.Bus
	Catalog   *lang.Catalog
	Notifier  *lang.Notifier
	Sounds    *audio.SoundManager
	Launcher  *launcher.Manager
	Listener  *listener.Listener

	log zerolog.Logger
}

// RegionsFrom adapts a host lookup returning plain region names
func RegionsFrom(lookup func(uuid.UUID) (string, bool)) clock.RegionResolver {
	return clock.RegionResolverFunc(func(target clock.Target) (clock.RegionID, bool) {
		name, ok := lookup(target)
		return clock.RegionID(name), ok
	})
}

func New(store *config.Store, opts Options) (*Engine, error) {
	if opts.Directory == nil {
		return nil, ErrNoDirectory
	}
	if store == nil {
		store = config.NewStore("", nil, opts.Logger)
	}
	cfg := store.Get()
	logger := opts.Logger

	e := &Engine{
		Config: store,
		Stats:  status.NewRegistry(),
		Hooks:  hook.New(logger),
		log:    logger.With().Str("component", "engine").Logger(),
	}

	tagStore := opts.TagStore
	if tagStore == nil {
		tagStore = tag.NewMemoryStore()
	}
	e.Tags = tag.New(tagStore)
	e.Registry = ownership.New(opts.Directory, e.Tags, logger, e.Stats)

	e.Global = clock.NewGlobalClock(logger, e.Stats.Counter("clock.ticks"))
	e.Region = clock.NewRegionClock(logger, opts.Regions, e.Stats.Counter("clock.region_ticks"))
	backends := []clock.Backend{e.Global, e.Region}
	if cfg.Scheduler.PreferRegion {
		backends = []clock.Backend{e.Region, e.Global}
	}
	e.Scheduler = clock.NewScheduler(logger, e.Stats, backends...)

	e.Catalog = lang.New(opts.Meta, cfg.MessagePrefix)
	if cfg.Language != "" {
		if err := e.Catalog.LoadFile(cfg.Language); err != nil {
			e.log.Warn().Err(err).Str("path", cfg.Language).Msg("language file not loaded, using built-in messages")
		}
	}
	e.Notifier = &lang.Notifier{Dir: opts.Directory, Catalog: e.Catalog}

	e.Sounds = audio.NewSoundManager(store, logger)
	sink := charge.Fanout{
		&render.ActionBarSink{Dir: opts.Directory, Config: store},
		e.Sounds,
	}

	authz := opts.Authorizer
	if authz == nil {
		authz = &auth.PermissionAuthorizer{KindAllowed: func(kind string) bool { return store.Get().KindAllowed(kind) }}
	}

	e.Launcher = launcher.New(launcher.Deps{
		Directory:  opts.Directory,
		Positioner: opts.Positioner,
		Registry:   e.Registry,
		Tags:       e.Tags,
		Scheduler:  e.Scheduler,
		Hooks:      e.Hooks,
		Authorizer: authz,
		Sink:       sink,
		Cues:       e.Sounds,
		Config:     store,
		Notifier:   e.Notifier,
		Logger:     logger,
		Status:     e.Stats,
	})
	e.Listener = listener.New(e.Launcher, e.Tags, store, e.Notifier, logger, e.Stats)

	store.OnReload(e.applyConfig)

	e.log.Info().
		Strs("backends", e.Scheduler.Backends()).
		Bool("region_available", e.Region.Available()).
		Strs("allowed_mobs", cfg.AllowedMobs).
		Msg("engine assembled")
	return e, nil
}

// applyConfig refreshes the parts that cache configuration
// Backend preference is fixed at construction
func (e *Engine) applyConfig(cfg *config.Config) {
	e.Catalog.SetPrefix(cfg.MessagePrefix)
	if cfg.Language != "" {
		if err := e.Catalog.LoadFile(cfg.Language); err != nil {
			e.log.Warn().Err(err).Str("path", cfg.Language).Msg("language file not reloaded")
		}
	}
}

// Tick advances both clocks once, used by headless hosts that own the tick
func (e *Engine) Tick() {
	e.Region.Tick()
	e.Global.Tick()
}

// Advance runs n ticks
func (e *Engine) Advance(n int) {
	for range n {
		e.Tick()
	}
}

// Handle forwards a host event to the listener
func (e *Engine) Handle(ctx context.Context, ev *listener.Event) listener.Verdict {
	return e.Listener.Handle(ctx, ev)
}

// Run drives the clocks in real time and watches the config file until ctx ends
// On exit every captured object is released
func (e *Engine) Run(ctx context.Context) error {
	interval := e.Config.Get().Scheduler.TickInterval

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.Global.Run(gctx, interval)
	})
	if e.Region.Available() {
		g.Go(func() error {
			return e.Region.Run(gctx, interval)
		})
	}
	g.Go(func() error {
		return e.Config.Watch(gctx)
	})

	err := g.Wait()
	released := e.Launcher.Shutdown()
	e.log.Info().Int("released", released).Msg("engine stopped")

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// Close releases captured objects and silences audio
func (e *Engine) Close() {
	e.Launcher.Shutdown()
	e.Sounds.Cleanup()
}

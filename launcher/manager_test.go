package launcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/mob-launch/auth"
	"github.com/lixenwraith/mob-launch/charge"
	"github.com/lixenwraith/mob-launch/clock"
	"github.com/lixenwraith/mob-launch/config"
	"github.com/lixenwraith/mob-launch/hook"
	"github.com/lixenwraith/mob-launch/host"
	"github.com/lixenwraith/mob-launch/host/sim"
	"github.com/lixenwraith/mob-launch/ownership"
	"github.com/lixenwraith/mob-launch/status"
	"github.com/lixenwraith/mob-launch/tag"
	"github.com/lixenwraith/mob-launch/vmath"
)

type note struct {
	actor uuid.UUID
	key   string
	args  []any
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (r *recordingNotifier) Notify(actor uuid.UUID, key string, args ...any) {
	r.mu.Lock()
	r.notes = append(r.notes, note{actor: actor, key: key, args: args})
	r.mu.Unlock()
}

func (r *recordingNotifier) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notes))
	for i, n := range r.notes {
		out[i] = n.key
	}
	return out
}

func (r *recordingNotifier) last() note {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return note{}
	}
	return r.notes[len(r.notes)-1]
}

type recordingCues struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingCues) Cue(_ uuid.UUID, name string) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
}

func (r *recordingCues) played() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

type fixture struct {
	world  *sim.World
	tags   *tag.Tags
	stats  *status.Registry
	reg    *ownership.Registry
	global *clock.GlobalClock
	bus    *hook.Bus
	store  *config.Store
	notes  *recordingNotifier
	cues   *recordingCues
	m      *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	w := sim.NewWorld()
	tags := tag.New(tag.NewMemoryStore())
	stats := status.NewRegistry()
	global := clock.NewGlobalClock(zerolog.Nop(), nil)

	cfg := config.Default()
	cfg.AllowedMobs = []string{"pig", "cow"}
	store := config.NewStore("", cfg, zerolog.Nop())

	f := &fixture{
		world:  w,
		tags:   tags,
		stats:  stats,
		reg:    ownership.New(w, tags, zerolog.Nop(), stats),
		global: global,
		bus:    hook.New(zerolog.Nop()),
		store:  store,
		notes:  &recordingNotifier{},
		cues:   &recordingCues{},
	}
	f.m = New(Deps{
		Directory:  w,
		Positioner: w,
		Registry:   f.reg,
		Tags:       tags,
		Scheduler:  clock.NewScheduler(zerolog.Nop(), stats, global),
		Hooks:      f.bus,
		Authorizer: &auth.PermissionAuthorizer{KindAllowed: func(k string) bool { return store.Get().KindAllowed(k) }},
		Cues:       f.cues,
		Config:     store,
		Notifier:   f.notes,
		Logger:     zerolog.Nop(),
		Status:     stats,
	})
	return f
}

func (f *fixture) player(name string) *sim.Actor {
	a := f.world.SpawnActor(name, "overworld")
	a.Grant(auth.NodeUse, auth.NodeUseAll)
	return a
}

func (f *fixture) pig(name string) *sim.Object {
	return f.world.SpawnObject("pig", name, "overworld")
}

func (f *fixture) capture(a *sim.Actor, o *sim.Object) error {
	return <-f.m.Capture(context.Background(), a, o)
}

func (f *fixture) resolve(t *testing.T, a *sim.Actor) Outcome {
	t.Helper()
	out, err := f.m.StopChargingAndResolve(context.Background(), a.ID())
	require.NoError(t, err)
	return out
}

func TestCaptureChargeLaunch(t *testing.T) {
	f := newFixture(t)
	a := f.player("alex")
	a.Look(30, -10)
	o := f.pig("pig-1")

	require.NoError(t, f.capture(a, o))
	assert.True(t, f.m.IsHolding(a.ID()))
	assert.True(t, o.Riding())
	assert.True(t, f.tags.IsMounted(o.ID()))

	require.NoError(t, f.m.StartCharging(a.ID()))
	f.global.Advance(20)
	p, ok := f.m.Charging(a.ID())
	require.True(t, ok)
	assert.Equal(t, charge.MaxPercent, p.Percent)
	assert.Equal(t, charge.PhaseHoldAtMax, p.Phase)

	out := f.resolve(t, a)
	require.Equal(t, OutcomeLaunch, out.Kind)
	assert.Equal(t, 100, out.Percent)

	cfg := f.store.Get()
	want := vmath.V3FAdd(
		vmath.V3FScale(vmath.V3FNormalize(a.Facing()), cfg.Launch.VelocityMultiplier),
		vmath.V3FScale(vmath.Up, cfg.Launch.VerticalBias),
	)
	assert.True(t, vmath.V3FApproxEqual(want, out.Velocity, 1e-9), "got %v want %v", out.Velocity, want)

	assert.False(t, f.m.IsHolding(a.ID()))
	assert.False(t, o.Riding())
	assert.False(t, f.tags.IsMounted(o.ID()))
	assert.Equal(t, vmath.Vec3F{}, o.Velocity(), "velocity waits for the next tick")

	f.global.Tick()
	assert.Equal(t, out.Velocity, o.Velocity())
	assert.True(t, f.tags.ConsumeNoFall(o.ID()))
	assert.Zero(t, f.global.Pending())

	assert.Equal(t, []string{MsgPickup, MsgLaunch}, f.notes.keys())
	assert.Equal(t, []any{100, "pig-1"}, f.notes.last().args)
	assert.Equal(t, []string{cuePickup, cueLaunch}, f.cues.played())
	assert.EqualValues(t, 1, f.stats.Counter("launcher.launches").Load())
}

func TestSecondCaptureRejected(t *testing.T) {
	f := newFixture(t)
	a := f.player("alex")
	b := f.player("blair")
	o1 := f.pig("pig-1")
	o2 := f.pig("pig-2")

	require.NoError(t, f.capture(a, o1))

	assert.ErrorIs(t, f.capture(a, o2), ErrAlreadyCapturing)
	assert.Equal(t, MsgAlreadyHolding, f.notes.last().key)

	assert.ErrorIs(t, f.capture(b, o1), ErrAlreadyCaptured)
	assert.Equal(t, MsgAlreadyMounted, f.notes.last().key)

	held, ok := f.reg.Held(a.ID())
	require.True(t, ok)
	assert.Equal(t, o1.ID(), held.ID())
	assert.False(t, o2.Riding())
	assert.Equal(t, 1, f.reg.Len())
}

func TestRemovedObjectSelfHeals(t *testing.T) {
	f := newFixture(t)
	a := f.player("alex")
	o := f.pig("pig-1")

	require.NoError(t, f.capture(a, o))
	require.NoError(t, f.m.StartCharging(a.ID()))
	f.global.Advance(3)

	o.Remove()
	f.global.Tick()

	assert.Zero(t, f.reg.Len(), "guard evicted the stale link")
	assert.Zero(t, f.global.Pending(), "charge schedule cancelled")
	assert.False(t, f.m.IsHolding(a.ID()))
	assert.False(t, f.tags.IsMounted(o.ID()))
	assert.EqualValues(t, 1, f.stats.Counter("ownership.self_heals").Load())

	out := f.resolve(t, a)
	assert.Equal(t, OutcomeNone, out.Kind)
}

func TestReleaseAtZeroDrops(t *testing.T) {
	t.Run("before first tick", func(t *testing.T) {
		f := newFixture(t)
		a := f.player("alex")
		o := f.pig("pig-1")

		require.NoError(t, f.capture(a, o))
		require.NoError(t, f.m.StartCharging(a.ID()))

		out := f.resolve(t, a)
		assert.Equal(t, OutcomeDrop, out.Kind)
		assert.Zero(t, out.Percent)
		assert.False(t, o.Riding())
		assert.Equal(t, MsgPutdown, f.notes.last().key)

		f.global.Advance(2)
		assert.Equal(t, vmath.Vec3F{}, o.Velocity())
		assert.False(t, f.tags.ConsumeNoFall(o.ID()))
	})

	t.Run("hold at minimum", func(t *testing.T) {
		f := newFixture(t)
		a := f.player("alex")
		o := f.pig("pig-1")

		require.NoError(t, f.capture(a, o))
		require.NoError(t, f.m.StartCharging(a.ID()))
		// 20 rising, 15 held at max, 20 falling
		f.global.Advance(55)
		p, ok := f.m.Charging(a.ID())
		require.True(t, ok)
		assert.True(t, p.ReadyToDrop)

		out := f.resolve(t, a)
		assert.Equal(t, OutcomeDrop, out.Kind)
		assert.EqualValues(t, 1, f.stats.Counter("launcher.drops").Load())
	})
}

func TestLaunchVelocityScaling(t *testing.T) {
	facing := vmath.V3FFromYawPitch(45, -20)

	assert.Equal(t, vmath.Vec3F{}, LaunchVelocity(facing, 0, 1.8, 0.3))

	prev := 0.0
	for pct := 1; pct <= 100; pct++ {
		mag := vmath.V3FMag(LaunchVelocity(facing, pct, 1.8, 0.3))
		assert.Greater(t, mag, prev, "pct %d", pct)
		prev = mag
	}

	full := LaunchVelocity(facing, 100, 1.8, 0.3)
	half := LaunchVelocity(facing, 50, 1.8, 0.3)
	assert.Equal(t, vmath.V3FScale(full, 0.5), half)
	assert.Equal(t, vmath.V3FMag(full)/2, vmath.V3FMag(half))

	// Out-of-range percentages clamp
	assert.Equal(t, full, LaunchVelocity(facing, 150, 1.8, 0.3))
}

func TestLaunchVetoDrops(t *testing.T) {
	f := newFixture(t)
	f.bus.Register(hook.Func{
		Name:  "no-launch",
		Types: []hook.EventType{hook.EventPreLaunch},
		Fn: func(_ context.Context, _ *hook.Event, r *hook.Result) error {
			r.Deny("region protected")
			return nil
		},
	})
	a := f.player("alex")
	o := f.pig("pig-1")

	require.NoError(t, f.capture(a, o))
	require.NoError(t, f.m.StartCharging(a.ID()))
	f.global.Advance(10)

	out := f.resolve(t, a)
	assert.Equal(t, OutcomeDrop, out.Kind)
	assert.True(t, out.Vetoed)
	assert.Equal(t, 50, out.Percent)
	assert.False(t, o.Riding())

	f.global.Advance(2)
	assert.Equal(t, vmath.Vec3F{}, o.Velocity())
	assert.EqualValues(t, 1, f.stats.Counter("launcher.vetoes").Load())
	assert.Zero(t, f.stats.Counter("launcher.launches").Load())
}

func TestLaunchHookReplacesVelocity(t *testing.T) {
	f := newFixture(t)
	replaced := vmath.Vec3F{Y: 5}
	var seen hook.Event
	f.bus.Register(hook.Func{
		Name:  "straight-up",
		Types: []hook.EventType{hook.EventPreLaunch},
		Fn: func(_ context.Context, e *hook.Event, r *hook.Result) error {
			seen = *e
			r.ReplaceVelocity(replaced)
			return nil
		},
	})
	a := f.player("alex")
	o := f.pig("pig-1")

	require.NoError(t, f.capture(a, o))
	require.NoError(t, f.m.StartCharging(a.ID()))
	f.global.Advance(4)

	out := f.resolve(t, a)
	require.Equal(t, OutcomeLaunch, out.Kind)
	assert.Equal(t, replaced, out.Velocity)
	assert.Equal(t, 20, seen.Percent)
	assert.Equal(t, "pig", seen.Kind)

	f.global.Tick()
	assert.Equal(t, replaced, o.Velocity())
}

func TestCaptureVetoed(t *testing.T) {
	f := newFixture(t)
	f.bus.Register(hook.Func{
		Name:  "deny",
		Types: []hook.EventType{hook.EventPreCapture},
		Fn: func(context.Context, *hook.Event, *hook.Result) error {
			return errors.New("plugin failure")
		},
	})
	a := f.player("alex")
	o := f.pig("pig-1")

	assert.ErrorIs(t, f.capture(a, o), ErrVetoed)
	assert.Equal(t, MsgCaptureVetoed, f.notes.last().key)
	assert.False(t, o.Riding())
	assert.False(t, f.tags.IsMounted(o.ID()))
	assert.Zero(t, f.reg.Len())
}

func TestAsyncPlacement(t *testing.T) {
	t.Run("completes after flush", func(t *testing.T) {
		f := newFixture(t)
		f.world.SetAsyncPlacement(true)
		a := f.player("alex")
		o := f.pig("pig-1")

		ch := f.m.Capture(context.Background(), a, o)
		select {
		case err := <-ch:
			t.Fatalf("capture completed before placement: %v", err)
		default:
		}
		assert.False(t, f.m.IsHolding(a.ID()))

		assert.Equal(t, 1, f.world.FlushPlacements())
		require.NoError(t, <-ch)
		assert.True(t, f.m.IsHolding(a.ID()))
	})

	t.Run("object removed meanwhile", func(t *testing.T) {
		f := newFixture(t)
		f.world.SetAsyncPlacement(true)
		a := f.player("alex")
		o := f.pig("pig-1")

		ch := f.m.Capture(context.Background(), a, o)
		o.Remove()
		f.world.FlushPlacements()

		assert.ErrorIs(t, <-ch, ErrInvalidTarget)
		assert.Zero(t, f.reg.Len())
		assert.False(t, f.tags.IsMounted(o.ID()))
	})

	t.Run("actor left meanwhile", func(t *testing.T) {
		f := newFixture(t)
		f.world.SetAsyncPlacement(true)
		a := f.player("alex")
		o := f.pig("pig-1")

		ch := f.m.Capture(context.Background(), a, o)
		a.Disconnect()
		f.world.FlushPlacements()

		assert.ErrorIs(t, <-ch, ErrInvalidTarget)
		assert.Zero(t, f.reg.Len())
		assert.False(t, o.Riding())
	})

	t.Run("another actor won the race", func(t *testing.T) {
		f := newFixture(t)
		f.world.SetAsyncPlacement(true)
		a := f.player("alex")
		b := f.player("blair")
		o := f.pig("pig-1")

		chA := f.m.Capture(context.Background(), a, o)
		chB := f.m.Capture(context.Background(), b, o)
		f.world.FlushPlacements()

		require.NoError(t, <-chA)
		assert.ErrorIs(t, <-chB, ErrAlreadyCaptured)
		owner, ok := f.reg.Owner(o.ID())
		require.True(t, ok)
		assert.Equal(t, a.ID(), owner)
	})

	t.Run("panicking positioner", func(t *testing.T) {
		f := newFixture(t)
		f.m.place = host.PositionerFunc(func(host.Actor, host.Object, func(error)) { panic("region gone") })
		a := f.player("alex")
		o := f.pig("pig-1")

		assert.ErrorIs(t, f.capture(a, o), ErrInvalidTarget)
		assert.Zero(t, f.reg.Len())
	})
}

func TestAuthorizationRefusals(t *testing.T) {
	tests := []struct {
		name    string
		grant   []string
		kind    string
		wantErr error
		wantMsg string
	}{
		{name: "no nodes", kind: "pig", wantErr: ErrNotPermitted, wantMsg: MsgNoPermission},
		{name: "base node only", grant: []string{auth.NodeUse}, kind: "pig", wantErr: ErrNotPermitted, wantMsg: MsgNoPermission},
		{name: "kind node", grant: []string{auth.NodeUse, auth.NodeUseKind + "pig"}, kind: "pig"},
		{name: "other kind node", grant: []string{auth.NodeUse, auth.NodeUseKind + "cow"}, kind: "pig", wantErr: ErrNotPermitted, wantMsg: MsgNoPermission},
		{name: "kind not allowed", grant: []string{auth.NodeUse, auth.NodeUseAll}, kind: "zombie", wantErr: ErrNotPermitted, wantMsg: MsgKindNotAllowed},
		{name: "admin bypasses kind list", grant: []string{auth.NodeUse, auth.NodeUseAll, auth.NodeAdmin}, kind: "zombie"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			a := f.world.SpawnActor("alex", "overworld")
			a.Grant(tt.grant...)
			o := f.world.SpawnObject(tt.kind, "target", "overworld")

			err := f.capture(a, o)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.True(t, o.Riding())
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantMsg, f.notes.last().key)
			assert.False(t, o.Riding())
			assert.Zero(t, f.reg.Len())
		})
	}
}

func TestOwnerTagRestrictsCapture(t *testing.T) {
	f := newFixture(t)
	a := f.player("alex")
	b := f.player("blair")
	o := f.pig("pig-1")
	f.tags.SetOwner(o.ID(), b.ID())

	assert.ErrorIs(t, f.capture(a, o), ErrNotPermitted)
	assert.Equal(t, MsgOwnedByOther, f.notes.last().key)

	a.Grant(auth.NodeAdmin)
	require.NoError(t, f.capture(a, o))
	require.NotNil(t, f.m.ReleaseAsDrop(a.ID()).Object)

	require.NoError(t, f.capture(b, o))
}

func TestPreconditionOrder(t *testing.T) {
	f := newFixture(t)
	var hookCalls int
	f.bus.Register(hook.Func{
		Name:  "count",
		Types: []hook.EventType{hook.EventPreCapture},
		Fn: func(context.Context, *hook.Event, *hook.Result) error {
			hookCalls++
			return nil
		},
	})
	a := f.player("alex")
	b := f.world.SpawnActor("blair", "overworld")
	o1 := f.pig("pig-1")
	o2 := f.world.SpawnObject("zombie", "zombie-1", "overworld")

	require.NoError(t, f.capture(a, o1))
	assert.Equal(t, 1, hookCalls)

	// Already holding wins over a kind refusal
	assert.ErrorIs(t, f.capture(a, o2), ErrAlreadyCapturing)
	// Already captured wins over missing permissions
	assert.ErrorIs(t, f.capture(b, o1), ErrAlreadyCaptured)
	// Permission refusal never reaches the hook
	assert.ErrorIs(t, f.capture(b, f.pig("pig-2")), ErrNotPermitted)
	assert.Equal(t, 1, hookCalls)
}

func TestStartCharging(t *testing.T) {
	t.Run("not holding", func(t *testing.T) {
		f := newFixture(t)
		a := f.player("alex")
		assert.ErrorIs(t, f.m.StartCharging(a.ID()), ErrNotHolding)
		assert.ErrorIs(t, f.m.StartCharging(uuid.New()), ErrNotHolding)
	})

	t.Run("restart replaces session", func(t *testing.T) {
		f := newFixture(t)
		a := f.player("alex")
		require.NoError(t, f.capture(a, f.pig("pig-1")))

		require.NoError(t, f.m.StartCharging(a.ID()))
		f.global.Advance(5)
		p, _ := f.m.Charging(a.ID())
		assert.Equal(t, 25, p.Percent)

		require.NoError(t, f.m.StartCharging(a.ID()))
		p, ok := f.m.Charging(a.ID())
		require.True(t, ok)
		assert.Zero(t, p.Percent)
		assert.Equal(t, 1, f.global.Pending())
	})

	t.Run("scheduling unavailable drops", func(t *testing.T) {
		f := newFixture(t)
		f.global.SetAvailable(false)
		a := f.player("alex")
		o := f.pig("pig-1")
		require.NoError(t, f.capture(a, o))

		err := f.m.StartCharging(a.ID())
		assert.ErrorIs(t, err, clock.ErrSchedulingUnavailable)
		assert.False(t, f.m.IsHolding(a.ID()))
		assert.False(t, o.Riding())
		assert.Contains(t, f.notes.keys(), MsgChargeFailed)
	})
}

func TestLaunchWithoutDeferral(t *testing.T) {
	f := newFixture(t)
	a := f.player("alex")
	o := f.pig("pig-1")
	require.NoError(t, f.capture(a, o))
	require.NoError(t, f.m.StartCharging(a.ID()))
	f.global.Advance(10)

	f.global.SetAvailable(false)
	out := f.resolve(t, a)
	require.Equal(t, OutcomeLaunch, out.Kind)
	assert.Equal(t, out.Velocity, o.Velocity(), "applied at once when deferral fails")
}

func TestResolveWithoutSession(t *testing.T) {
	f := newFixture(t)
	a := f.player("alex")
	o := f.pig("pig-1")
	require.NoError(t, f.capture(a, o))

	out := f.resolve(t, a)
	assert.Equal(t, OutcomeNone, out.Kind)
	assert.True(t, f.m.IsHolding(a.ID()))
}

func TestReleaseAsDrop(t *testing.T) {
	t.Run("nothing held", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, OutcomeNone, f.m.ReleaseAsDrop(uuid.New()).Kind)
	})

	t.Run("offline actor", func(t *testing.T) {
		f := newFixture(t)
		a := f.player("alex")
		o := f.pig("pig-1")
		require.NoError(t, f.capture(a, o))
		require.NoError(t, f.m.StartCharging(a.ID()))

		a.Disconnect()
		out := f.m.ReleaseAsDrop(a.ID())
		assert.Equal(t, OutcomeDrop, out.Kind)
		assert.False(t, o.Riding())
		assert.Zero(t, f.global.Pending())
	})

	t.Run("object already gone", func(t *testing.T) {
		f := newFixture(t)
		a := f.player("alex")
		o := f.pig("pig-1")
		require.NoError(t, f.capture(a, o))

		o.Remove()
		out := f.m.ReleaseAsDrop(a.ID())
		assert.Equal(t, OutcomeCleared, out.Kind)
		assert.Zero(t, f.reg.Len())
		assert.NotContains(t, f.notes.keys(), MsgPutdown)
	})
}

func TestChargeGuardStopsOffline(t *testing.T) {
	f := newFixture(t)
	a := f.player("alex")
	o := f.pig("pig-1")
	require.NoError(t, f.capture(a, o))
	require.NoError(t, f.m.StartCharging(a.ID()))
	f.global.Advance(3)

	a.Disconnect()
	f.global.Tick()
	_, charging := f.m.Charging(a.ID())
	assert.False(t, charging)
	assert.Zero(t, f.global.Pending())

	out := f.resolve(t, a)
	assert.Equal(t, OutcomeDrop, out.Kind)
	assert.False(t, o.Riding())
}

func TestHookNotifications(t *testing.T) {
	f := newFixture(t)
	var (
		mu   sync.Mutex
		seen []hook.EventType
	)
	f.bus.Register(hook.Func{
		Name:  "audit",
		Types: []hook.EventType{hook.EventCaptured, hook.EventDropped, hook.EventLaunched},
		Fn: func(_ context.Context, e *hook.Event, _ *hook.Result) error {
			mu.Lock()
			seen = append(seen, e.Type)
			mu.Unlock()
			return nil
		},
	})
	a := f.player("alex")
	o := f.pig("pig-1")

	require.NoError(t, f.capture(a, o))
	f.m.ReleaseAsDrop(a.ID())
	require.NoError(t, f.capture(a, o))
	require.NoError(t, f.m.StartCharging(a.ID()))
	f.global.Advance(2)
	f.resolve(t, a)

	assert.Equal(t, []hook.EventType{
		hook.EventCaptured, hook.EventDropped, hook.EventCaptured, hook.EventLaunched,
	}, seen)
}

func TestShutdown(t *testing.T) {
	f := newFixture(t)
	a := f.player("alex")
	b := f.player("blair")
	o1 := f.pig("pig-1")
	o2 := f.pig("pig-2")
	require.NoError(t, f.capture(a, o1))
	require.NoError(t, f.capture(b, o2))
	require.NoError(t, f.m.StartCharging(a.ID()))

	assert.Equal(t, 2, f.m.Shutdown())
	assert.False(t, o1.Riding())
	assert.False(t, o2.Riding())
	assert.False(t, f.tags.IsMounted(o1.ID()))
	assert.False(t, f.tags.IsMounted(o2.ID()))
	assert.Zero(t, f.global.Pending())
	assert.Zero(t, f.m.Shutdown())
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/mob-launch/auth"
	"github.com/lixenwraith/mob-launch/config"
	"github.com/lixenwraith/mob-launch/engine"
	"github.com/lixenwraith/mob-launch/host/sim"
	"github.com/lixenwraith/mob-launch/lang"
	"github.com/lixenwraith/mob-launch/listener"
	"github.com/lixenwraith/mob-launch/logging"
	"github.com/lixenwraith/mob-launch/vmath"
)

// simOptions script one capture, charge and release
type simOptions struct {
	Kind    string
	Ticks   int
	Yaw     float64
	Pitch   float64
	Regions bool
	Async   bool
	Admin   bool
}

type simResult struct {
	Outcome  string           `json:"outcome"`
	Percent  int              `json:"percent"`
	Velocity vmath.Vec3F      `json:"velocity"`
	Applied  vmath.Vec3F      `json:"applied"`
	Vetoed   bool             `json:"vetoed"`
	Messages []string         `json:"messages"`
	Stats    map[string]int64 `json:"stats"`
}

var simOpts simOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one scripted capture, charge and release headlessly",
	Long: `Spawns an actor and a mob in an in-memory world, captures the mob,
charges for the given number of ticks and releases. The outcome, the launch
vector and the messages the actor received are printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := cliLogger(logging.ProfileRuntime, cmd.ErrOrStderr())
		store, _, err := loadStore(logger)
		if err != nil {
			return err
		}
		res, err := runSimulation(cmd.Context(), store, simOpts, logger)
		if err != nil {
			return err
		}
		return printSimulation(cmd.OutOrStdout(), res)
	},
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simOpts.Kind, "kind", "pig", "Mob kind to capture")
	f.IntVar(&simOpts.Ticks, "ticks", 20, "Ticks to charge before releasing")
	f.Float64Var(&simOpts.Yaw, "yaw", 0, "Actor yaw in degrees")
	f.Float64Var(&simOpts.Pitch, "pitch", -30, "Actor pitch in degrees, negative looks up")
	f.BoolVar(&simOpts.Regions, "regions", true, "Schedule on per-world region clocks")
	f.BoolVar(&simOpts.Async, "async", false, "Complete repositioning on a later tick")
	f.BoolVar(&simOpts.Admin, "admin", false, "Grant the admin node")
}

func runSimulation(ctx context.Context, store *config.Store, opts simOptions, logger zerolog.Logger) (*simResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	w := sim.NewWorld()
	w.SetAsyncPlacement(opts.Async)

	eopts := engine.Options{Directory: w, Positioner: w, Meta: meta(), Logger: logger}
	if opts.Regions {
		eopts.Regions = engine.RegionsFrom(w.RegionOf)
	}
	e, err := engine.New(store, eopts)
	if err != nil {
		return nil, err
	}
	defer e.Close()

	actor := w.SpawnActor("steve", "overworld")
	actor.Grant(auth.NodeUse, auth.NodeUseAll)
	if opts.Admin {
		actor.Grant(auth.NodeAdmin)
	}
	actor.Look(opts.Yaw, opts.Pitch)
	mob := w.SpawnObject(opts.Kind, opts.Kind+"-1", "overworld")

	e.Handle(ctx, &listener.Event{Type: listener.EventInteract, Actor: actor, Object: mob, Sneaking: true})
	if opts.Async {
		w.FlushPlacements()
	}

	res := &simResult{}
	if !e.Launcher.IsHolding(actor.ID()) {
		res.Outcome = "refused"
		return finish(res, actor, e), nil
	}

	e.Handle(ctx, &listener.Event{Type: listener.EventToggleSneak, Actor: actor, Sneaking: true})
	e.Advance(max(opts.Ticks, 0))

	out, err := e.Launcher.StopChargingAndResolve(ctx, actor.ID())
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	e.Tick()

	res.Outcome = out.Kind.String()
	res.Percent = out.Percent
	res.Velocity = out.Velocity
	res.Applied = mob.Velocity()
	res.Vetoed = out.Vetoed
	return finish(res, actor, e), nil
}

func finish(res *simResult, actor *sim.Actor, e *engine.Engine) *simResult {
	for _, m := range actor.Messages() {
		res.Messages = append(res.Messages, lang.Strip(m))
	}
	res.Stats = e.Stats.Snapshot()
	return res
}

func printSimulation(w io.Writer, res *simResult) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(w, "outcome:  %s\n", res.Outcome)
	if res.Outcome == "launch" || res.Outcome == "drop" {
		fmt.Fprintf(w, "percent:  %d\n", res.Percent)
	}
	if res.Outcome == "launch" {
		fmt.Fprintf(w, "velocity: %s (|v|=%.3f)\n", res.Velocity, vmath.V3FMag(res.Velocity))
	}
	if res.Vetoed {
		fmt.Fprintln(w, "vetoed:   true")
	}
	for _, m := range res.Messages {
		fmt.Fprintf(w, "message:  %s\n", m)
	}
	for _, k := range slices.Sorted(maps.Keys(res.Stats)) {
		fmt.Fprintf(w, "stat:     %s=%d\n", k, res.Stats[k])
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/mob-launch/auth"
	"github.com/lixenwraith/mob-launch/engine"
	"github.com/lixenwraith/mob-launch/host/sim"
	"github.com/lixenwraith/mob-launch/listener"
	"github.com/lixenwraith/mob-launch/logging"
	"github.com/lixenwraith/mob-launch/render"
)

const (
	frameInterval = 33 * time.Millisecond
	messageLines  = 8
	lookStep      = 10.0
)

var (
	sandboxMute    bool
	sandboxLogPath string
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Interactive terminal playground on a simulated world",
	Long: `Keys:
  up/down   select a mob          e  sneak-interact (capture)
  space     hold/release sneak    n  name-tag the mob
  left/right, w/s  look around    x  remove the selected mob
  t         switch world          r  reload configuration
  q, esc    quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var logOut io.Writer = io.Discard
		if sandboxLogPath != "" {
			f, err := os.OpenFile(sandboxLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log: %w", err)
			}
			defer f.Close()
			logOut = f
		}
		logger := cliLogger(logging.ProfileSandbox, logOut)

		store, _, err := loadStore(logger)
		if err != nil {
			return err
		}

		w := sim.NewWorld()
		e, err := engine.New(store, engine.Options{
			Directory:  w,
			Positioner: w,
			Regions:    engine.RegionsFrom(w.RegionOf),
			Meta:       meta(),
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		defer e.Close()

		if !sandboxMute {
			if err := e.Sounds.Initialize(); err != nil {
				logger.Warn().Err(err).Msg("audio unavailable, continuing muted")
			}
		}

		screen, err := tcell.NewScreen()
		if err != nil {
			return err
		}
		if err := screen.Init(); err != nil {
			return err
		}
		defer screen.Fini()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sb := newSandbox(screen, w, e)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return e.Run(gctx) })
		g.Go(func() error {
			defer cancel()
			sb.run(gctx)
			return nil
		})
		return g.Wait()
	},
}

func init() {
	sandboxCmd.Flags().BoolVar(&sandboxMute, "mute", false, "Disable audio")
	sandboxCmd.Flags().StringVar(&sandboxLogPath, "log", "", "Write logs to this file")
}

type sandbox struct {
	screen tcell.Screen
	world  *sim.World
	eng    *engine.Engine
	player *sim.Actor

	selected int
	sneaking bool
	status   string
}

func newSandbox(screen tcell.Screen, w *sim.World, e *engine.Engine) *sandbox {
	player := w.SpawnActor("you", "overworld")
	player.Grant(auth.NodeUse, auth.NodeUseAll)
	w.SpawnActor("blair", "overworld")

	for i, kind := range []string{"pig", "pig", "cow", "sheep", "zombie"} {
		w.SpawnObject(kind, fmt.Sprintf("%s-%d", kind, i+1), "overworld")
	}
	w.SpawnObject("pig", "nether-pig", "nether")

	return &sandbox{screen: screen, world: w, eng: e, player: player}
}

func (s *sandbox) run(ctx context.Context) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := s.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if !s.handleInput(ctx, ev) {
				return
			}
		case <-ticker.C:
			s.draw()
		}
	}
}

// visibleMobs lists valid objects in the player's world
func (s *sandbox) visibleMobs() []*sim.Object {
	world := s.player.World()
	var out []*sim.Object
	for _, o := range s.world.Objects() {
		if o.World() == world {
			out = append(out, o)
		}
	}
	return out
}

func (s *sandbox) target() *sim.Object {
	mobs := s.visibleMobs()
	if len(mobs) == 0 {
		return nil
	}
	s.selected = min(max(s.selected, 0), len(mobs)-1)
	return mobs[s.selected]
}

func (s *sandbox) handleInput(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			s.selected--
		case tcell.KeyDown:
			s.selected++
		case tcell.KeyLeft:
			s.look(-lookStep, 0)
		case tcell.KeyRight:
			s.look(lookStep, 0)
		case tcell.KeyRune:
			return s.handleRune(ctx, ev.Rune())
		}
	case *tcell.EventResize:
		s.screen.Sync()
	}
	return true
}

func (s *sandbox) handleRune(ctx context.Context, r rune) bool {
	switch r {
	case 'q':
		return false
	case 'w':
		s.look(0, -lookStep)
	case 's':
		s.look(0, lookStep)
	case 'e':
		if o := s.target(); o != nil {
			v := s.eng.Handle(ctx, &listener.Event{Type: listener.EventInteract, Actor: s.player, Object: o, Sneaking: true})
			s.status = fmt.Sprintf("interact %s: cancelled=%t", o.Name(), v.Cancel)
		}
	case 'n':
		if o := s.target(); o != nil {
			tag := listener.Item{Kind: listener.ItemNameTag, DisplayName: "Sandbox " + o.Name()}
			v := s.eng.Handle(ctx, &listener.Event{Type: listener.EventInteract, Actor: s.player, Object: o, MainHand: tag})
			s.status = fmt.Sprintf("name tag %s: consumed=%t", o.Name(), v.ConsumeItem)
		}
	case ' ':
		s.sneaking = !s.sneaking
		s.eng.Handle(ctx, &listener.Event{Type: listener.EventToggleSneak, Actor: s.player, Sneaking: s.sneaking})
	case 'x':
		if o := s.target(); o != nil {
			o.Remove()
			s.status = "removed " + o.Name()
		}
	case 't':
		to := "nether"
		if s.player.World() == "nether" {
			to = "overworld"
		}
		from := s.player.Teleport(to)
		s.eng.Handle(ctx, &listener.Event{Type: listener.EventTeleport, Actor: s.player, FromWorld: from, ToWorld: to})
		s.selected = 0
		s.status = "teleported to " + to
	case 'r':
		if _, err := s.eng.Config.Reload(); err != nil {
			s.status = "reload failed: " + err.Error()
		} else {
			s.status = "configuration reloaded"
		}
	}
	return true
}

func (s *sandbox) look(dYaw, dPitch float64) {
	yaw, pitch := s.player.Angles()
	s.player.Look(yaw+dYaw, min(max(pitch+dPitch, -90), 90))
}

func (s *sandbox) draw() {
	s.screen.Clear()
	width, height := s.screen.Size()
	base := tcell.StyleDefault.Background(render.RgbBackground).Foreground(render.RgbText)
	s.screen.Fill(' ', base)

	row := 0
	line := func(text string) {
		if row < height {
			render.DrawText(s.screen, 1, row, width-2, text, base)
		}
		row++
	}

	yaw, pitch := s.player.Angles()
	line(fmt.Sprintf("&6MobLaunch sandbox &7| world &f%s &7| yaw %.0f pitch %.0f | sneaking %t", s.player.World(), yaw, pitch, s.sneaking))
	line("&7facing " + s.player.Facing().String())
	row++

	mobs := s.visibleMobs()
	target := s.target()
	for _, o := range mobs {
		marker := "  "
		if target != nil && o.ID() == target.ID() {
			marker = "&e> "
		}
		state := ""
		if o.Riding() {
			state += " &a[carried]"
		}
		if owner, ok := s.eng.Tags.Owner(o.ID()); ok {
			state += " &d[owner " + owner.String()[:8] + "]"
		}
		if v := o.Velocity(); v.X != 0 || v.Y != 0 || v.Z != 0 {
			state += " &b" + v.String()
		}
		line(fmt.Sprintf("%s&f%-12s &7%-7s%s", marker, o.Name(), o.Kind(), state))
	}
	row++

	if bar := s.player.ActionBar(); bar != "" {
		line(bar)
	}
	if s.status != "" {
		line("&7" + s.status)
	}
	row++

	msgs := s.player.Messages()
	for _, m := range msgs[max(len(msgs)-messageLines, 0):] {
		line(m)
	}

	stats := s.eng.Stats.Snapshot()
	footer := fmt.Sprintf("&8captures %d  launches %d  drops %d  vetoes %d  heals %d  ticks %d",
		stats["launcher.captures"], stats["launcher.launches"], stats["launcher.drops"],
		stats["launcher.vetoes"], stats["ownership.self_heals"], stats["clock.region_ticks"])
	render.DrawText(s.screen, 1, height-1, width-2, footer, base)

	s.screen.Show()
}

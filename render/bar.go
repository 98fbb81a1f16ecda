package render

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lixenwraith/mob-launch/charge"
	"github.com/lixenwraith/mob-launch/config"
	"github.com/lixenwraith/mob-launch/host"
)

const emptyColor = "&8"

// PhaseColor picks the configured colour code for a phase
func PhaseColor(phase charge.Phase, v config.Visuals) string {
	switch phase {
	case charge.PhaseRising:
		return v.ColorCharging
	case charge.PhaseHoldAtMax:
		return v.ColorFull
	default:
		return v.ColorDecreasing
	}
}

// FormatBar renders progress as a colour-coded action bar line
func FormatBar(p charge.Progress, v config.Visuals) string {
	length := max(v.BarLength, 1)
	filled := min(max((p.Percent*length+charge.MaxPercent/2)/charge.MaxPercent, 0), length)

	var b strings.Builder
	b.WriteString(PhaseColor(p.Phase, v))
	b.WriteString(strings.Repeat(v.BarChar, filled))
	b.WriteString(emptyColor)
	b.WriteString(strings.Repeat(v.BarChar, length-filled))
	b.WriteString(" &f")
	b.WriteString(strconv.Itoa(p.Percent))
	b.WriteByte('%')
	if p.ReadyToDrop {
		b.WriteString(" &7(drop)")
	}
	return b.String()
}

// ActionBarSink shows the charge bar on the actor's action bar
type ActionBarSink struct {
	Dir    host.Directory
	Config *config.Store
}

func (s *ActionBarSink) Progress(actor uuid.UUID, p charge.Progress) {
	v := s.Config.Get().Visuals
	if !v.EnableActionBar {
		return
	}
	a, ok := s.Dir.Actor(actor)
	if !ok {
		return
	}
	a.SendActionBar(FormatBar(p, v))
}

func (s *ActionBarSink) Signal(uuid.UUID, charge.Signal, float64) {}

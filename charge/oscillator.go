// Package charge implements the charge oscillator: a free-running four-phase
// state machine sweeping a percentage between 0 and 100 with pauses at both
// extremes, and the per-actor session binding it to a clock schedule.
package charge

const (
	MinPercent = 0
	MaxPercent = 100
)

// Phase is the oscillator state
type Phase uint8

const (
	PhaseRising Phase = iota
	PhaseHoldAtMax
	PhaseFalling
	PhaseHoldAtMin
)

func (p Phase) String() string {
	switch p {
	case PhaseRising:
		return "rising"
	case PhaseHoldAtMax:
		return "hold-at-max"
	case PhaseFalling:
		return "falling"
	case PhaseHoldAtMin:
		return "hold-at-min"
	default:
		return "unknown"
	}
}

// Signal is a discrete display/audio cue
type Signal uint8

const (
	SignalNone Signal = iota
	SignalCharging
	SignalDecreasing
	SignalFullyCharged
	SignalFullyDepleted
)

func (s Signal) String() string {
	switch s {
	case SignalCharging:
		return "charging"
	case SignalDecreasing:
		return "decreasing"
	case SignalFullyCharged:
		return "fully-charged"
	case SignalFullyDepleted:
		return "fully-depleted"
	default:
		return "none"
	}
}

// Params configures the oscillator
type Params struct {
	// Step is the percentage moved per tick
	Step int
	// HoldAtMax and HoldAtMin are pause lengths in ticks
	HoldAtMax int
	HoldAtMin int
	// SignalEvery is the percentage cadence of charging/decreasing cues, 0 means 2*Step
	SignalEvery int
}

// Normalized clamps misconfigured values into workable ranges
func (p Params) Normalized() Params {
	p.Step = min(max(p.Step, 1), MaxPercent)
	p.HoldAtMax = max(p.HoldAtMax, 0)
	p.HoldAtMin = max(p.HoldAtMin, 0)
	if p.SignalEvery <= 0 {
		p.SignalEvery = 2 * p.Step
	}
	return p
}

// State is the mutable oscillator record
type State struct {
	Percent    int
	Phase      Phase
	PauseTicks int
}

// Progress is the per-tick display view
type Progress struct {
	Percent int
	Phase   Phase
	// ReadyToDrop marks the hold-at-min pause, where releasing drops instead of launching
	ReadyToDrop bool
}

// Ratio returns Percent in [0,1]
func (p Progress) Ratio() float64 {
	return float64(p.Percent) / MaxPercent
}

// Emission is the cue produced by a tick, Signal is SignalNone when silent
type Emission struct {
	Signal Signal
	Param  float64
}

// Oscillator is not safe for concurrent use; Session serializes access
type Oscillator struct {
	params Params
	state  State
}

// NewOscillator starts at 0% rising
func NewOscillator(p Params) *Oscillator {
	return &Oscillator{
		params: p.Normalized(),
		state:  State{Percent: MinPercent, Phase: PhaseRising},
	}
}

func (o *Oscillator) State() State { return o.state }

func (o *Oscillator) Params() Params { return o.params }

// Progress returns the current display view without advancing
func (o *Oscillator) Progress() Progress {
	return Progress{
		Percent:     o.state.Percent,
		Phase:       o.state.Phase,
		ReadyToDrop: o.state.Phase == PhaseHoldAtMin,
	}
}

// Tick advances one step and returns the resulting view and cue
func (o *Oscillator) Tick() (Progress, Emission) {
	var em Emission
	s := &o.state

	switch s.Phase {
	case PhaseRising:
		s.Percent += o.params.Step
		if s.Percent >= MaxPercent {
			s.Percent = MaxPercent
			s.Phase = PhaseHoldAtMax
			s.PauseTicks = 0
			em = Emission{Signal: SignalFullyCharged, Param: ChargingPitch(MaxPercent)}
		} else if s.Percent%o.params.SignalEvery == 0 {
			em = Emission{Signal: SignalCharging, Param: ChargingPitch(s.Percent)}
		}

	case PhaseHoldAtMax:
		s.PauseTicks++
		if s.PauseTicks >= o.params.HoldAtMax {
			s.Phase = PhaseFalling
			s.PauseTicks = 0
		}

	case PhaseFalling:
		s.Percent -= o.params.Step
		if s.Percent <= MinPercent {
			s.Percent = MinPercent
			s.Phase = PhaseHoldAtMin
			s.PauseTicks = 0
			em = Emission{Signal: SignalFullyDepleted, Param: DecreasingPitch(MinPercent)}
		} else if s.Percent%o.params.SignalEvery == 0 {
			em = Emission{Signal: SignalDecreasing, Param: DecreasingPitch(s.Percent)}
		}

	case PhaseHoldAtMin:
		s.PauseTicks++
		if s.PauseTicks >= o.params.HoldAtMin {
			s.Phase = PhaseRising
			s.PauseTicks = 0
		}
	}

	return o.Progress(), em
}

// ChargingPitch rises from 0.5 at 0% to 2.0 at 100%
func ChargingPitch(percent int) float64 {
	return 0.5 + 1.5*float64(percent)/MaxPercent
}

// DecreasingPitch falls from 2.0 at 0% to 0.5 at 100%
func DecreasingPitch(percent int) float64 {
	return 2.0 - 1.5*float64(percent)/MaxPercent
}

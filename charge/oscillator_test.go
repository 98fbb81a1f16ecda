package charge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultParams = Params{Step: 5, HoldAtMax: 10, HoldAtMin: 15}

func TestOscillatorStartsRisingAtZero(t *testing.T) {
	o := NewOscillator(defaultParams)
	assert.Equal(t, State{Percent: 0, Phase: PhaseRising}, o.State())
	assert.False(t, o.Progress().ReadyToDrop)
}

func TestOscillatorPhaseCycle(t *testing.T) {
	o := NewOscillator(defaultParams)

	type change struct {
		tick  int
		phase Phase
	}
	var changes []change
	prev := o.State().Phase
	for tick := 1; tick <= 130; tick++ {
		p, _ := o.Tick()
		if p.Phase != prev {
			changes = append(changes, change{tick, p.Phase})
			prev = p.Phase
		}
	}

	want := []change{
		{20, PhaseHoldAtMax},
		{30, PhaseFalling},
		{50, PhaseHoldAtMin},
		{65, PhaseRising},
		{85, PhaseHoldAtMax},
		{95, PhaseFalling},
		{115, PhaseHoldAtMin},
		{130, PhaseRising},
	}
	assert.Equal(t, want, changes)
}

func TestOscillatorMonotonicWithinPhases(t *testing.T) {
	o := NewOscillator(Params{Step: 7, HoldAtMax: 3, HoldAtMin: 4})
	last := o.State()

	for range 200 {
		p, _ := o.Tick()
		cur := o.State()
		require.GreaterOrEqual(t, p.Percent, MinPercent)
		require.LessOrEqual(t, p.Percent, MaxPercent)

		if cur.Phase == last.Phase {
			switch cur.Phase {
			case PhaseRising:
				assert.Greater(t, cur.Percent, last.Percent)
			case PhaseFalling:
				assert.Less(t, cur.Percent, last.Percent)
			case PhaseHoldAtMax:
				assert.Equal(t, MaxPercent, cur.Percent)
			case PhaseHoldAtMin:
				assert.Equal(t, MinPercent, cur.Percent)
			}
		}
		last = cur
	}
}

func TestOscillatorClampsUnevenStep(t *testing.T) {
	o := NewOscillator(Params{Step: 30, HoldAtMax: 1, HoldAtMin: 1})

	var seen []int
	for range 10 {
		p, _ := o.Tick()
		seen = append(seen, p.Percent)
	}
	// 30, 60, 90, clamp 100, hold, 70, 40, 10, clamp 0, hold
	assert.Equal(t, []int{30, 60, 90, 100, 100, 70, 40, 10, 0, 0}, seen)
}

func TestOscillatorSignals(t *testing.T) {
	o := NewOscillator(defaultParams)

	counts := map[Signal]int{}
	var chargingPitches, decreasingPitches []float64
	for range 65 {
		_, em := o.Tick()
		counts[em.Signal]++
		switch em.Signal {
		case SignalCharging:
			chargingPitches = append(chargingPitches, em.Param)
		case SignalDecreasing:
			decreasingPitches = append(decreasingPitches, em.Param)
		}
	}

	assert.Equal(t, 9, counts[SignalCharging], "every 10% from 10 to 90")
	assert.Equal(t, 1, counts[SignalFullyCharged])
	assert.Equal(t, 9, counts[SignalDecreasing])
	assert.Equal(t, 1, counts[SignalFullyDepleted])

	for i := 1; i < len(chargingPitches); i++ {
		assert.Greater(t, chargingPitches[i], chargingPitches[i-1])
	}
	// Percentage falls while decreasing, so the inverse pitch rises
	for i := 1; i < len(decreasingPitches); i++ {
		assert.Greater(t, decreasingPitches[i], decreasingPitches[i-1])
	}
}

func TestOscillatorReadyToDropOnlyAtMin(t *testing.T) {
	o := NewOscillator(Params{Step: 50, HoldAtMax: 1, HoldAtMin: 2})
	// 50 rise, 100 max, hold, 50 fall, 0 min, hold, hold->rising
	var ready []bool
	for range 7 {
		p, _ := o.Tick()
		ready = append(ready, p.ReadyToDrop)
	}
	assert.Equal(t, []bool{false, false, false, false, true, true, false}, ready)
}

func TestParamsNormalized(t *testing.T) {
	tests := []struct {
		name string
		in   Params
		want Params
	}{
		{"defaults pass", Params{Step: 5, HoldAtMax: 10, HoldAtMin: 15}, Params{Step: 5, HoldAtMax: 10, HoldAtMin: 15, SignalEvery: 10}},
		{"zero step", Params{Step: 0}, Params{Step: 1, SignalEvery: 2}},
		{"huge step", Params{Step: 500}, Params{Step: 100, SignalEvery: 200}},
		{"negative holds", Params{Step: 5, HoldAtMax: -3, HoldAtMin: -1, SignalEvery: 25}, Params{Step: 5, SignalEvery: 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalized())
		})
	}
}

func TestZeroHoldSkipsPause(t *testing.T) {
	o := NewOscillator(Params{Step: 100})
	p, _ := o.Tick()
	assert.Equal(t, PhaseHoldAtMax, p.Phase)
	p, _ = o.Tick()
	assert.Equal(t, PhaseFalling, p.Phase)
}

func TestPhaseAndSignalNames(t *testing.T) {
	assert.Equal(t, "hold-at-min", PhaseHoldAtMin.String())
	assert.Equal(t, "fully-charged", SignalFullyCharged.String())
	assert.Equal(t, "none", SignalNone.String())
}

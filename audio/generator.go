package audio

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/gopxl/beep"
)

// Waveform types
const (
	waveSine = iota
	waveSquare
	waveSaw
	waveNoise
)

// voice is a synthesized cue shape; frequency is scaled by the requested pitch
type voice struct {
	wave     int
	freq     float64
	duration time.Duration
	attack   float64
	release  float64
	// sweep multiplies the frequency linearly over the cue, 1 keeps it flat
	sweep float64
}

// voices maps configured sound names to cue shapes
var voices = map[string]voice{
	"pling":  {wave: waveSine, freq: 880, duration: 90 * time.Millisecond, attack: 0.003, release: 0.06, sweep: 1},
	"chime":  {wave: waveSine, freq: 1320, duration: 350 * time.Millisecond, attack: 0.005, release: 0.3, sweep: 1},
	"bass":   {wave: waveSquare, freq: 110, duration: 250 * time.Millisecond, attack: 0.01, release: 0.2, sweep: 1},
	"pop":    {wave: waveSine, freq: 520, duration: 70 * time.Millisecond, attack: 0.002, release: 0.05, sweep: 0.5},
	"whoosh": {wave: waveNoise, freq: 0, duration: 400 * time.Millisecond, attack: 0.05, release: 0.3, sweep: 1},
	"buzz":   {wave: waveSaw, freq: 120, duration: 150 * time.Millisecond, attack: 0.02, release: 0.05, sweep: 1},
}

// KnownSound reports whether name is a synthesized voice
func KnownSound(name string) bool {
	_, ok := voices[name]
	return ok
}

// ToneGenerator streams one finite cue
type ToneGenerator struct {
	sr      beep.SampleRate
	v       voice
	freq    float64
	gain    float64
	pos     int
	samples int
	phase   float64
	rng     *rand.Rand
}

// newToneGenerator creates a cue generator at the given pitch multiplier and volume
func newToneGenerator(sr beep.SampleRate, v voice, pitch, volume float64) *ToneGenerator {
	return &ToneGenerator{
		sr:      sr,
		v:       v,
		freq:    v.freq * pitch,
		gain:    0.3 * min(max(volume, 0), 1),
		samples: sr.N(v.duration),
		rng:     rand.New(rand.NewPCG(uint64(v.freq), uint64(pitch*1000))),
	}
}

func (g *ToneGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	if g.pos >= g.samples {
		return 0, false
	}
	for i := range samples {
		if g.pos >= g.samples {
			return i, true
		}
		progress := float64(g.pos) / float64(g.samples)
		freq := g.freq * (1 + (g.v.sweep-1)*progress)

		var s float64
		switch g.v.wave {
		case waveSine:
			s = math.Sin(2 * math.Pi * g.phase)
		case waveSquare:
			if g.phase < 0.5 {
				s = 1
			} else {
				s = -1
			}
		case waveSaw:
			s = 2 * (g.phase - 0.5)
		case waveNoise:
			s = g.rng.Float64()*2 - 1
		}

		g.phase += freq / float64(g.sr)
		if g.phase >= 1 {
			g.phase -= math.Floor(g.phase)
		}

		s *= g.gain * g.envelope()
		samples[i][0] = s
		samples[i][1] = s
		g.pos++
	}
	return len(samples), true
}

func (g *ToneGenerator) Err() error {
	return nil
}

// envelope applies a linear attack and release
func (g *ToneGenerator) envelope() float64 {
	t := float64(g.pos) / float64(g.sr)
	remaining := float64(g.samples-g.pos) / float64(g.sr)
	env := 1.0
	if g.v.attack > 0 && t < g.v.attack {
		env = t / g.v.attack
	}
	if g.v.release > 0 && remaining < g.v.release {
		env = math.Min(env, remaining/g.v.release)
	}
	return env
}

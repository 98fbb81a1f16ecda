// Package audio plays the charge cues through a beep mixer
package audio

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/mob-launch/charge"
	"github.com/lixenwraith/mob-launch/config"
)

const (
	sampleRate = beep.SampleRate(48000)

	CuePickup = "pickup"
	CueLaunch = "launch"
)

// Output receives finished cue streamers
type Output interface {
	Play(s beep.Streamer)
}

// speakerOutput adds streamers to the mixer under the speaker lock
type speakerOutput struct {
	mixer *beep.Mixer
}

func (o speakerOutput) Play(s beep.Streamer) {
	speaker.Lock()
	o.mixer.Add(s)
	speaker.Unlock()
}

// SoundManager turns charge signals and named cues into synthesized sound
// Every call is a no-op until Initialize succeeds, and never blocks on the device
type SoundManager struct {
	mu          sync.Mutex
	cfg         *config.Store
	out         Output
	mixer       *beep.Mixer
	initialized bool
	log         zerolog.Logger
}

func NewSoundManager(cfg *config.Store, logger zerolog.Logger) *SoundManager {
	return &SoundManager{
		cfg:   cfg,
		mixer: &beep.Mixer{},
		log:   logger.With().Str("component", "audio").Logger(),
	}
}

// Initialize opens the speaker
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	err := speaker.Init(sampleRate, sampleRate.N(time.Millisecond*100))
	if err != nil {
		return err
	}

	speaker.Play(sm.mixer)
	sm.out = speakerOutput{mixer: sm.mixer}
	sm.initialized = true
	return nil
}

// InitializeWith routes cues to out instead of the speaker
func (sm *SoundManager) InitializeWith(out Output) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.out = out
	sm.initialized = out != nil
}

// Cleanup silences everything
func (sm *SoundManager) Cleanup() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}
	if _, ok := sm.out.(speakerOutput); ok {
		speaker.Lock()
		sm.mixer.Clear()
		speaker.Unlock()
	}
	sm.out = nil
	sm.initialized = false
}

func (sm *SoundManager) Progress(uuid.UUID, charge.Progress) {}

// Signal plays the cue configured for sig; charging and decreasing cues scale pitch by param
func (sm *SoundManager) Signal(actor uuid.UUID, sig charge.Signal, param float64) {
	def, ok := sm.cfg.Get().Sounds.ForSignal(sig)
	if !ok {
		return
	}
	pitch := def.Pitch
	if sig == charge.SignalCharging || sig == charge.SignalDecreasing {
		pitch *= param
	}
	sm.play(actor, sig.String(), def, pitch)
}

// Cue plays a named non-charge cue (pickup, launch)
func (sm *SoundManager) Cue(actor uuid.UUID, name string) {
	def, ok := sm.cfg.Get().Sounds.Named()[name]
	if !ok {
		return
	}
	sm.play(actor, name, def, def.Pitch)
}

func (sm *SoundManager) play(actor uuid.UUID, name string, def config.Sound, pitch float64) {
	if !def.Active() {
		return
	}
	v, ok := voices[def.Sound]
	if !ok {
		sm.log.Debug().Str("cue", name).Str("sound", def.Sound).Msg("unknown sound, skipped")
		return
	}

	sm.mu.Lock()
	out := sm.out
	initialized := sm.initialized
	sm.mu.Unlock()
	if !initialized {
		return
	}

	out.Play(newToneGenerator(sampleRate, v, pitch, def.Volume))
	sm.log.Trace().Str("actor", actor.String()).Str("cue", name).Float64("pitch", pitch).Msg("cue")
}

// UnknownSounds lists configured cue names whose sound is not a known voice
func UnknownSounds(s config.Sounds) []string {
	var out []string
	for name, def := range s.Named() {
		if def.Active() && !KnownSound(def.Sound) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Package config loads the launcher configuration from TOML with environment
// overrides and keeps the live snapshot for hot reload.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/lixenwraith/mob-launch/charge"
)

const (
	DefaultTickInterval = 50 * time.Millisecond
	EnvPrefix           = "MOBLAUNCH_"
	MaxBarLength        = 200
)

// KnownKinds lists object kinds accepted in allowed_mobs
var KnownKinds = []string{
	"allay", "axolotl", "bat", "bee", "camel", "cat", "chicken", "cod", "cow",
	"creeper", "dolphin", "donkey", "fox", "frog", "goat", "horse", "llama",
	"mooshroom", "mule", "ocelot", "panda", "parrot", "pig", "polar_bear",
	"rabbit", "salmon", "sheep", "skeleton", "sniffer", "spider", "squid",
	"strider", "turtle", "villager", "wolf", "zombie",
}

type Launch struct {
	VelocityMultiplier float64 `toml:"velocity_multiplier" env:"VELOCITY_MULTIPLIER"`
	VerticalBias       float64 `toml:"vertical_bias" env:"VERTICAL_BIAS"`
}

type Charge struct {
	StepPercentage   int `toml:"step_percentage" env:"STEP_PERCENTAGE"`
	IncrementTicks   int `toml:"increment_ticks" env:"INCREMENT_TICKS"`
	PauseAtMaxTicks  int `toml:"pause_at_max_ticks" env:"PAUSE_AT_MAX_TICKS"`
	PauseAtZeroTicks int `toml:"pause_at_zero_ticks" env:"PAUSE_AT_ZERO_TICKS"`
}

type Protection struct {
	DisableFallDamage      bool `toml:"disable_fall_damage" env:"DISABLE_FALL_DAMAGE"`
	ConsumeNametagCreative bool `toml:"consume_nametag_creative" env:"CONSUME_NAMETAG_CREATIVE"`
}

type Visuals struct {
	EnableActionBar bool   `toml:"enable_action_bar" env:"ENABLE_ACTION_BAR"`
	BarChar         string `toml:"bar_char" env:"BAR_CHAR"`
	BarLength       int    `toml:"bar_length" env:"BAR_LENGTH"`
	ColorCharging   string `toml:"color_charging" env:"COLOR_CHARGING"`
	ColorFull       string `toml:"color_full" env:"COLOR_FULL"`
	ColorDecreasing string `toml:"color_decreasing" env:"COLOR_DECREASING"`
}

// Sound configures one cue; Sound "none" or Enabled=false silences it
type Sound struct {
	Enabled bool    `toml:"enabled"`
	Sound   string  `toml:"sound"`
	Volume  float64 `toml:"volume"`
	Pitch   float64 `toml:"pitch"`
}

// Active reports whether the cue should play
func (s Sound) Active() bool {
	return s.Enabled && s.Sound != "" && !strings.EqualFold(s.Sound, "none")
}

type Sounds struct {
	Charging      Sound `toml:"charging"`
	Decreasing    Sound `toml:"decreasing"`
	FullyCharged  Sound `toml:"fully-charged"`
	FullyDepleted Sound `toml:"fully-depleted"`
	Pickup        Sound `toml:"pickup"`
	Launch        Sound `toml:"launch"`
}

// ForSignal returns the cue configured for an oscillator signal
func (s Sounds) ForSignal(sig charge.Signal) (Sound, bool) {
	switch sig {
	case charge.SignalCharging:
		return s.Charging, true
	case charge.SignalDecreasing:
		return s.Decreasing, true
	case charge.SignalFullyCharged:
		return s.FullyCharged, true
	case charge.SignalFullyDepleted:
		return s.FullyDepleted, true
	default:
		return Sound{}, false
	}
}

// Named returns every cue keyed by its table name
func (s Sounds) Named() map[string]Sound {
	return map[string]Sound{
		"charging":       s.Charging,
		"decreasing":     s.Decreasing,
		"fully-charged":  s.FullyCharged,
		"fully-depleted": s.FullyDepleted,
		"pickup":         s.Pickup,
		"launch":         s.Launch,
	}
}

type Scheduler struct {
	PreferRegion bool          `toml:"prefer_region" env:"PREFER_REGION"`
	TickInterval time.Duration `toml:"tick_interval" env:"TICK_INTERVAL"`
}

type Config struct {
	Launch     Launch     `toml:"launch" envPrefix:"LAUNCH_"`
	Charge     Charge     `toml:"charge" envPrefix:"CHARGE_"`
	Protection Protection `toml:"protection" envPrefix:"PROTECTION_"`
	Visuals    Visuals    `toml:"visuals" envPrefix:"VISUALS_"`
	Sounds     Sounds     `toml:"sounds"`
	Scheduler  Scheduler  `toml:"scheduler" envPrefix:"SCHEDULER_"`

	AllowedMobs   []string `toml:"allowed_mobs" env:"ALLOWED_MOBS" envSeparator:","`
	MessagePrefix string   `toml:"message_prefix" env:"MESSAGE_PREFIX"`
	Language      string   `toml:"language_file" env:"LANGUAGE_FILE"`
}

func Default() *Config {
	return &Config{
		Launch: Launch{
			VelocityMultiplier: 1.8,
			VerticalBias:       0.3,
		},
		Charge: Charge{
			StepPercentage:   5,
			IncrementTicks:   1,
			PauseAtMaxTicks:  15,
			PauseAtZeroTicks: 15,
		},
		Protection: Protection{
			DisableFallDamage: true,
		},
		Visuals: Visuals{
			EnableActionBar: true,
			BarChar:         "|",
			BarLength:       40,
			ColorCharging:   "&a",
			ColorFull:       "&6",
			ColorDecreasing: "&c",
		},
		Sounds: Sounds{
			Charging:      Sound{Enabled: true, Sound: "pling", Volume: 0.5, Pitch: 1.0},
			Decreasing:    Sound{Enabled: true, Sound: "pling", Volume: 0.5, Pitch: 1.0},
			FullyCharged:  Sound{Enabled: true, Sound: "chime", Volume: 1.0, Pitch: 1.5},
			FullyDepleted: Sound{Enabled: true, Sound: "bass", Volume: 0.8, Pitch: 0.6},
			Pickup:        Sound{Enabled: true, Sound: "pop", Volume: 1.0, Pitch: 1.0},
			Launch:        Sound{Enabled: true, Sound: "whoosh", Volume: 1.0, Pitch: 1.0},
		},
		Scheduler: Scheduler{
			PreferRegion: true,
			TickInterval: DefaultTickInterval,
		},
		AllowedMobs:   []string{"pig"},
		MessagePrefix: "&6[MobLaunch] ",
	}
}

// Load decodes path over the defaults, applies MOBLAUNCH_ environment overrides and validates
// A missing file is not an error; the defaults are used
func Load(path string) (*Config, []string, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, nil, fmt.Errorf("parse env: %w", err)
	}

	warnings := cfg.Validate()
	return cfg, warnings, nil
}

// Decode parses TOML text over the defaults without environment overrides
func Decode(text string) (*Config, []string, error) {
	cfg := Default()
	if _, err := toml.Decode(text, cfg); err != nil {
		return nil, nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate(), nil
}

// Validate normalizes out-of-range values in place and returns a warning per correction
func (c *Config) Validate() []string {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if c.Charge.StepPercentage < 1 || c.Charge.StepPercentage > charge.MaxPercent {
		clamped := min(max(c.Charge.StepPercentage, 1), charge.MaxPercent)
		warn("charge.step_percentage %d out of range, using %d", c.Charge.StepPercentage, clamped)
		c.Charge.StepPercentage = clamped
	} else if charge.MaxPercent%c.Charge.StepPercentage != 0 {
		warn("charge.step_percentage %d does not divide 100, extremes are clamped", c.Charge.StepPercentage)
	}
	if c.Charge.IncrementTicks < 1 {
		warn("charge.increment_ticks %d below 1, using 1", c.Charge.IncrementTicks)
		c.Charge.IncrementTicks = 1
	}
	if c.Charge.PauseAtMaxTicks < 0 {
		warn("charge.pause_at_max_ticks %d negative, using 0", c.Charge.PauseAtMaxTicks)
		c.Charge.PauseAtMaxTicks = 0
	}
	if c.Charge.PauseAtZeroTicks < 0 {
		warn("charge.pause_at_zero_ticks %d negative, using 0", c.Charge.PauseAtZeroTicks)
		c.Charge.PauseAtZeroTicks = 0
	}

	if c.Launch.VelocityMultiplier < 0 {
		warn("launch.velocity_multiplier %.2f negative, using 0", c.Launch.VelocityMultiplier)
		c.Launch.VelocityMultiplier = 0
	}

	if c.Visuals.BarLength < 1 || c.Visuals.BarLength > MaxBarLength {
		clamped := min(max(c.Visuals.BarLength, 1), MaxBarLength)
		warn("visuals.bar_length %d out of range, using %d", c.Visuals.BarLength, clamped)
		c.Visuals.BarLength = clamped
	}
	if c.Visuals.BarChar == "" {
		warn("visuals.bar_char empty, using \"|\"")
		c.Visuals.BarChar = "|"
	}

	if c.Scheduler.TickInterval <= 0 {
		warn("scheduler.tick_interval %s not positive, using %s", c.Scheduler.TickInterval, DefaultTickInterval)
		c.Scheduler.TickInterval = DefaultTickInterval
	}

	kinds := make([]string, 0, len(c.AllowedMobs))
	for _, raw := range c.AllowedMobs {
		kind := strings.ToLower(strings.TrimSpace(raw))
		if kind == "" {
			continue
		}
		if !slices.Contains(KnownKinds, kind) {
			warn("allowed_mobs: unknown kind %q ignored", raw)
			continue
		}
		if !slices.Contains(kinds, kind) {
			kinds = append(kinds, kind)
		}
	}
	c.AllowedMobs = kinds

	return warnings
}

// ChargeParams maps the charge section onto oscillator parameters
func (c *Config) ChargeParams() charge.Params {
	return charge.Params{
		Step:      c.Charge.StepPercentage,
		HoldAtMax: c.Charge.PauseAtMaxTicks,
		HoldAtMin: c.Charge.PauseAtZeroTicks,
	}.Normalized()
}

// KindAllowed reports whether kind is on the allow list
func (c *Config) KindAllowed(kind string) bool {
	return slices.Contains(c.AllowedMobs, strings.ToLower(kind))
}

// Encode renders the config as TOML
func (c *Config) Encode() (string, error) {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}

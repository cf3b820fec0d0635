package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the glitchd daemon.
//
// The file is the primary configuration surface; flags exist for small
// overrides (see FlagOverrides). Defaults and validation are centralized so
// the rest of the code can assume a well-formed config. Everything here is
// consumed once at startup; the engine never mutates it.
type Config struct {
	// Lanes lists the physical output channels in index order.
	Lanes []LaneConfig `yaml:"lanes"`

	// Timing holds the hard scheduling constraints.
	Timing TimingConfig `yaml:"timing"`

	// Dispatcher tunes the idle-mode effect launcher.
	Dispatcher DispatcherConfig `yaml:"dispatcher"`

	// Watchdog is the idle-mode liveness net.
	Watchdog WatchdogConfig `yaml:"watchdog"`

	// Weights is the effect launch distribution (sum < 1.0).
	Weights WeightsConfig `yaml:"weights"`

	// Effects holds per-effect numeric ranges and durations.
	Effects EffectsConfig `yaml:"effects"`

	// Beat lists the rhythmic patterns the beat effect chooses from.
	Beat BeatConfig `yaml:"beat"`

	// GPIO maps lanes to drive pins.
	GPIO GPIOConfig `yaml:"gpio"`

	// Monitor is the read-only WebSocket event stream.
	Monitor MonitorConfig `yaml:"monitor"`

	// Serial mirrors events to a serial console line.
	Serial SerialConfig `yaml:"serial"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type LaneConfig struct {
	Hz float64 `yaml:"hz"`
}

type TimingConfig struct {
	TickHz          int `yaml:"tick_hz"`
	PulseWidthMS    int `yaml:"pulse_width_ms"`
	MinOffMS        int `yaml:"min_off_ms"`
	JitterMS        int `yaml:"jitter_ms"`
	FreezeDeferMS   int `yaml:"freeze_defer_ms"`
	BurstIntervalMS int `yaml:"burst_interval_ms"`
}

type DispatcherConfig struct {
	CheckIntervalMS int `yaml:"check_interval_ms"`
	CheckJitterMS   int `yaml:"check_jitter_ms"`
	GlitchChancePct int `yaml:"glitch_chance_pct"`
}

type WatchdogConfig struct {
	TimeoutMS int `yaml:"timeout_ms"`
}

// WeightsConfig maps effect names to launch weights. The named weights must
// sum to < 1.0; the remainder is the implicit subtle-glitch bucket.
type WeightsConfig struct {
	Beat            float64 `yaml:"beat"`
	SyncLock        float64 `yaml:"sync_lock"`
	LongPause       float64 `yaml:"long_pause"`
	StaggerBlackout float64 `yaml:"stagger_blackout"`
	Accel           float64 `yaml:"accel"`
	Decel           float64 `yaml:"decel"`
	ScopeCreep      float64 `yaml:"scope_creep"`
	PhaseSnap       float64 `yaml:"phase_snap"`
	Counterbalance  float64 `yaml:"counterbalance"`
	EmailStorm      float64 `yaml:"email_storm"`
	Reorg           float64 `yaml:"reorg"`
}

type EffectsConfig struct {
	Accel           RampConfig           `yaml:"accel"`
	Decel           RampConfig           `yaml:"decel"`
	SyncLock        SyncLockConfig       `yaml:"sync_lock"`
	LongPause       LongPauseConfig      `yaml:"long_pause"`
	StaggerBlackout StaggerConfig        `yaml:"stagger_blackout"`
	Counterbalance  CounterbalanceConfig `yaml:"counterbalance"`
	EmailStorm      StormConfig          `yaml:"email_storm"`
	PhaseSnap       PhaseSnapConfig      `yaml:"phase_snap"`
	ScopeCreep      ScopeCreepConfig     `yaml:"scope_creep"`
	Subtle          SubtleConfig         `yaml:"subtle"`
}

type RampConfig struct {
	MultMinPct    int `yaml:"mult_min_pct"`
	MultMaxPct    int `yaml:"mult_max_pct"`
	DurationMinMS int `yaml:"duration_min_ms"`
	DurationMaxMS int `yaml:"duration_max_ms"`
}

type SyncLockConfig struct {
	BPM        int `yaml:"bpm"`
	DurationMS int `yaml:"duration_ms"`
	CooldownMS int `yaml:"cooldown_ms"`
}

type LongPauseConfig struct {
	MinMS      int `yaml:"min_ms"`
	MaxMS      int `yaml:"max_ms"`
	CooldownMS int `yaml:"cooldown_ms"`
}

type StaggerConfig struct {
	SilenceWindowMS int `yaml:"silence_window_ms"`
	StepMS          int `yaml:"step_ms"`
}

type CounterbalanceConfig struct {
	DeltaMinPct   int `yaml:"delta_min_pct"`
	DeltaMaxPct   int `yaml:"delta_max_pct"`
	DurationMinMS int `yaml:"duration_min_ms"`
	DurationMaxMS int `yaml:"duration_max_ms"`
}

type StormConfig struct {
	WindowMinMS int `yaml:"window_min_ms"`
	WindowMaxMS int `yaml:"window_max_ms"`
	GapMinMS    int `yaml:"gap_min_ms"`
	GapMaxMS    int `yaml:"gap_max_ms"`
	BurstMin    int `yaml:"burst_min"`
	BurstMax    int `yaml:"burst_max"`
}

type PhaseSnapConfig struct {
	DurationMS int `yaml:"duration_ms"`
}

type ScopeCreepConfig struct {
	DeltaHz    float64 `yaml:"delta_hz"`
	DurationMS int     `yaml:"duration_ms"`
}

type SubtleConfig struct {
	NudgeMinPct int `yaml:"nudge_min_pct"`
	NudgeMaxPct int `yaml:"nudge_max_pct"`
	NudgeMinMS  int `yaml:"nudge_min_ms"`
	NudgeMaxMS  int `yaml:"nudge_max_ms"`
	FreezeMinMS int `yaml:"freeze_min_ms"`
	FreezeMaxMS int `yaml:"freeze_max_ms"`
	BurstMin    int `yaml:"burst_min"`
	BurstMax    int `yaml:"burst_max"`
}

type BeatConfig struct {
	Patterns []BeatPatternConfig `yaml:"patterns"`
}

type BeatPatternConfig struct {
	Name  string  `yaml:"name"`
	BPM   int     `yaml:"bpm"`
	Steps int     `yaml:"steps"`
	Bars  int     `yaml:"bars"`
	Lanes [][]int `yaml:"lanes"`
}

type GPIOConfig struct {
	Enabled bool             `yaml:"enabled"`
	Chip    string           `yaml:"chip"`
	Lanes   []GPIOLaneConfig `yaml:"lanes"`
}

type GPIOLaneConfig struct {
	PolarityPin int `yaml:"polarity_pin"`
	EnablePin   int `yaml:"enable_pin"`
}

type MonitorConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

type SerialConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a fully-populated Config. Keep this aligned with
// constants.go.
func DefaultConfig() Config {
	return Config{
		Lanes: []LaneConfig{
			{Hz: 1.00},
			{Hz: 0.98},
			{Hz: 1.02},
			{Hz: 1.01},
		},
		Timing: TimingConfig{
			TickHz:          defaultTickHz,
			PulseWidthMS:    defaultPulseWidthMS,
			MinOffMS:        defaultMinOffMS,
			JitterMS:        defaultJitterMS,
			FreezeDeferMS:   defaultFreezeDeferMS,
			BurstIntervalMS: defaultBurstIntervalMS,
		},
		Dispatcher: DispatcherConfig{
			CheckIntervalMS: defaultCheckIntervalMS,
			CheckJitterMS:   defaultCheckJitterMS,
			GlitchChancePct: defaultGlitchChancePct,
		},
		Watchdog: WatchdogConfig{
			TimeoutMS: defaultWatchdogMS,
		},
		Weights: WeightsConfig{
			Beat:            0.04,
			SyncLock:        0.05,
			LongPause:       0.05,
			StaggerBlackout: 0.05,
			Accel:           0.07,
			Decel:           0.07,
			ScopeCreep:      0.04,
			PhaseSnap:       0.04,
			Counterbalance:  0.05,
			EmailStorm:      0.04,
			Reorg:           0.03,
		},
		Effects: EffectsConfig{
			Accel:           RampConfig{MultMinPct: 10, MultMaxPct: 40, DurationMinMS: 6000, DurationMaxMS: 15000},
			Decel:           RampConfig{MultMinPct: 10, MultMaxPct: 35, DurationMinMS: 6000, DurationMaxMS: 15000},
			SyncLock:        SyncLockConfig{BPM: 120, DurationMS: 8000, CooldownMS: 60000},
			LongPause:       LongPauseConfig{MinMS: 4000, MaxMS: 12000, CooldownMS: 45000},
			StaggerBlackout: StaggerConfig{SilenceWindowMS: 3500, StepMS: 700},
			Counterbalance:  CounterbalanceConfig{DeltaMinPct: 10, DeltaMaxPct: 30, DurationMinMS: 6000, DurationMaxMS: 12000},
			EmailStorm:      StormConfig{WindowMinMS: 5000, WindowMaxMS: 12000, GapMinMS: 400, GapMaxMS: 1200, BurstMin: 2, BurstMax: 5},
			PhaseSnap:       PhaseSnapConfig{DurationMS: 9000},
			ScopeCreep:      ScopeCreepConfig{DeltaHz: 0.15, DurationMS: 12000},
			Subtle: SubtleConfig{
				NudgeMinPct: -25, NudgeMaxPct: 25,
				NudgeMinMS: 2000, NudgeMaxMS: 8000,
				FreezeMinMS: 1500, FreezeMaxMS: 6000,
				BurstMin: 2, BurstMax: 6,
			},
		},
		Beat: BeatConfig{},
		GPIO: GPIOConfig{
			Enabled: false,
			Chip:    defaultGPIOChip,
			Lanes: []GPIOLaneConfig{
				{PolarityPin: 17, EnablePin: 27},
				{PolarityPin: 22, EnablePin: 23},
				{PolarityPin: 24, EnablePin: 25},
				{PolarityPin: 5, EnablePin: 6},
			},
		},
		Monitor: MonitorConfig{
			Enabled:    false,
			ListenAddr: defaultMonitorAddr,
		},
		Serial: SerialConfig{
			Enabled:  false,
			Port:     "",
			BaudRate: defaultSerialBaud,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file. Unknown fields are
// rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Reject trailing garbage after the document. Only a clean EOF is
	// acceptable here; a second document (or a parse error in one) is not.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies flag values on top of a loaded config. Each override
// is applied only when its pointer is non-nil, so a config file stays the
// primary surface while flags handle ad-hoc/systemd overrides.
type FlagOverrides struct {
	TickHz          *int
	GlitchChancePct *int

	GPIOChip *string
	DryRun   *bool

	MonitorEnabled *bool
	MonitorAddr    *string

	SerialEnabled *bool
	SerialPort    *string

	LogLevel  *string
	LogFormat *string
}

// Apply merges the overrides into cfg. Nil pointers are ignored.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.TickHz != nil {
		cfg.Timing.TickHz = *o.TickHz
	}
	if o.GlitchChancePct != nil {
		cfg.Dispatcher.GlitchChancePct = *o.GlitchChancePct
	}
	if o.GPIOChip != nil {
		cfg.GPIO.Chip = *o.GPIOChip
	}
	if o.DryRun != nil && *o.DryRun {
		cfg.GPIO.Enabled = false
	}
	if o.MonitorEnabled != nil {
		cfg.Monitor.Enabled = *o.MonitorEnabled
	}
	if o.MonitorAddr != nil {
		cfg.Monitor.ListenAddr = *o.MonitorAddr
		cfg.Monitor.Enabled = true
	}
	if o.SerialEnabled != nil {
		cfg.Serial.Enabled = *o.SerialEnabled
	}
	if o.SerialPort != nil {
		cfg.Serial.Port = *o.SerialPort
		cfg.Serial.Enabled = true
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = *o.LogFormat
	}
}

// Validate checks config invariants and returns a user-friendly error. Call
// after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	if len(c.Lanes) == 0 {
		return errors.New("lanes must not be empty")
	}
	if len(c.Lanes) > 8 {
		return fmt.Errorf("at most 8 lanes supported, got %d", len(c.Lanes))
	}
	for i, l := range c.Lanes {
		if l.Hz <= 0 {
			return fmt.Errorf("lanes[%d].hz must be > 0", i)
		}
	}

	t := c.Timing
	if t.TickHz <= 0 || t.TickHz > 1000 {
		return errors.New("timing.tick_hz must be between 1 and 1000")
	}
	if t.PulseWidthMS <= 0 {
		return errors.New("timing.pulse_width_ms must be > 0")
	}
	if t.MinOffMS < 0 {
		return errors.New("timing.min_off_ms must be >= 0")
	}
	if t.JitterMS < 0 {
		return errors.New("timing.jitter_ms must be >= 0")
	}
	if t.FreezeDeferMS <= 0 {
		return errors.New("timing.freeze_defer_ms must be > 0")
	}
	if t.BurstIntervalMS <= 0 {
		return errors.New("timing.burst_interval_ms must be > 0")
	}

	d := c.Dispatcher
	if d.CheckIntervalMS <= 0 {
		return errors.New("dispatcher.check_interval_ms must be > 0")
	}
	if d.CheckJitterMS < 0 {
		return errors.New("dispatcher.check_jitter_ms must be >= 0")
	}
	if d.GlitchChancePct < 0 || d.GlitchChancePct > 100 {
		return errors.New("dispatcher.glitch_chance_pct must be between 0 and 100")
	}

	if c.Watchdog.TimeoutMS < 0 {
		return errors.New("watchdog.timeout_ms must be >= 0 (0 disables)")
	}

	// Weight validity (non-negative, sum < 1.0) is enforced by the weight
	// table builder; run it here so bad files fail at load time.
	if _, err := buildWeightTable(c.Weights.toWeights()); err != nil {
		return fmt.Errorf("weights: %w", err)
	}

	if err := c.Effects.validate(); err != nil {
		return err
	}

	for i, p := range c.Beat.Patterns {
		if p.BPM <= 0 {
			return fmt.Errorf("beat.patterns[%d].bpm must be > 0", i)
		}
		if p.Steps <= 0 {
			return fmt.Errorf("beat.patterns[%d].steps must be > 0", i)
		}
		if p.Bars <= 0 {
			return fmt.Errorf("beat.patterns[%d].bars must be > 0", i)
		}
		for lane, steps := range p.Lanes {
			for _, s := range steps {
				if s < 0 || s >= p.Steps {
					return fmt.Errorf("beat.patterns[%d].lanes[%d]: step %d out of range [0,%d)", i, lane, s, p.Steps)
				}
			}
		}
	}

	if c.GPIO.Enabled {
		if c.GPIO.Chip == "" {
			return errors.New("gpio.enabled is true but gpio.chip is empty")
		}
		if len(c.GPIO.Lanes) != len(c.Lanes) {
			return fmt.Errorf("gpio.lanes must match lanes: got %d pin pairs for %d lanes", len(c.GPIO.Lanes), len(c.Lanes))
		}
		for i, g := range c.GPIO.Lanes {
			if g.PolarityPin < 0 || g.EnablePin < 0 {
				return fmt.Errorf("gpio.lanes[%d]: pins must be >= 0", i)
			}
		}
	}

	if c.Monitor.Enabled && c.Monitor.ListenAddr == "" {
		return errors.New("monitor.enabled is true but monitor.listen_addr is empty")
	}

	if c.Serial.Enabled {
		if c.Serial.Port == "" {
			return errors.New("serial.enabled is true but serial.port is empty")
		}
		if c.Serial.BaudRate <= 0 {
			return errors.New("serial.baud_rate must be > 0")
		}
	}

	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

func (e *EffectsConfig) validate() error {
	checkRange := func(name string, lo, hi int) error {
		if lo > hi {
			return fmt.Errorf("effects.%s: min %d > max %d", name, lo, hi)
		}
		return nil
	}
	if err := checkRange("accel.mult_pct", e.Accel.MultMinPct, e.Accel.MultMaxPct); err != nil {
		return err
	}
	if err := checkRange("accel.duration_ms", e.Accel.DurationMinMS, e.Accel.DurationMaxMS); err != nil {
		return err
	}
	if err := checkRange("decel.mult_pct", e.Decel.MultMinPct, e.Decel.MultMaxPct); err != nil {
		return err
	}
	if err := checkRange("decel.duration_ms", e.Decel.DurationMinMS, e.Decel.DurationMaxMS); err != nil {
		return err
	}
	if e.SyncLock.BPM <= 0 {
		return errors.New("effects.sync_lock.bpm must be > 0")
	}
	if e.SyncLock.DurationMS <= 0 {
		return errors.New("effects.sync_lock.duration_ms must be > 0")
	}
	if err := checkRange("long_pause.ms", e.LongPause.MinMS, e.LongPause.MaxMS); err != nil {
		return err
	}
	if e.StaggerBlackout.SilenceWindowMS <= 0 {
		return errors.New("effects.stagger_blackout.silence_window_ms must be > 0")
	}
	if e.StaggerBlackout.StepMS < 0 {
		return errors.New("effects.stagger_blackout.step_ms must be >= 0")
	}
	if err := checkRange("counterbalance.delta_pct", e.Counterbalance.DeltaMinPct, e.Counterbalance.DeltaMaxPct); err != nil {
		return err
	}
	if err := checkRange("counterbalance.duration_ms", e.Counterbalance.DurationMinMS, e.Counterbalance.DurationMaxMS); err != nil {
		return err
	}
	if err := checkRange("email_storm.window_ms", e.EmailStorm.WindowMinMS, e.EmailStorm.WindowMaxMS); err != nil {
		return err
	}
	if err := checkRange("email_storm.gap_ms", e.EmailStorm.GapMinMS, e.EmailStorm.GapMaxMS); err != nil {
		return err
	}
	if err := checkRange("email_storm.burst", e.EmailStorm.BurstMin, e.EmailStorm.BurstMax); err != nil {
		return err
	}
	if e.PhaseSnap.DurationMS <= 0 {
		return errors.New("effects.phase_snap.duration_ms must be > 0")
	}
	if e.ScopeCreep.DurationMS <= 0 {
		return errors.New("effects.scope_creep.duration_ms must be > 0")
	}
	if err := checkRange("subtle.nudge_pct", e.Subtle.NudgeMinPct, e.Subtle.NudgeMaxPct); err != nil {
		return err
	}
	if err := checkRange("subtle.nudge_ms", e.Subtle.NudgeMinMS, e.Subtle.NudgeMaxMS); err != nil {
		return err
	}
	if err := checkRange("subtle.freeze_ms", e.Subtle.FreezeMinMS, e.Subtle.FreezeMaxMS); err != nil {
		return err
	}
	if err := checkRange("subtle.burst", e.Subtle.BurstMin, e.Subtle.BurstMax); err != nil {
		return err
	}
	return nil
}

func (w WeightsConfig) toWeights() EffectWeights {
	return EffectWeights{
		Beat:            w.Beat,
		SyncLock:        w.SyncLock,
		LongPause:       w.LongPause,
		StaggerBlackout: w.StaggerBlackout,
		Accel:           w.Accel,
		Decel:           w.Decel,
		ScopeCreep:      w.ScopeCreep,
		PhaseSnap:       w.PhaseSnap,
		Counterbalance:  w.Counterbalance,
		EmailStorm:      w.EmailStorm,
		Reorg:           w.Reorg,
	}
}

// ToEngineConfig converts the file config into the internal engine config.
func (c *Config) ToEngineConfig() EngineConfig {
	laneHz := make([]float64, len(c.Lanes))
	for i, l := range c.Lanes {
		laneHz[i] = l.Hz
	}

	patterns := make([]BeatPattern, 0, len(c.Beat.Patterns))
	for _, p := range c.Beat.Patterns {
		patterns = append(patterns, BeatPattern{
			Name:      p.Name,
			BPM:       p.BPM,
			Steps:     p.Steps,
			Bars:      p.Bars,
			LaneSteps: p.Lanes,
		})
	}
	if len(patterns) == 0 {
		patterns = defaultBeatPatterns()
	}

	ef := c.Effects
	return EngineConfig{
		LaneHz: laneHz,

		PulseWidthMS:    uint32(c.Timing.PulseWidthMS),
		MinOffMS:        uint32(c.Timing.MinOffMS),
		JitterMS:        c.Timing.JitterMS,
		FreezeDeferMS:   uint32(c.Timing.FreezeDeferMS),
		BurstIntervalMS: uint32(c.Timing.BurstIntervalMS),

		CheckIntervalMS: uint32(c.Dispatcher.CheckIntervalMS),
		CheckJitterMS:   c.Dispatcher.CheckJitterMS,
		GlitchChancePct: c.Dispatcher.GlitchChancePct,

		WatchdogMS: uint32(c.Watchdog.TimeoutMS),

		Weights: c.Weights.toWeights(),

		Accel: RampParams{
			MultMinPct:    ef.Accel.MultMinPct,
			MultMaxPct:    ef.Accel.MultMaxPct,
			DurationMinMS: uint32(ef.Accel.DurationMinMS),
			DurationMaxMS: uint32(ef.Accel.DurationMaxMS),
		},
		Decel: RampParams{
			MultMinPct:    ef.Decel.MultMinPct,
			MultMaxPct:    ef.Decel.MultMaxPct,
			DurationMinMS: uint32(ef.Decel.DurationMinMS),
			DurationMaxMS: uint32(ef.Decel.DurationMaxMS),
		},
		SyncLock: SyncLockParams{
			BPM:        ef.SyncLock.BPM,
			DurationMS: uint32(ef.SyncLock.DurationMS),
			CooldownMS: uint32(ef.SyncLock.CooldownMS),
		},
		LongPause: LongPauseParams{
			MinMS:      uint32(ef.LongPause.MinMS),
			MaxMS:      uint32(ef.LongPause.MaxMS),
			CooldownMS: uint32(ef.LongPause.CooldownMS),
		},
		Stagger: StaggerParams{
			SilenceWindowMS: uint32(ef.StaggerBlackout.SilenceWindowMS),
			StepMS:          uint32(ef.StaggerBlackout.StepMS),
		},
		Counterbalance: CounterbalanceParams{
			DeltaMinPct:   ef.Counterbalance.DeltaMinPct,
			DeltaMaxPct:   ef.Counterbalance.DeltaMaxPct,
			DurationMinMS: uint32(ef.Counterbalance.DurationMinMS),
			DurationMaxMS: uint32(ef.Counterbalance.DurationMaxMS),
		},
		Storm: StormParams{
			WindowMinMS: uint32(ef.EmailStorm.WindowMinMS),
			WindowMaxMS: uint32(ef.EmailStorm.WindowMaxMS),
			GapMinMS:    uint32(ef.EmailStorm.GapMinMS),
			GapMaxMS:    uint32(ef.EmailStorm.GapMaxMS),
			BurstMin:    ef.EmailStorm.BurstMin,
			BurstMax:    ef.EmailStorm.BurstMax,
		},
		PhaseSnap: PhaseSnapParams{
			DurationMS: uint32(ef.PhaseSnap.DurationMS),
		},
		ScopeCreep: ScopeCreepParams{
			DeltaHz:    ef.ScopeCreep.DeltaHz,
			DurationMS: uint32(ef.ScopeCreep.DurationMS),
		},
		Subtle: SubtleParams{
			NudgeMinPct: ef.Subtle.NudgeMinPct,
			NudgeMaxPct: ef.Subtle.NudgeMaxPct,
			NudgeMinMS:  uint32(ef.Subtle.NudgeMinMS),
			NudgeMaxMS:  uint32(ef.Subtle.NudgeMaxMS),
			FreezeMinMS: uint32(ef.Subtle.FreezeMinMS),
			FreezeMaxMS: uint32(ef.Subtle.FreezeMaxMS),
			BurstMin:    ef.Subtle.BurstMin,
			BurstMax:    ef.Subtle.BurstMax,
		},

		Patterns: patterns,
	}
}

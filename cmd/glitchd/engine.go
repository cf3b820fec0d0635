package main

import (
	"errors"
	"fmt"
)

// Mode is the process-wide effect slot. Exactly one mode is active at any
// tick; ModeNormal is both the initial and the terminal state every timed
// effect returns to. Reorg is instantaneous and never touches the register.
type Mode int

const (
	ModeNormal Mode = iota
	ModeBeat
	ModeSyncLock
	ModeLongPause
	ModeStaggerBlackout
	ModeAccel
	ModeDecel
	ModeScopeCreep
	ModePhaseSnap
	ModeCounterbalance
	ModeEmailStorm
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeBeat:
		return "beat"
	case ModeSyncLock:
		return "sync_lock"
	case ModeLongPause:
		return "long_pause"
	case ModeStaggerBlackout:
		return "stagger_blackout"
	case ModeAccel:
		return "accel"
	case ModeDecel:
		return "decel"
	case ModeScopeCreep:
		return "scope_creep"
	case ModePhaseSnap:
		return "phase_snap"
	case ModeCounterbalance:
		return "counterbalance"
	case ModeEmailStorm:
		return "email_storm"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// modeFor maps a mode-occupying effect kind to its Mode value.
func modeFor(k EffectKind) Mode {
	switch k {
	case EffectBeat:
		return ModeBeat
	case EffectSyncLock:
		return ModeSyncLock
	case EffectLongPause:
		return ModeLongPause
	case EffectStaggerBlackout:
		return ModeStaggerBlackout
	case EffectAccel:
		return ModeAccel
	case EffectDecel:
		return ModeDecel
	case EffectScopeCreep:
		return ModeScopeCreep
	case EffectPhaseSnap:
		return ModePhaseSnap
	case EffectCounterbalance:
		return ModeCounterbalance
	case EffectEmailStorm:
		return ModeEmailStorm
	default:
		return ModeNormal
	}
}

// EngineConfig is the flattened, validated engine parameter set, produced
// from the file config once at startup (Config.ToEngineConfig).
type EngineConfig struct {
	LaneHz []float64

	PulseWidthMS    uint32
	MinOffMS        uint32
	JitterMS        int
	FreezeDeferMS   uint32
	BurstIntervalMS uint32

	CheckIntervalMS uint32
	CheckJitterMS   int
	GlitchChancePct int

	WatchdogMS uint32

	Weights EffectWeights

	Accel          RampParams
	Decel          RampParams
	SyncLock       SyncLockParams
	LongPause      LongPauseParams
	Stagger        StaggerParams
	Counterbalance CounterbalanceParams
	Storm          StormParams
	PhaseSnap      PhaseSnapParams
	ScopeCreep     ScopeCreepParams
	Subtle         SubtleParams

	Patterns []BeatPattern
}

// RampParams bound the Accel/Decel target multiplier and duration.
type RampParams struct {
	MultMinPct    int // target multiplier offset from 1.0, in percent
	MultMaxPct    int
	DurationMinMS uint32
	DurationMaxMS uint32
}

type SyncLockParams struct {
	BPM        int
	DurationMS uint32
	CooldownMS uint32
}

type LongPauseParams struct {
	MinMS      uint32
	MaxMS      uint32
	CooldownMS uint32
}

type StaggerParams struct {
	SilenceWindowMS uint32
	StepMS          uint32
}

type CounterbalanceParams struct {
	DeltaMinPct   int
	DeltaMaxPct   int
	DurationMinMS uint32
	DurationMaxMS uint32
}

type StormParams struct {
	WindowMinMS uint32
	WindowMaxMS uint32
	GapMinMS    uint32
	GapMaxMS    uint32
	BurstMin    int
	BurstMax    int
}

type PhaseSnapParams struct {
	DurationMS uint32
}

type ScopeCreepParams struct {
	DeltaHz    float64
	DurationMS uint32
}

type SubtleParams struct {
	NudgeMinPct int // may be negative
	NudgeMaxPct int
	NudgeMinMS  uint32
	NudgeMaxMS  uint32
	FreezeMinMS uint32
	FreezeMaxMS uint32
	BurstMin    int
	BurstMax    int
}

// Engine is the single-owner aggregate for all scheduling state: the lane
// array, the mode register, the active effect and the cumulative weight
// table. One goroutine calls Tick; nothing here locks.
type Engine struct {
	cfg   EngineConfig
	lanes []Lane
	mode  Mode

	// active is the running effect's state machine; nil iff mode is
	// ModeNormal.
	active effect

	table weightTable
	rng   Rand
	out   Actuator
	sink  EventSink

	lastPulseAt uint32
	pulseSeen   bool

	nextModeCheck uint32

	// Cooldown windows. Only sync-lock and long-pause implement them.
	syncLockReadyAt  uint32
	syncLockCooling  bool
	longPauseReadyAt uint32
	longPauseCooling bool
}

// NewEngine validates the configuration, builds the cumulative weight table
// and creates the lane array. Zero lanes is the one fatal precondition.
func NewEngine(cfg EngineConfig, out Actuator, sink EventSink, rng Rand) (*Engine, error) {
	if len(cfg.LaneHz) == 0 {
		return nil, errors.New("engine requires at least one lane")
	}
	for i, hz := range cfg.LaneHz {
		if hz <= 0 {
			return nil, fmt.Errorf("lane %d: base frequency must be > 0, got %v", i, hz)
		}
	}
	table, err := buildWeightTable(cfg.Weights)
	if err != nil {
		return nil, fmt.Errorf("build weight table: %w", err)
	}
	if out == nil {
		out = nopActuator{}
	}
	if sink == nil {
		sink = nopSink{}
	}
	if rng == nil {
		rng = sysRand{}
	}

	e := &Engine{
		cfg:   cfg,
		lanes: make([]Lane, len(cfg.LaneHz)),
		mode:  ModeNormal,
		table: table,
		rng:   rng,
		out:   out,
		sink:  sink,
	}
	for i, hz := range cfg.LaneHz {
		e.lanes[i] = newLane(i, hz)
	}
	return e, nil
}

// Mode returns the current mode register value.
func (e *Engine) Mode() Mode { return e.mode }

// Lanes exposes the lane array. Single-owner semantics apply: only the
// goroutine driving Tick may touch it.
func (e *Engine) Lanes() []Lane { return e.lanes }

// Start arms the initial schedule. Must be called once before Tick.
func (e *Engine) Start(now uint32) {
	e.nextModeCheck = now + e.cfg.CheckIntervalMS
	e.lastPulseAt = now
	e.pulseSeen = true
	for i := range e.lanes {
		e.rescheduleLane(&e.lanes[i], now, e.cfg.JitterMS)
	}
}

// Tick is one pass of the cooperative control loop: dispatcher decision,
// active effect update, watchdog, then the lane sweep.
func (e *Engine) Tick(now uint32) {
	e.maybeLaunch(now)

	if e.active != nil {
		if !e.active.update(e, now) {
			e.finish(now)
		}
	}

	e.watchdog(now)

	for i := range e.lanes {
		e.stepLane(&e.lanes[i], now)
	}
}

// Quiesce de-energizes every lane; used on shutdown so no drive stays
// asserted.
func (e *Engine) Quiesce(now uint32) {
	for i := range e.lanes {
		l := &e.lanes[i]
		if l.PulseOn {
			l.PulseOn = false
		}
		e.out.Enable(l.ID, false)
	}
}

// maybeLaunch is the dispatcher check: on a jittered interval, only while
// idle, roll a probability and resolve the weight table.
func (e *Engine) maybeLaunch(now uint32) {
	if !elapsed(now, e.nextModeCheck) {
		return
	}
	e.nextModeCheck = advance(now, e.cfg.CheckIntervalMS, jitter(e.rng, e.cfg.CheckJitterMS))
	if e.mode != ModeNormal {
		return
	}
	if e.rng.IntN(100) >= e.cfg.GlitchChancePct {
		return
	}
	e.Trigger(e.table.pick(e.rng.Float64()), now)
}

// Trigger launches the given effect kind at now. Guarded preconditions
// resolve as silent no-ops: a mode-occupying effect while another is active,
// or sync-lock/long-pause inside their cooldown window.
func (e *Engine) Trigger(kind EffectKind, now uint32) {
	switch kind {
	case EffectSubtleGlitch:
		e.subtleGlitch(now)
		return
	case EffectReorg:
		e.reorgSwap(now)
		return
	}

	if e.mode != ModeNormal {
		return
	}
	switch kind {
	case EffectSyncLock:
		if e.syncLockCooling && !elapsed(now, e.syncLockReadyAt) {
			return
		}
	case EffectLongPause:
		if e.longPauseCooling && !elapsed(now, e.longPauseReadyAt) {
			return
		}
	}

	eff := e.draw(kind)
	if eff == nil {
		return
	}
	e.begin(eff, now)
}

// draw constructs an effect state machine with randomly chosen parameters
// from the configured ranges.
func (e *Engine) draw(kind EffectKind) effect {
	switch kind {
	case EffectAccel:
		p := e.cfg.Accel
		return &rampEffect{
			decel:      false,
			target:     1.0 + float64(between(e.rng, p.MultMinPct, p.MultMaxPct))/100.0,
			durationMS: betweenMS(e.rng, p.DurationMinMS, p.DurationMaxMS),
		}
	case EffectDecel:
		p := e.cfg.Decel
		return &rampEffect{
			decel:      true,
			target:     1.0 - float64(between(e.rng, p.MultMinPct, p.MultMaxPct))/100.0,
			durationMS: betweenMS(e.rng, p.DurationMinMS, p.DurationMaxMS),
		}
	case EffectSyncLock:
		p := e.cfg.SyncLock
		return &syncLockEffect{
			targetHz:   float64(p.BPM) / 60.0,
			durationMS: p.DurationMS,
		}
	case EffectLongPause:
		p := e.cfg.LongPause
		return &longPauseEffect{durationMS: betweenMS(e.rng, p.MinMS, p.MaxMS)}
	case EffectStaggerBlackout:
		p := e.cfg.Stagger
		return &staggerBlackoutEffect{windowMS: p.SilenceWindowMS, stepMS: p.StepMS}
	case EffectCounterbalance:
		p := e.cfg.Counterbalance
		a, b := e.pickTwoLanes()
		if a == b {
			return nil // needs two distinct lanes
		}
		return &counterbalanceEffect{
			laneUp:     a,
			laneDown:   b,
			delta:      float64(between(e.rng, p.DeltaMinPct, p.DeltaMaxPct)) / 100.0,
			durationMS: betweenMS(e.rng, p.DurationMinMS, p.DurationMaxMS),
		}
	case EffectEmailStorm:
		p := e.cfg.Storm
		return &emailStormEffect{windowMS: betweenMS(e.rng, p.WindowMinMS, p.WindowMaxMS)}
	case EffectPhaseSnap:
		a, b := e.pickTwoLanes()
		if a == b {
			return nil
		}
		return &phaseSnapEffect{ref: a, follower: b, durationMS: e.cfg.PhaseSnap.DurationMS}
	case EffectScopeCreep:
		p := e.cfg.ScopeCreep
		return &scopeCreepEffect{deltaHz: p.DeltaHz, durationMS: p.DurationMS}
	case EffectBeat:
		if len(e.cfg.Patterns) == 0 {
			return nil
		}
		pat := e.cfg.Patterns[e.rng.IntN(len(e.cfg.Patterns))]
		return &beatEffect{pat: pat}
	default:
		return nil
	}
}

// begin runs the effect's start routine and occupies the mode slot.
func (e *Engine) begin(eff effect, now uint32) {
	eff.start(e, now)
	e.active = eff
	e.mode = modeFor(eff.kind())
	e.sink.Emit(EffectStarted{Kind: eff.kind(), At: now, Detail: eff.describe()})
}

// finish runs the effect's end routine and releases the mode slot.
func (e *Engine) finish(now uint32) {
	kind := e.active.kind()
	e.active.end(e, now)
	e.active = nil
	e.mode = ModeNormal
	e.sink.Emit(EffectEnded{Kind: kind, At: now})
}

// clearAllTransients resets nudges, freezes and owed bursts on every lane.
func (e *Engine) clearAllTransients() {
	for i := range e.lanes {
		e.lanes[i].clearTransients()
	}
}

// pickTwoLanes returns two distinct random lane indices, or the same index
// twice when fewer than two lanes exist.
func (e *Engine) pickTwoLanes() (int, int) {
	n := len(e.lanes)
	a := e.rng.IntN(n)
	if n < 2 {
		return a, a
	}
	b := e.rng.IntN(n - 1)
	if b >= a {
		b++
	}
	return a, b
}

// subtleGlitch is the fallback bucket: pick one lane uniformly, then split
// 40/25/35 across nudge, freeze, burst.
func (e *Engine) subtleGlitch(now uint32) {
	l := &e.lanes[e.rng.IntN(len(e.lanes))]
	p := e.cfg.Subtle
	roll := e.rng.IntN(100)
	switch {
	case roll < subtleNudgePct:
		pct := between(e.rng, p.NudgeMinPct, p.NudgeMaxPct)
		dur := betweenMS(e.rng, p.NudgeMinMS, p.NudgeMaxMS)
		l.NudgeMul = 1.0 + float64(pct)/100.0
		l.NudgeTimed = true
		l.NudgeUntil = now + dur
		e.sink.Emit(SubtleGlitchApplied{
			Lane: l.ID, Glitch: "nudge", At: now,
			Detail: fmt.Sprintf("mul=%.2f dur=%dms", l.NudgeMul, dur),
		})
	case roll < subtleNudgePct+subtleFreezePct:
		dur := betweenMS(e.rng, p.FreezeMinMS, p.FreezeMaxMS)
		l.Frozen = true
		l.FreezeUntil = now + dur
		e.sink.Emit(SubtleGlitchApplied{
			Lane: l.ID, Glitch: "freeze", At: now,
			Detail: fmt.Sprintf("dur=%dms", dur),
		})
	default:
		n := between(e.rng, p.BurstMin, p.BurstMax)
		l.BurstRemaining += n
		e.sink.Emit(SubtleGlitchApplied{
			Lane: l.ID, Glitch: "burst", At: now,
			Detail: fmt.Sprintf("pulses=%d", n),
		})
	}
}

// reorgSwap instantly rotates BaseHz one position among all lanes (lane i
// receives lane i+1's former value, wrapping) and reschedules everything.
// It never occupies the mode register.
func (e *Engine) reorgSwap(now uint32) {
	e.sink.Emit(EffectStarted{Kind: EffectReorg, At: now, Detail: "rotate base frequencies"})
	n := len(e.lanes)
	first := e.lanes[0].BaseHz
	for i := 0; i < n-1; i++ {
		e.lanes[i].BaseHz = e.lanes[i+1].BaseHz
	}
	e.lanes[n-1].BaseHz = first
	for i := range e.lanes {
		e.rescheduleLane(&e.lanes[i], now, e.cfg.JitterMS)
	}
	e.sink.Emit(EffectEnded{Kind: EffectReorg, At: now})
}

// watchdog re-arms running lanes when nothing has pulsed for too long. It
// only acts in Normal mode; a corrective nudge, not an error.
func (e *Engine) watchdog(now uint32) {
	if e.mode != ModeNormal || !e.pulseSeen || e.cfg.WatchdogMS == 0 {
		return
	}
	if !elapsed(now, e.lastPulseAt+e.cfg.WatchdogMS) {
		return
	}
	silent := now - e.lastPulseAt
	for i := range e.lanes {
		l := &e.lanes[i]
		if l.Running {
			e.rescheduleLane(l, now, watchdogJitterMS)
		}
	}
	// Reset the observation point so a still-silent system gets one kick
	// per window, not one per tick.
	e.lastPulseAt = now
	e.sink.Emit(WatchdogKicked{At: now, SilentMS: silent})
}

package main

import "fmt"

// Each library effect is a small start/update/end state machine dispatched
// by the engine tick. Effects act by mutating lane parameters; only bursts
// and beats inject pulses directly. The engine calls start exactly once,
// update every tick until it returns false, then end exactly once.
type effect interface {
	kind() EffectKind
	describe() string
	start(e *Engine, now uint32)
	// update returns false when the effect is finished and end should run.
	update(e *Engine, now uint32) bool
	end(e *Engine, now uint32)
}

// progress maps now into [0, 1] between start and end, clamped. A
// degenerate window counts as complete.
func progress(now, startAt, endAt uint32) float64 {
	total := int32(endAt - startAt)
	if total <= 0 {
		return 1.0
	}
	p := float64(int32(now-startAt)) / float64(total)
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// ----------------------------------------------------------------------------
// Accel / Decel: linear global nudge ramp from 1.0 to a random target.
// ----------------------------------------------------------------------------

type rampEffect struct {
	decel      bool
	target     float64
	durationMS uint32

	startAt uint32
	endAt   uint32
}

func (r *rampEffect) kind() EffectKind {
	if r.decel {
		return EffectDecel
	}
	return EffectAccel
}

func (r *rampEffect) describe() string {
	return fmt.Sprintf("target=%.2f duration=%dms", r.target, r.durationMS)
}

func (r *rampEffect) start(e *Engine, now uint32) {
	e.clearAllTransients()
	r.startAt = now
	r.endAt = now + r.durationMS
}

func (r *rampEffect) update(e *Engine, now uint32) bool {
	mul := 1.0 + (r.target-1.0)*progress(now, r.startAt, r.endAt)
	for i := range e.lanes {
		e.lanes[i].NudgeMul = mul
	}
	return !elapsed(now, r.endAt)
}

func (r *rampEffect) end(e *Engine, now uint32) {
	for i := range e.lanes {
		e.lanes[i].NudgeMul = 1.0
	}
}

// ----------------------------------------------------------------------------
// Sync-Lock: force every lane to a common BPM-derived frequency, restore on
// release. Cooldown-guarded.
// ----------------------------------------------------------------------------

type syncLockEffect struct {
	targetHz   float64
	durationMS uint32

	endAt uint32
}

func (s *syncLockEffect) kind() EffectKind { return EffectSyncLock }

func (s *syncLockEffect) describe() string {
	return fmt.Sprintf("target_hz=%.2f duration=%dms", s.targetHz, s.durationMS)
}

func (s *syncLockEffect) start(e *Engine, now uint32) {
	e.clearAllTransients()
	s.endAt = now + s.durationMS
	for i := range e.lanes {
		l := &e.lanes[i]
		l.SavedHz = l.BaseHz
		l.BaseHz = s.targetHz
		l.Running = true
		l.Polarity = false
		// Common phase: no jitter so the lanes tick in lockstep.
		e.rescheduleLane(l, now, 0)
	}
}

func (s *syncLockEffect) update(e *Engine, now uint32) bool {
	return !elapsed(now, s.endAt)
}

func (s *syncLockEffect) end(e *Engine, now uint32) {
	for i := range e.lanes {
		l := &e.lanes[i]
		l.BaseHz = l.SavedHz
		l.NudgeMul = 1.0
		l.NudgeTimed = false
		e.rescheduleLane(l, now, e.cfg.JitterMS)
	}
	e.syncLockCooling = true
	e.syncLockReadyAt = now + e.cfg.SyncLock.CooldownMS
}

// ----------------------------------------------------------------------------
// Long Pause: freeze and stop every lane for a random window. Cooldown-
// guarded.
// ----------------------------------------------------------------------------

type longPauseEffect struct {
	durationMS uint32

	endAt uint32
}

func (p *longPauseEffect) kind() EffectKind { return EffectLongPause }

func (p *longPauseEffect) describe() string {
	return fmt.Sprintf("duration=%dms", p.durationMS)
}

func (p *longPauseEffect) start(e *Engine, now uint32) {
	e.clearAllTransients()
	p.endAt = now + p.durationMS
	for i := range e.lanes {
		l := &e.lanes[i]
		l.Frozen = true
		l.FreezeUntil = p.endAt
		l.Running = false
	}
}

func (p *longPauseEffect) update(e *Engine, now uint32) bool {
	return !elapsed(now, p.endAt)
}

func (p *longPauseEffect) end(e *Engine, now uint32) {
	for i := range e.lanes {
		l := &e.lanes[i]
		l.Frozen = false
		l.Running = true
		e.rescheduleLane(l, now, e.cfg.JitterMS)
	}
	e.longPauseCooling = true
	e.longPauseReadyAt = now + e.cfg.LongPause.CooldownMS
}

// ----------------------------------------------------------------------------
// Stagger Blackout: lanes go silent in descending-index order; the highest
// index gets the shortest freeze and resumes first.
// ----------------------------------------------------------------------------

type staggerBlackoutEffect struct {
	windowMS uint32
	stepMS   uint32

	endAt uint32
}

func (s *staggerBlackoutEffect) kind() EffectKind { return EffectStaggerBlackout }

func (s *staggerBlackoutEffect) describe() string {
	return fmt.Sprintf("window=%dms step=%dms", s.windowMS, s.stepMS)
}

func (s *staggerBlackoutEffect) start(e *Engine, now uint32) {
	e.clearAllTransients()
	n := len(e.lanes)
	for i := range e.lanes {
		l := &e.lanes[i]
		l.Frozen = true
		l.FreezeUntil = now + s.windowMS + uint32(n-1-i)*s.stepMS
	}
	s.endAt = now + s.windowMS + uint32(n-1)*s.stepMS
}

func (s *staggerBlackoutEffect) update(e *Engine, now uint32) bool {
	return !elapsed(now, s.endAt)
}

func (s *staggerBlackoutEffect) end(e *Engine, now uint32) {
	for i := range e.lanes {
		l := &e.lanes[i]
		l.Frozen = false
		l.Running = true
		// Growing jitter bound by index avoids a simultaneous relaunch.
		e.rescheduleLane(l, now, e.cfg.JitterMS+i*staggerJitterGrowMS)
	}
}

// ----------------------------------------------------------------------------
// Counterbalance: two lanes ramp in opposite directions around 1.0.
// ----------------------------------------------------------------------------

type counterbalanceEffect struct {
	laneUp     int
	laneDown   int
	delta      float64
	durationMS uint32

	startAt uint32
	endAt   uint32
}

func (c *counterbalanceEffect) kind() EffectKind { return EffectCounterbalance }

func (c *counterbalanceEffect) describe() string {
	return fmt.Sprintf("up=%d down=%d delta=%.2f duration=%dms", c.laneUp, c.laneDown, c.delta, c.durationMS)
}

func (c *counterbalanceEffect) start(e *Engine, now uint32) {
	c.startAt = now
	c.endAt = now + c.durationMS
}

func (c *counterbalanceEffect) update(e *Engine, now uint32) bool {
	p := progress(now, c.startAt, c.endAt)
	for i := range e.lanes {
		switch i {
		case c.laneUp:
			e.lanes[i].NudgeMul = 1.0 + c.delta*p
		case c.laneDown:
			e.lanes[i].NudgeMul = 1.0 - c.delta*p
		default:
			e.lanes[i].NudgeMul = 1.0
		}
	}
	return !elapsed(now, c.endAt)
}

func (c *counterbalanceEffect) end(e *Engine, now uint32) {
	for i := range e.lanes {
		e.lanes[i].NudgeMul = 1.0
	}
}

// ----------------------------------------------------------------------------
// Email Storm: repeated random burst grants to lane pairs until the window
// closes. Bursts drain through the normal lane sweep afterwards.
// ----------------------------------------------------------------------------

type emailStormEffect struct {
	windowMS uint32

	endAt  uint32
	nextAt uint32
}

func (s *emailStormEffect) kind() EffectKind { return EffectEmailStorm }

func (s *emailStormEffect) describe() string {
	return fmt.Sprintf("window=%dms", s.windowMS)
}

func (s *emailStormEffect) start(e *Engine, now uint32) {
	e.clearAllTransients()
	s.endAt = now + s.windowMS
	s.nextAt = now // first round fires immediately
}

func (s *emailStormEffect) update(e *Engine, now uint32) bool {
	if elapsed(now, s.endAt) {
		return false
	}
	if elapsed(now, s.nextAt) {
		p := e.cfg.Storm
		a, b := e.pickTwoLanes()
		na := between(e.rng, p.BurstMin, p.BurstMax)
		e.lanes[a].BurstRemaining += na
		detail := fmt.Sprintf("lane %d +%d", a, na)
		if b != a {
			nb := between(e.rng, p.BurstMin, p.BurstMax)
			e.lanes[b].BurstRemaining += nb
			detail = fmt.Sprintf("lane %d +%d, lane %d +%d", a, na, b, nb)
		}
		e.sink.Emit(EffectProgress{Kind: EffectEmailStorm, At: now, Detail: detail})
		s.nextAt = now + betweenMS(e.rng, p.GapMinMS, p.GapMaxMS)
	}
	return true
}

func (s *emailStormEffect) end(e *Engine, now uint32) {
	// No per-lane cleanup: granted bursts drain naturally.
}

// ----------------------------------------------------------------------------
// Phase Snap: a follower lane copies a reference lane's frequency and phase
// for a fixed window. Release restores the follower's frequency but leaves
// its NextDue as inherited, so it stays phase-parked where the reference
// left it. That asymmetry is intentional; see DESIGN.md.
// ----------------------------------------------------------------------------

type phaseSnapEffect struct {
	ref        int
	follower   int
	durationMS uint32

	endAt uint32
}

func (p *phaseSnapEffect) kind() EffectKind { return EffectPhaseSnap }

func (p *phaseSnapEffect) describe() string {
	return fmt.Sprintf("ref=%d follower=%d duration=%dms", p.ref, p.follower, p.durationMS)
}

func (p *phaseSnapEffect) start(e *Engine, now uint32) {
	f := &e.lanes[p.follower]
	r := &e.lanes[p.ref]
	f.SavedHz = f.BaseHz
	f.BaseHz = r.BaseHz
	f.NextDue = r.NextDue
	p.endAt = now + p.durationMS
}

func (p *phaseSnapEffect) update(e *Engine, now uint32) bool {
	// Re-copy every tick so the pair stays locked even if the reference
	// itself is mutated meanwhile.
	f := &e.lanes[p.follower]
	r := &e.lanes[p.ref]
	f.BaseHz = r.BaseHz
	f.NextDue = r.NextDue
	return !elapsed(now, p.endAt)
}

func (p *phaseSnapEffect) end(e *Engine, now uint32) {
	f := &e.lanes[p.follower]
	f.BaseHz = f.SavedHz
}

// ----------------------------------------------------------------------------
// Scope Creep: every lane's base frequency drifts linearly from its baseline
// by a fixed delta, then snaps back.
// ----------------------------------------------------------------------------

type scopeCreepEffect struct {
	deltaHz    float64
	durationMS uint32

	baseline []float64
	startAt  uint32
	endAt    uint32
}

func (s *scopeCreepEffect) kind() EffectKind { return EffectScopeCreep }

func (s *scopeCreepEffect) describe() string {
	return fmt.Sprintf("delta_hz=%.3f duration=%dms", s.deltaHz, s.durationMS)
}

func (s *scopeCreepEffect) start(e *Engine, now uint32) {
	s.baseline = make([]float64, len(e.lanes))
	for i := range e.lanes {
		s.baseline[i] = e.lanes[i].BaseHz
	}
	s.startAt = now
	s.endAt = now + s.durationMS
}

func (s *scopeCreepEffect) update(e *Engine, now uint32) bool {
	p := progress(now, s.startAt, s.endAt)
	for i := range e.lanes {
		e.lanes[i].BaseHz = s.baseline[i] + s.deltaHz*p
	}
	return !elapsed(now, s.endAt)
}

func (s *scopeCreepEffect) end(e *Engine, now uint32) {
	for i := range e.lanes {
		e.lanes[i].BaseHz = s.baseline[i]
	}
}

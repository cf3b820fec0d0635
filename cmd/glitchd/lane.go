package main

import "math"

// Lane is the scheduling state of one physical output channel. All fields
// are owned by the engine tick; nothing outside the control loop mutates a
// Lane.
//
// "Unset" timestamps are represented as a uint32 paired with a bool flag,
// since every uint32 value is a valid instant on the wrapping clock.
type Lane struct {
	ID int

	// BaseHz is the nominal pulse frequency. Reorg, scope-creep and
	// phase-snap mutate it; SavedHz is the scratch slot they restore from.
	BaseHz  float64
	SavedHz float64

	// NudgeMul is a transient multiplier on BaseHz (1.0 = none). When
	// NudgeTimed is set it auto-reverts once NudgeUntil passes; untimed
	// nudges are owned by the active effect.
	NudgeMul   float64
	NudgeTimed bool
	NudgeUntil uint32

	// NextDue is when the next autonomous pulse is intended; NextFree is
	// the minimum-off gate before which no pulse may be issued.
	NextDue  uint32
	NextFree uint32

	// PulseOn marks an in-progress pulse; PulseOffAt is when it must be
	// de-energized.
	PulseOn    bool
	PulseOffAt uint32

	// Running gates autonomous scheduling (beat/pause/blackout clear it).
	Running bool

	// Polarity alternates on every fired pulse to drive the reversing
	// impulse mechanism.
	Polarity bool

	// Frozen/FreezeUntil hold the lane silent for a window.
	Frozen      bool
	FreezeUntil uint32

	// BurstRemaining counts extra rapid pulses still owed.
	BurstRemaining int
}

func newLane(id int, hz float64) Lane {
	return Lane{ID: id, BaseHz: hz, NudgeMul: 1.0, Running: true}
}

// effectiveHz is BaseHz*NudgeMul clamped to a positive floor.
func (l *Lane) effectiveHz() float64 {
	hz := l.BaseHz * l.NudgeMul
	if hz < minEffectiveHz {
		hz = minEffectiveHz
	}
	return hz
}

// periodMS is the autonomous pulse period at the current effective rate.
func (l *Lane) periodMS() uint32 {
	return uint32(math.Round(1000.0 / l.effectiveHz()))
}

// clearTransients drops nudges, freezes and owed bursts, leaving BaseHz,
// polarity and schedule untouched.
func (l *Lane) clearTransients() {
	l.NudgeMul = 1.0
	l.NudgeTimed = false
	l.Frozen = false
	l.BurstRemaining = 0
}

// stepLane is the per-lane scheduler sweep, run for every lane on every
// tick. Order matters: de-energizing runs unconditionally first, then
// nudge expiry, freeze gating, owed bursts, and finally autonomous firing.
func (e *Engine) stepLane(l *Lane, now uint32) {
	if l.PulseOn && elapsed(now, l.PulseOffAt) {
		e.out.Enable(l.ID, false)
		l.PulseOn = false
	}

	if l.NudgeTimed && elapsed(now, l.NudgeUntil) {
		l.NudgeMul = 1.0
		l.NudgeTimed = false
	}

	if l.Frozen {
		if !elapsed(now, l.FreezeUntil) {
			// Keep NextDue just ahead so the lane resumes cleanly
			// the moment the freeze lifts.
			l.NextDue = now + e.cfg.FreezeDeferMS
			return
		}
		l.Frozen = false
	}

	if l.BurstRemaining > 0 {
		if elapsed(now, l.NextFree) {
			e.firePulse(l, now)
			l.BurstRemaining--
			// Bursts pace at a fixed short interval, independent of
			// the lane's nominal tempo.
			l.NextDue = now + e.cfg.BurstIntervalMS
		}
		return
	}

	if !l.Running || !elapsed(now, l.NextDue) {
		return
	}
	if !elapsed(now, l.NextFree) {
		// Off-gate still closed: defer rather than fire late.
		l.NextDue = l.NextFree
		return
	}

	period := l.periodMS()
	drift := int32(now - l.NextDue)
	e.firePulse(l, now)
	j := jitter(e.rng, e.cfg.JitterMS)
	if drift > int32(resyncAfterPeriods)*int32(period) {
		// Way behind (e.g. after a long freeze): restart from now
		// instead of replaying the backlog as a pulse burst.
		l.NextDue = advance(now, period, j)
	} else {
		l.NextDue = advance(l.NextDue, period, j)
	}
}

// firePulse is the only actuator-affecting primitive in the scheduler.
func (e *Engine) firePulse(l *Lane, now uint32) {
	l.Polarity = !l.Polarity
	e.out.SetPolarity(l.ID, l.Polarity)
	e.out.Enable(l.ID, true)
	l.PulseOn = true
	l.PulseOffAt = now + e.cfg.PulseWidthMS
	l.NextFree = l.PulseOffAt + e.cfg.MinOffMS
	e.lastPulseAt = now
	e.pulseSeen = true
	e.sink.Emit(PulseFired{Lane: l.ID, Polarity: l.Polarity, At: now})
}

// rescheduleLane gives the lane a fresh jittered launch point from now.
func (e *Engine) rescheduleLane(l *Lane, now uint32, jitterBound int) {
	l.NextDue = advance(now, l.periodMS(), jitter(e.rng, jitterBound))
}

package main

import "fmt"

// BeatPattern is a named rhythmic pattern: which step indices trigger which
// lane, at what tempo, for how many bars.
type BeatPattern struct {
	Name  string
	BPM   int
	Steps int // steps per bar
	Bars  int // repetitions before auto-stop
	// LaneSteps[i] lists the step indices that trigger lane i. Lanes
	// beyond the slice stay silent for the pattern.
	LaneSteps [][]int
}

// stepMS derives the per-step interval from the tempo, assuming a four-beat
// bar (so 16 steps at 120 BPM gives 125 ms steps).
func (p BeatPattern) stepMS() uint32 {
	if p.BPM <= 0 || p.Steps <= 0 {
		return 250
	}
	barMS := 4 * 60000 / p.BPM
	return uint32(barMS / p.Steps)
}

// triggers reports whether the given step fires the given lane.
func (p BeatPattern) triggers(lane, step int) bool {
	if lane < 0 || lane >= len(p.LaneSteps) {
		return false
	}
	for _, s := range p.LaneSteps[lane] {
		if s == step {
			return true
		}
	}
	return false
}

// defaultBeatPatterns are the built-in patterns used when the config does
// not define any.
func defaultBeatPatterns() []BeatPattern {
	return []BeatPattern{
		{
			Name:  "four-on-floor",
			BPM:   120,
			Steps: 16,
			Bars:  2,
			LaneSteps: [][]int{
				{0, 4, 8, 12},
				{2, 6, 10, 14},
				{0, 8},
				{4, 12},
			},
		},
		{
			Name:  "offbeat-chase",
			BPM:   96,
			Steps: 8,
			Bars:  3,
			LaneSteps: [][]int{
				{0, 3},
				{1, 5},
				{2, 6},
				{4, 7},
			},
		},
	}
}

// beatEffect plays a pattern by firing pulses directly, bypassing the
// autonomous scheduler (lanes are stopped for the duration).
type beatEffect struct {
	pat BeatPattern

	step     int
	barsLeft int
	nextStep uint32
}

func (b *beatEffect) kind() EffectKind { return EffectBeat }

func (b *beatEffect) describe() string {
	return fmt.Sprintf("pattern=%s bpm=%d bars=%d", b.pat.Name, b.pat.BPM, b.pat.Bars)
}

func (b *beatEffect) start(e *Engine, now uint32) {
	e.clearAllTransients()
	for i := range e.lanes {
		e.lanes[i].Running = false
	}
	b.step = 0
	b.barsLeft = b.pat.Bars
	b.nextStep = now
}

func (b *beatEffect) update(e *Engine, now uint32) bool {
	if !elapsed(now, b.nextStep) {
		return true
	}
	for i := range e.lanes {
		if b.pat.triggers(i, b.step) {
			e.firePulse(&e.lanes[i], now)
		}
	}
	b.step++
	b.nextStep = advance(b.nextStep, b.pat.stepMS(), jitter(e.rng, beatStepJitterMS))
	if b.step >= b.pat.Steps {
		b.step = 0
		b.barsLeft--
		e.sink.Emit(EffectProgress{
			Kind: EffectBeat, At: now,
			Detail: fmt.Sprintf("bar complete, %d remaining", b.barsLeft),
		})
		if b.barsLeft <= 0 {
			return false
		}
	}
	return true
}

func (b *beatEffect) end(e *Engine, now uint32) {
	for i := range e.lanes {
		l := &e.lanes[i]
		l.Running = true
		// Fresh schedule from now at the nominal period.
		l.NextDue = now + l.periodMS()
	}
}

package main

import "testing"

// Shared test doubles. The engine takes its actuator, sink and randomness as
// interfaces, so tests drive it entirely with recorded fakes.

type driveCall struct {
	lane int
	kind string // "polarity" or "enable"
	on   bool
}

// mockActuator records every drive call in order.
type mockActuator struct {
	calls []driveCall
}

func (m *mockActuator) SetPolarity(lane int, forward bool) {
	m.calls = append(m.calls, driveCall{lane: lane, kind: "polarity", on: forward})
}

func (m *mockActuator) Enable(lane int, on bool) {
	m.calls = append(m.calls, driveCall{lane: lane, kind: "enable", on: on})
}

func (m *mockActuator) Close() error { return nil }

// recordSink captures emitted events for assertions.
type recordSink struct {
	events []Event
}

func (s *recordSink) Emit(ev Event) { s.events = append(s.events, ev) }

func (s *recordSink) started() []EffectStarted {
	var out []EffectStarted
	for _, ev := range s.events {
		if v, ok := ev.(EffectStarted); ok {
			out = append(out, v)
		}
	}
	return out
}

func (s *recordSink) ended() []EffectEnded {
	var out []EffectEnded
	for _, ev := range s.events {
		if v, ok := ev.(EffectEnded); ok {
			out = append(out, v)
		}
	}
	return out
}

func (s *recordSink) pulses(lane int) []PulseFired {
	var out []PulseFired
	for _, ev := range s.events {
		if v, ok := ev.(PulseFired); ok && v.Lane == lane {
			out = append(out, v)
		}
	}
	return out
}

func (s *recordSink) glitches() []SubtleGlitchApplied {
	var out []SubtleGlitchApplied
	for _, ev := range s.events {
		if v, ok := ev.(SubtleGlitchApplied); ok {
			out = append(out, v)
		}
	}
	return out
}

// centerRand always returns the midpoint, which makes every jitter() call
// resolve to zero and every between() call to its range midpoint. Most tests
// want exactly that determinism.
type centerRand struct{}

func (centerRand) IntN(n int) int   { return n / 2 }
func (centerRand) Float64() float64 { return 0.5 }

// scriptRand plays back queued draws and falls back to centerRand behavior
// once the script runs out. Draws >= n are clamped so a script cannot
// produce an out-of-range value.
type scriptRand struct {
	ints   []int
	floats []float64
}

func (r *scriptRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return n / 2
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

func (r *scriptRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.5
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

// testEngineConfig is the default config with all scheduling jitter removed
// and the dispatcher silenced, so tests see exact timestamps.
func testEngineConfig(laneHz ...float64) EngineConfig {
	if len(laneHz) == 0 {
		laneHz = []float64{1.00, 0.98, 1.02, 1.01}
	}
	cfg := DefaultConfig()
	ec := cfg.ToEngineConfig()
	ec.LaneHz = laneHz
	ec.JitterMS = 0
	ec.CheckJitterMS = 0
	ec.GlitchChancePct = 0
	return ec
}

func newTestEngine(t *testing.T, cfg EngineConfig, rng Rand) (*Engine, *mockActuator, *recordSink) {
	t.Helper()
	out := &mockActuator{}
	sink := &recordSink{}
	if rng == nil {
		rng = centerRand{}
	}
	eng, err := NewEngine(cfg, out, sink, rng)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng, out, sink
}

package main

import (
	"math"
	"testing"
)

func TestLanePeriodFromRate(t *testing.T) {
	tests := []struct {
		hz   float64
		mul  float64
		want uint32
	}{
		{1.0, 1.0, 1000},
		{2.0, 1.0, 500},
		{0.98, 1.0, 1020},
		{1.0, 1.25, 800},
		{0.01, 1.0, 20000}, // clamped to the minimum effective rate
	}
	for _, tt := range tests {
		l := newLane(0, tt.hz)
		l.NudgeMul = tt.mul
		if got := l.periodMS(); got != tt.want {
			t.Errorf("periodMS(hz=%v mul=%v) = %d, want %d", tt.hz, tt.mul, got, tt.want)
		}
	}
}

func TestAutonomousPulseLifecycle(t *testing.T) {
	eng, out, sink := newTestEngine(t, testEngineConfig(1.0), nil)
	eng.Start(0)

	l := &eng.lanes[0]
	if l.NextDue != 1000 {
		t.Fatalf("NextDue after Start = %d, want 1000", l.NextDue)
	}

	eng.Tick(500) // not due yet
	if len(sink.pulses(0)) != 0 {
		t.Fatal("pulse fired before due")
	}

	eng.Tick(1000)
	if got := len(sink.pulses(0)); got != 1 {
		t.Fatalf("pulses = %d, want 1", got)
	}
	if !l.PulseOn || l.PulseOffAt != 1080 {
		t.Errorf("PulseOn=%v PulseOffAt=%d, want on until 1080", l.PulseOn, l.PulseOffAt)
	}
	if l.NextFree != 1200 {
		t.Errorf("NextFree = %d, want 1200 (off at 1080 + 120 min-off)", l.NextFree)
	}
	if l.NextDue != 2000 {
		t.Errorf("NextDue = %d, want 2000", l.NextDue)
	}

	// Drive call order: polarity asserted before enable.
	if len(out.calls) < 2 || out.calls[0].kind != "polarity" || out.calls[1].kind != "enable" || !out.calls[1].on {
		t.Errorf("unexpected drive calls: %+v", out.calls)
	}

	eng.Tick(1080)
	if l.PulseOn {
		t.Error("pulse still energized past PulseOffAt")
	}
	last := out.calls[len(out.calls)-1]
	if last.kind != "enable" || last.on {
		t.Errorf("expected trailing enable-off, got %+v", last)
	}
}

func TestMinOffGateDefersDue(t *testing.T) {
	eng, _, sink := newTestEngine(t, testEngineConfig(1.0), nil)
	eng.Start(0)
	eng.Tick(1000) // fires; NextFree = 1200

	l := &eng.lanes[0]
	l.NextDue = 1100 // force an early due inside the off-gate

	eng.Tick(1100)
	if got := len(sink.pulses(0)); got != 1 {
		t.Fatalf("pulse fired inside min-off gate (pulses=%d)", got)
	}
	if l.NextDue != 1200 {
		t.Errorf("NextDue = %d, want deferred to NextFree 1200", l.NextDue)
	}

	eng.Tick(1200)
	if got := len(sink.pulses(0)); got != 2 {
		t.Errorf("pulses after gate opened = %d, want 2", got)
	}
}

func TestPolarityAlternates(t *testing.T) {
	eng, _, sink := newTestEngine(t, testEngineConfig(1.0), nil)
	eng.Start(0)
	for _, now := range []uint32{1000, 2000, 3000} {
		eng.Tick(now)
	}
	ps := sink.pulses(0)
	if len(ps) != 3 {
		t.Fatalf("pulses = %d, want 3", len(ps))
	}
	if !ps[0].Polarity || ps[1].Polarity || !ps[2].Polarity {
		t.Errorf("polarity sequence = %v %v %v, want alternating true/false/true",
			ps[0].Polarity, ps[1].Polarity, ps[2].Polarity)
	}
}

func TestFreezeHoldsLaneSilent(t *testing.T) {
	cfg := testEngineConfig(1.0)
	eng, _, sink := newTestEngine(t, cfg, nil)
	eng.Start(0)

	l := &eng.lanes[0]
	l.Frozen = true
	l.FreezeUntil = 3000

	eng.Tick(1000)
	if len(sink.pulses(0)) != 0 {
		t.Fatal("frozen lane fired")
	}
	if l.NextDue != 1000+cfg.FreezeDeferMS {
		t.Errorf("frozen NextDue = %d, want pinned just ahead of now", l.NextDue)
	}

	// The freeze kept NextDue pinned just ahead, so the lane resumes on the
	// very tick the window closes.
	eng.Tick(3000)
	if l.Frozen {
		t.Error("freeze did not lift")
	}
	if len(sink.pulses(0)) != 1 {
		t.Errorf("lane did not resume promptly after freeze (pulses=%d)", len(sink.pulses(0)))
	}
}

func TestBurstDrainsAtGatePace(t *testing.T) {
	eng, _, sink := newTestEngine(t, testEngineConfig(1.0), nil)
	eng.Start(0)

	l := &eng.lanes[0]
	l.BurstRemaining = 2

	eng.Tick(100) // NextFree unset (zero) counts as elapsed: fires immediately
	if got := len(sink.pulses(0)); got != 1 {
		t.Fatalf("first burst pulse missing (pulses=%d)", got)
	}
	if l.BurstRemaining != 1 {
		t.Errorf("BurstRemaining = %d, want 1", l.BurstRemaining)
	}

	eng.Tick(200) // still inside pulse width + min-off
	if got := len(sink.pulses(0)); got != 1 {
		t.Fatalf("burst fired inside off-gate (pulses=%d)", got)
	}

	eng.Tick(300) // gate opens at 100+80+120
	if got := len(sink.pulses(0)); got != 2 {
		t.Fatalf("second burst pulse missing (pulses=%d)", got)
	}
	if l.BurstRemaining != 0 {
		t.Errorf("BurstRemaining = %d, want 0", l.BurstRemaining)
	}
	// After draining, the normal schedule resumes from the burst pacing due.
	if l.NextDue != 300+eng.cfg.BurstIntervalMS {
		t.Errorf("NextDue after burst = %d, want %d", l.NextDue, 300+eng.cfg.BurstIntervalMS)
	}
}

func TestResyncAfterLongStall(t *testing.T) {
	eng, _, sink := newTestEngine(t, testEngineConfig(1.0), nil)
	eng.Start(0) // NextDue = 1000

	// 9 periods behind: fire once and restart from now, no backlog replay.
	eng.Tick(10000)
	if got := len(sink.pulses(0)); got != 1 {
		t.Fatalf("pulses = %d, want exactly 1", got)
	}
	if got := eng.lanes[0].NextDue; got != 11000 {
		t.Errorf("NextDue = %d, want resynced to 11000", got)
	}
}

func TestTimedNudgeExpires(t *testing.T) {
	eng, _, _ := newTestEngine(t, testEngineConfig(1.0), nil)
	eng.Start(0)

	l := &eng.lanes[0]
	l.NudgeMul = 1.5
	l.NudgeTimed = true
	l.NudgeUntil = 2000

	eng.Tick(1999)
	if math.Abs(l.NudgeMul-1.5) > 1e-9 {
		t.Fatalf("nudge expired early: mul=%v", l.NudgeMul)
	}
	eng.Tick(2000)
	if l.NudgeMul != 1.0 || l.NudgeTimed {
		t.Errorf("nudge not reverted: mul=%v timed=%v", l.NudgeMul, l.NudgeTimed)
	}
}

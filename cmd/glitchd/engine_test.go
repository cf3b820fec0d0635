package main

import (
	"math"
	"testing"
)

func TestNewEngineValidation(t *testing.T) {
	cfg := testEngineConfig()

	bad := cfg
	bad.LaneHz = nil
	if _, err := NewEngine(bad, nil, nil, nil); err == nil {
		t.Error("zero lanes accepted")
	}

	bad = cfg
	bad.LaneHz = []float64{1.0, -0.5}
	if _, err := NewEngine(bad, nil, nil, nil); err == nil {
		t.Error("non-positive lane rate accepted")
	}

	bad = cfg
	bad.Weights = EffectWeights{Beat: 0.6, SyncLock: 0.6}
	if _, err := NewEngine(bad, nil, nil, nil); err == nil {
		t.Error("invalid weights accepted")
	}
}

func TestModeExclusivity(t *testing.T) {
	eng, _, sink := newTestEngine(t, testEngineConfig(), nil)
	eng.Start(0)

	eng.Trigger(EffectAccel, 0)
	if eng.Mode() != ModeAccel {
		t.Fatalf("mode = %v, want accel", eng.Mode())
	}

	// A second mode-occupying effect is a silent no-op while one is active.
	eng.Trigger(EffectSyncLock, 10)
	eng.Trigger(EffectBeat, 20)
	if eng.Mode() != ModeAccel {
		t.Errorf("mode = %v after concurrent triggers, want accel", eng.Mode())
	}
	if got := len(sink.started()); got != 1 {
		t.Errorf("EffectStarted count = %d, want 1", got)
	}
}

func TestReorgRotatesRatesWithoutTakingMode(t *testing.T) {
	eng, _, sink := newTestEngine(t, testEngineConfig(1.00, 0.98, 1.02, 1.01), nil)
	eng.Start(0)

	eng.Trigger(EffectReorg, 100)

	want := []float64{0.98, 1.02, 1.01, 1.00}
	for i, l := range eng.Lanes() {
		if math.Abs(l.BaseHz-want[i]) > 1e-9 {
			t.Errorf("lane %d BaseHz = %v, want %v", i, l.BaseHz, want[i])
		}
	}
	if eng.Mode() != ModeNormal {
		t.Errorf("mode = %v, want normal", eng.Mode())
	}

	// Instantaneous: Started immediately followed by Ended.
	st, en := sink.started(), sink.ended()
	if len(st) != 1 || len(en) != 1 || st[0].Kind != EffectReorg || en[0].Kind != EffectReorg {
		t.Errorf("reorg events = %+v / %+v", st, en)
	}
}

func TestReorgAndSubtleRunDuringActiveEffect(t *testing.T) {
	eng, _, sink := newTestEngine(t, testEngineConfig(), nil)
	eng.Start(0)

	eng.Trigger(EffectAccel, 0)
	before := eng.Lanes()[0].BaseHz

	eng.Trigger(EffectReorg, 10)
	eng.Trigger(EffectSubtleGlitch, 20)

	if eng.Mode() != ModeAccel {
		t.Errorf("mode = %v, want accel to stay active", eng.Mode())
	}
	if eng.Lanes()[0].BaseHz == before {
		t.Error("reorg did not rotate rates while accel was active")
	}
	if got := len(sink.glitches()); got != 1 {
		t.Errorf("subtle glitches = %d, want 1", got)
	}
}

func TestSubtleGlitchSplit(t *testing.T) {
	// Scripted draws: lane pick, then the 100-sided split roll, then the
	// per-glitch parameter draws.
	rng := &scriptRand{ints: []int{
		1, 10, 40, 1000, // nudge: pct draw 40 over [-25,25] = +15%, dur 2000+1000
		2, 50, 500, // freeze: dur 1500+500
		3, 90, 2, // burst: count 2+2
	}}
	eng, _, sink := newTestEngine(t, testEngineConfig(), rng)
	eng.Start(0)

	eng.Trigger(EffectSubtleGlitch, 100)
	eng.Trigger(EffectSubtleGlitch, 100)
	eng.Trigger(EffectSubtleGlitch, 100)

	gs := sink.glitches()
	if len(gs) != 3 {
		t.Fatalf("glitch events = %d, want 3", len(gs))
	}

	if gs[0].Glitch != "nudge" || gs[0].Lane != 1 {
		t.Errorf("glitch[0] = %+v, want nudge on lane 1", gs[0])
	}
	l1 := eng.Lanes()[1]
	if math.Abs(l1.NudgeMul-1.15) > 1e-9 || !l1.NudgeTimed || l1.NudgeUntil != 3100 {
		t.Errorf("nudge state = mul=%v timed=%v until=%d, want 1.15 timed until 3100",
			l1.NudgeMul, l1.NudgeTimed, l1.NudgeUntil)
	}

	if gs[1].Glitch != "freeze" || gs[1].Lane != 2 {
		t.Errorf("glitch[1] = %+v, want freeze on lane 2", gs[1])
	}
	l2 := eng.Lanes()[2]
	if !l2.Frozen || l2.FreezeUntil != 2100 {
		t.Errorf("freeze state = frozen=%v until=%d, want frozen until 2100", l2.Frozen, l2.FreezeUntil)
	}

	if gs[2].Glitch != "burst" || gs[2].Lane != 3 {
		t.Errorf("glitch[2] = %+v, want burst on lane 3", gs[2])
	}
	if got := eng.Lanes()[3].BurstRemaining; got != 4 {
		t.Errorf("BurstRemaining = %d, want 4", got)
	}
}

func TestDispatcherLaunchRoll(t *testing.T) {
	cfg := testEngineConfig()
	cfg.GlitchChancePct = 35

	// First check: roll 99 fails the chance. Second check: roll 0 passes and
	// the 0.999 draw lands in the subtle fallback bucket.
	rng := &scriptRand{
		ints:   []int{99, 0, 0, 10, 40, 1000},
		floats: []float64{0.999},
	}
	eng, _, sink := newTestEngine(t, cfg, rng)
	eng.Start(0) // first check due at 4000

	eng.Tick(4000)
	if got := len(sink.glitches()); got != 0 {
		t.Fatalf("effect launched on a failed chance roll (glitches=%d)", got)
	}

	eng.Tick(8000)
	if got := len(sink.glitches()); got != 1 {
		t.Errorf("glitches = %d, want 1 after a passing roll", got)
	}
	if eng.Mode() != ModeNormal {
		t.Errorf("mode = %v, want normal (subtle never takes the mode)", eng.Mode())
	}
}

func TestDispatcherSkipsWhileModeActive(t *testing.T) {
	cfg := testEngineConfig()
	cfg.GlitchChancePct = 100
	eng, _, sink := newTestEngine(t, cfg, nil)
	eng.Start(0)

	eng.Trigger(EffectLongPause, 0) // occupies the mode well past the check
	startedBefore := len(sink.started())

	eng.Tick(4000)
	if got := len(sink.started()); got != startedBefore {
		t.Errorf("dispatcher launched while a mode was active (started=%d)", got)
	}
}

func TestSyncLockCooldown(t *testing.T) {
	eng, _, sink := newTestEngine(t, testEngineConfig(), nil)
	eng.Start(0)

	eng.Trigger(EffectSyncLock, 0)
	if eng.Mode() != ModeSyncLock {
		t.Fatalf("mode = %v, want sync_lock", eng.Mode())
	}
	eng.Tick(8000) // default duration elapses, cooldown 60s starts
	if eng.Mode() != ModeNormal {
		t.Fatalf("mode = %v after duration, want normal", eng.Mode())
	}

	eng.Trigger(EffectSyncLock, 10000)
	if got := len(sink.started()); got != 1 {
		t.Errorf("sync-lock relaunched inside cooldown (started=%d)", got)
	}

	eng.Trigger(EffectSyncLock, 68001) // cooldown ended at 8000+60000
	if got := len(sink.started()); got != 2 {
		t.Errorf("sync-lock did not relaunch after cooldown (started=%d)", got)
	}
}

func TestLongPauseCooldown(t *testing.T) {
	cfg := testEngineConfig()
	eng, _, sink := newTestEngine(t, cfg, nil)
	eng.Start(0)

	eng.Trigger(EffectLongPause, 0) // centerRand duration: midpoint of [4000,12000] = 8000
	eng.Tick(8000)
	if eng.Mode() != ModeNormal {
		t.Fatalf("mode = %v after pause, want normal", eng.Mode())
	}

	eng.Trigger(EffectLongPause, 9000)
	if got := len(sink.started()); got != 1 {
		t.Errorf("long pause relaunched inside cooldown (started=%d)", got)
	}

	eng.Trigger(EffectLongPause, 8000+cfg.LongPause.CooldownMS+1)
	if got := len(sink.started()); got != 2 {
		t.Errorf("long pause did not relaunch after cooldown (started=%d)", got)
	}
}

func TestWatchdogRearmsSilentLanes(t *testing.T) {
	eng, _, sink := newTestEngine(t, testEngineConfig(1.0, 1.0), nil)
	eng.Start(0)

	// Park both lanes far in the future so nothing fires on its own.
	eng.lanes[0].NextDue = 1 << 30
	eng.lanes[1].NextDue = 1 << 30
	eng.lanes[1].Running = false

	eng.Tick(29999)
	if len(sink.events) != 0 {
		t.Fatalf("watchdog fired early: %+v", sink.events)
	}

	eng.Tick(30000)
	var kicks []WatchdogKicked
	for _, ev := range sink.events {
		if v, ok := ev.(WatchdogKicked); ok {
			kicks = append(kicks, v)
		}
	}
	if len(kicks) != 1 || kicks[0].SilentMS != 30000 {
		t.Fatalf("kicks = %+v, want one kick after 30000ms of silence", kicks)
	}
	if got := eng.lanes[0].NextDue; got != 31000 {
		t.Errorf("running lane NextDue = %d, want re-armed to 31000", got)
	}
	if got := eng.lanes[1].NextDue; got != 1<<30 {
		t.Errorf("stopped lane NextDue = %d, want untouched", got)
	}

	// One kick per silent window, not one per tick.
	eng.Tick(30001)
	total := 0
	for _, ev := range sink.events {
		if _, ok := ev.(WatchdogKicked); ok {
			total++
		}
	}
	if total != 1 {
		t.Errorf("watchdog kicked %d times, want 1", total)
	}
}

func TestWatchdogIdlesDuringEffect(t *testing.T) {
	cfg := testEngineConfig(1.0)
	cfg.LongPause.MinMS = 40000
	cfg.LongPause.MaxMS = 40000
	eng, _, sink := newTestEngine(t, cfg, nil)
	eng.Start(0)

	eng.Trigger(EffectLongPause, 0)
	eng.Tick(35000) // silent past the watchdog threshold, but a mode is active
	for _, ev := range sink.events {
		if _, ok := ev.(WatchdogKicked); ok {
			t.Fatal("watchdog fired while an effect held the mode")
		}
	}
}

func TestPickTwoLanesDistinct(t *testing.T) {
	eng, _, _ := newTestEngine(t, testEngineConfig(), sysRand{})
	for i := 0; i < 100; i++ {
		a, b := eng.pickTwoLanes()
		if a == b {
			t.Fatal("pickTwoLanes returned the same lane twice with 4 lanes")
		}
		if a < 0 || a >= 4 || b < 0 || b >= 4 {
			t.Fatalf("lane index out of range: %d, %d", a, b)
		}
	}

	single, _, _ := newTestEngine(t, testEngineConfig(1.0), sysRand{})
	a, b := single.pickTwoLanes()
	if a != 0 || b != 0 {
		t.Errorf("single-lane pick = %d, %d, want 0, 0", a, b)
	}
}

func TestQuiesceDropsAllDrive(t *testing.T) {
	eng, out, _ := newTestEngine(t, testEngineConfig(1.0, 1.0), nil)
	eng.Start(0)
	eng.Tick(1000) // both fire (same rate, same phase, zero jitter)

	eng.Quiesce(1010)
	for i := range eng.lanes {
		if eng.lanes[i].PulseOn {
			t.Errorf("lane %d still energized after Quiesce", i)
		}
	}
	offs := 0
	for _, c := range out.calls {
		if c.kind == "enable" && !c.on {
			offs++
		}
	}
	if offs < 2 {
		t.Errorf("enable-off calls = %d, want one per lane", offs)
	}
}

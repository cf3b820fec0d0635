package main

import "testing"

func TestWeightTableCumulativeBuckets(t *testing.T) {
	w := EffectWeights{Beat: 0.1, SyncLock: 0.2, Reorg: 0.1}
	table, err := buildWeightTable(w)
	if err != nil {
		t.Fatalf("buildWeightTable: %v", err)
	}

	tests := []struct {
		u    float64
		want EffectKind
	}{
		{0.0, EffectBeat},
		{0.09, EffectBeat},
		{0.1, EffectSyncLock},
		{0.29, EffectSyncLock},
		{0.3, EffectReorg},
		{0.39, EffectReorg},
		{0.4, EffectSubtleGlitch},
		{0.99, EffectSubtleGlitch},
	}
	for _, tt := range tests {
		if got := table.pick(tt.u); got != tt.want {
			t.Errorf("pick(%v) = %v, want %v", tt.u, got, tt.want)
		}
	}
}

func TestWeightTableDefaultsLeaveFallbackRoom(t *testing.T) {
	w := DefaultConfig().Weights.toWeights()
	table, err := buildWeightTable(w)
	if err != nil {
		t.Fatalf("default weights rejected: %v", err)
	}
	// Anything past the named buckets resolves to the subtle fallback.
	if got := table.pick(0.999); got != EffectSubtleGlitch {
		t.Errorf("pick(0.999) = %v, want subtle fallback", got)
	}
}

func TestWeightTableSkipsZeroWeights(t *testing.T) {
	w := EffectWeights{Decel: 0.5}
	table, err := buildWeightTable(w)
	if err != nil {
		t.Fatalf("buildWeightTable: %v", err)
	}
	if len(table.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(table.entries))
	}
	if got := table.pick(0.25); got != EffectDecel {
		t.Errorf("pick(0.25) = %v, want decel", got)
	}
	if got := table.pick(0.5); got != EffectSubtleGlitch {
		t.Errorf("pick(0.5) = %v, want subtle fallback", got)
	}
}

func TestWeightTableRejectsBadWeights(t *testing.T) {
	if _, err := buildWeightTable(EffectWeights{Beat: -0.1}); err == nil {
		t.Error("negative weight accepted")
	}
	if _, err := buildWeightTable(EffectWeights{Beat: 0.5, SyncLock: 0.5}); err == nil {
		t.Error("weights summing to 1.0 accepted; the fallback bucket needs a remainder")
	}
	if _, err := buildWeightTable(EffectWeights{Beat: 0.7, SyncLock: 0.7}); err == nil {
		t.Error("weights summing past 1.0 accepted")
	}
}

func TestEffectKindStrings(t *testing.T) {
	kinds := []EffectKind{
		EffectSubtleGlitch, EffectBeat, EffectSyncLock, EffectLongPause,
		EffectStaggerBlackout, EffectAccel, EffectDecel, EffectScopeCreep,
		EffectPhaseSnap, EffectCounterbalance, EffectEmailStorm, EffectReorg,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		s := k.String()
		if s == "" || seen[s] {
			t.Errorf("kind %d: bad or duplicate string %q", int(k), s)
		}
		seen[s] = true
	}
}

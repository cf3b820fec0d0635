package main

import (
	"errors"
	"fmt"
)

// EffectKind identifies one entry of the effect library. It is a closed
// enumeration: the dispatcher resolves weighted draws to a kind and the
// engine constructs the matching state machine.
type EffectKind int

const (
	// EffectSubtleGlitch is the implicit fallback bucket of the weight
	// table: a single-lane nudge, freeze or burst.
	EffectSubtleGlitch EffectKind = iota
	EffectBeat
	EffectSyncLock
	EffectLongPause
	EffectStaggerBlackout
	EffectAccel
	EffectDecel
	EffectScopeCreep
	EffectPhaseSnap
	EffectCounterbalance
	EffectEmailStorm
	EffectReorg
)

func (k EffectKind) String() string {
	switch k {
	case EffectSubtleGlitch:
		return "subtle_glitch"
	case EffectBeat:
		return "beat"
	case EffectSyncLock:
		return "sync_lock"
	case EffectLongPause:
		return "long_pause"
	case EffectStaggerBlackout:
		return "stagger_blackout"
	case EffectAccel:
		return "accel"
	case EffectDecel:
		return "decel"
	case EffectScopeCreep:
		return "scope_creep"
	case EffectPhaseSnap:
		return "phase_snap"
	case EffectCounterbalance:
		return "counterbalance"
	case EffectEmailStorm:
		return "email_storm"
	case EffectReorg:
		return "reorg"
	default:
		return fmt.Sprintf("effect(%d)", int(k))
	}
}

// EffectWeights holds the per-effect launch weights. The named weights must
// each be >= 0 and sum to < 1.0; the remainder up to 1.0 is the implicit
// subtle-glitch bucket.
type EffectWeights struct {
	Beat            float64
	SyncLock        float64
	LongPause       float64
	StaggerBlackout float64
	Accel           float64
	Decel           float64
	ScopeCreep      float64
	PhaseSnap       float64
	Counterbalance  float64
	EmailStorm      float64
	Reorg           float64
}

// ordered returns the weights in their fixed table order.
func (w EffectWeights) ordered() []struct {
	kind   EffectKind
	weight float64
} {
	return []struct {
		kind   EffectKind
		weight float64
	}{
		{EffectBeat, w.Beat},
		{EffectSyncLock, w.SyncLock},
		{EffectLongPause, w.LongPause},
		{EffectStaggerBlackout, w.StaggerBlackout},
		{EffectAccel, w.Accel},
		{EffectDecel, w.Decel},
		{EffectScopeCreep, w.ScopeCreep},
		{EffectPhaseSnap, w.PhaseSnap},
		{EffectCounterbalance, w.Counterbalance},
		{EffectEmailStorm, w.EmailStorm},
		{EffectReorg, w.Reorg},
	}
}

type weightEntry struct {
	kind  EffectKind
	upper float64 // cumulative upper bound, exclusive
}

// weightTable is the cumulative distribution derived from EffectWeights.
// It is built once at engine construction.
type weightTable struct {
	entries []weightEntry
}

// buildWeightTable validates the weights and computes cumulative bounds.
func buildWeightTable(w EffectWeights) (weightTable, error) {
	var t weightTable
	sum := 0.0
	for _, e := range w.ordered() {
		if e.weight < 0 {
			return weightTable{}, fmt.Errorf("weight for %s must be >= 0, got %v", e.kind, e.weight)
		}
		if e.weight == 0 {
			continue
		}
		sum += e.weight
		t.entries = append(t.entries, weightEntry{kind: e.kind, upper: sum})
	}
	if sum >= 1.0 {
		return weightTable{}, errors.New("effect weights must sum to < 1.0 (remainder is the subtle-glitch bucket)")
	}
	return t, nil
}

// pick resolves a uniform draw in [0, 1) to an effect kind. Draws past all
// named buckets land in the implicit subtle-glitch bucket, whose upper bound
// is exactly 1.0, so every draw matches exactly one bucket.
func (t weightTable) pick(u float64) EffectKind {
	for _, e := range t.entries {
		if u < e.upper {
			return e.kind
		}
	}
	return EffectSubtleGlitch
}

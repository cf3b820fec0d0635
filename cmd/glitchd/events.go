package main

import "log/slog"

// Events are the engine's observable output besides actuator calls. The
// contract tests care about occurrence and ordering (one Started before the
// matching Ended, no interleaved Started while a mode-occupying effect is
// active), not about presentation; sinks decide how to render them.

// Event is a discrete engine notification.
type Event interface {
	eventMarker()
}

// EffectStarted is emitted when an effect's start routine has run. Reorg,
// being instantaneous, emits Started immediately followed by Ended.
type EffectStarted struct {
	Kind   EffectKind
	At     uint32
	Detail string // human-readable chosen parameters
}

func (EffectStarted) eventMarker() {}

// EffectProgress marks an effect-internal milestone (a storm burst round, a
// completed beat bar).
type EffectProgress struct {
	Kind   EffectKind
	At     uint32
	Detail string
}

func (EffectProgress) eventMarker() {}

// EffectEnded is emitted after an effect's end routine restored Normal mode.
type EffectEnded struct {
	Kind EffectKind
	At   uint32
}

func (EffectEnded) eventMarker() {}

// SubtleGlitchApplied reports a fallback-bucket glitch on a single lane.
// Glitch is one of "nudge", "freeze", "burst".
type SubtleGlitchApplied struct {
	Lane   int
	Glitch string
	At     uint32
	Detail string
}

func (SubtleGlitchApplied) eventMarker() {}

// PulseFired is emitted for every pulse, scheduler- or effect-driven.
type PulseFired struct {
	Lane     int
	Polarity bool
	At       uint32
}

func (PulseFired) eventMarker() {}

// WatchdogKicked reports that the liveness watchdog re-armed the running
// lanes after a silent window.
type WatchdogKicked struct {
	At       uint32
	SilentMS uint32
}

func (WatchdogKicked) eventMarker() {}

// EventSink consumes engine events. Emit is called from inside the engine
// tick and must not block.
type EventSink interface {
	Emit(Event)
}

// nopSink discards everything.
type nopSink struct{}

func (nopSink) Emit(Event) {}

// multiSink fans one event out to several sinks.
type multiSink []EventSink

func (m multiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// logSink renders events through slog. Effect lifecycle logs at info,
// individual pulses at debug so a normal run stays readable.
type logSink struct {
	logger *slog.Logger
}

func newLogSink(logger *slog.Logger) *logSink {
	return &logSink{logger: logger}
}

func (s *logSink) Emit(ev Event) {
	switch v := ev.(type) {
	case PulseFired:
		s.logger.Debug("pulse", "lane", v.Lane, "polarity", v.Polarity, "t_ms", v.At)
	case EffectStarted:
		s.logger.Info("effect start", "effect", v.Kind.String(), "detail", v.Detail, "t_ms", v.At)
	case EffectProgress:
		s.logger.Info("effect progress", "effect", v.Kind.String(), "detail", v.Detail, "t_ms", v.At)
	case EffectEnded:
		s.logger.Info("effect end", "effect", v.Kind.String(), "t_ms", v.At)
	case SubtleGlitchApplied:
		s.logger.Info("subtle glitch", "lane", v.Lane, "glitch", v.Glitch, "detail", v.Detail, "t_ms", v.At)
	case WatchdogKicked:
		s.logger.Warn("watchdog re-armed lanes", "silent_ms", v.SilentMS, "t_ms", v.At)
	}
}

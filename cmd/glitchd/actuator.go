package main

import "log/slog"

// Actuator is the per-lane drive capability the engine consumes. Calls must
// never block; they happen inside the tick. Implementations swallow I/O
// errors (logging them) so a flaky drive line cannot stall the scheduler.
type Actuator interface {
	// SetPolarity asserts the pulse direction for the lane.
	SetPolarity(lane int, forward bool)
	// Enable switches the lane's drive current on or off.
	Enable(lane int, on bool)
	Close() error
}

// nopActuator discards drive calls. Used for -dry-run and as the default
// when GPIO is disabled.
type nopActuator struct {
	logger *slog.Logger
}

func newNopActuator(logger *slog.Logger) nopActuator {
	return nopActuator{logger: logger}
}

func (a nopActuator) SetPolarity(lane int, forward bool) {
	if a.logger != nil {
		a.logger.Debug("actuator set polarity", "lane", lane, "forward", forward)
	}
}

func (a nopActuator) Enable(lane int, on bool) {
	if a.logger != nil {
		a.logger.Debug("actuator enable", "lane", lane, "on", on)
	}
}

func (nopActuator) Close() error { return nil }

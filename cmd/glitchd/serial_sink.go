package main

import (
	"fmt"
	"log/slog"

	"go.bug.st/serial"
)

// serialSink mirrors engine events as human-readable lines on a serial
// console, the installation's traditional debug wire. Emit never blocks:
// lines go through a buffered channel and are dropped when the writer falls
// behind.
type serialSink struct {
	port   serial.Port
	lines  chan string
	logger *slog.Logger
}

func newSerialSink(cfg SerialConfig, logger *slog.Logger) (*serialSink, error) {
	mode := &serial.Mode{BaudRate: cfg.BaudRate}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}

	s := &serialSink{
		port:   port,
		lines:  make(chan string, serialQueueLen),
		logger: logger,
	}
	go s.writeLoop()
	logger.Info("serial event log ready", "port", cfg.Port, "baud", cfg.BaudRate)
	return s, nil
}

func (s *serialSink) Emit(ev Event) {
	line, ok := formatEventLine(ev)
	if !ok {
		return
	}
	select {
	case s.lines <- line:
	default:
		// Writer behind; dropping beats stalling the tick.
	}
}

func (s *serialSink) writeLoop() {
	for line := range s.lines {
		if _, err := s.port.Write([]byte(line + "\r\n")); err != nil {
			s.logger.Error("serial write failed, stopping serial log", "error", err)
			return
		}
	}
}

func (s *serialSink) Close() error {
	close(s.lines)
	return s.port.Close()
}

// formatEventLine renders an event for the console. Pulses are skipped to
// keep a 115200-baud line comfortable.
func formatEventLine(ev Event) (string, bool) {
	switch v := ev.(type) {
	case EffectStarted:
		return fmt.Sprintf("[%dms] effect start %s %s", v.At, v.Kind, v.Detail), true
	case EffectProgress:
		return fmt.Sprintf("[%dms] effect progress %s %s", v.At, v.Kind, v.Detail), true
	case EffectEnded:
		return fmt.Sprintf("[%dms] effect end %s", v.At, v.Kind), true
	case SubtleGlitchApplied:
		return fmt.Sprintf("[%dms] subtle %s lane=%d %s", v.At, v.Glitch, v.Lane, v.Detail), true
	case WatchdogKicked:
		return fmt.Sprintf("[%dms] watchdog re-arm silent=%dms", v.At, v.SilentMS), true
	default:
		return "", false
	}
}

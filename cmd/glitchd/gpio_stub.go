//go:build !linux

package main

import (
	"errors"
	"log/slog"
)

// The real actuator needs the Linux GPIO character device; other platforms
// can only run with -dry-run.
func newGPIOActuator(cfg GPIOConfig, logger *slog.Logger) (Actuator, error) {
	return nil, errors.New("gpio actuator requires linux (use -dry-run elsewhere)")
}

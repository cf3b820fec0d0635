package main

import (
	"context"
	"log/slog"
	"time"
)

// runDaemon owns the engine. Every state mutation happens here, on the tick
// goroutine; everything else observes through sinks.
func runDaemon(ctx context.Context, eng *Engine, clock Clock, tickHz int, logger *slog.Logger) error {
	interval := time.Second / time.Duration(tickHz)
	if interval <= 0 {
		interval = time.Millisecond
	}

	logger.Info("daemon loop starting", "tick_hz", tickHz, "tick_interval", interval)

	eng.Start(clock.NowMS())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon loop stopping (context canceled)")
			eng.Quiesce(clock.NowMS())
			return nil

		case <-ticker.C:
			eng.Tick(clock.NowMS())
		}
	}
}

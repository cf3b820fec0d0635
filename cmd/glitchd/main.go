package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config file (defaults apply when omitted)")
		tickHzFlag  = flag.Int("tick-hz", defaultTickHz, "scheduler tick rate override")
		glitchFlag  = flag.Int("glitch-chance", defaultGlitchChancePct, "per-check effect launch chance override (0-100)")
		gpioFlag    = flag.String("gpio-chip", defaultGPIOChip, "gpio character device override")
		dryRunFlag  = flag.Bool("dry-run", false, "disable the gpio actuator, log drive calls instead")
		monAddrFlag = flag.String("monitor-addr", defaultMonitorAddr, "enable the monitor websocket on this address")
		serialFlag  = flag.String("serial-port", "", "enable the serial event log on this port")
		levelFlag   = flag.String("log-level", "info", "log level: error, warn, info, debug")
		formatFlag  = flag.String("log-format", "text", "log format: text or json")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("glitchd " + version)
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "glitchd: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags the user actually set override the file.
	var ov FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tick-hz":
			ov.TickHz = tickHzFlag
		case "glitch-chance":
			ov.GlitchChancePct = glitchFlag
		case "gpio-chip":
			ov.GPIOChip = gpioFlag
		case "dry-run":
			ov.DryRun = dryRunFlag
		case "monitor-addr":
			ov.MonitorAddr = monAddrFlag
		case "serial-port":
			ov.SerialPort = serialFlag
		case "log-level":
			ov.LogLevel = levelFlag
		case "log-format":
			ov.LogFormat = formatFlag
		}
	})
	ov.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "glitchd: invalid config: %v\n", err)
		os.Exit(1)
	}

	level, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "glitchd: %v\n", err)
		os.Exit(1)
	}
	logger := setupLogger(level, cfg.Logging.Format)

	logger.Info("glitchd starting",
		"version", version,
		"lanes", len(cfg.Lanes),
		"tick_hz", cfg.Timing.TickHz,
		"gpio", cfg.GPIO.Enabled,
		"monitor", cfg.Monitor.Enabled,
		"serial", cfg.Serial.Enabled)

	var out Actuator
	if cfg.GPIO.Enabled {
		a, err := newGPIOActuator(cfg.GPIO, logger)
		if err != nil {
			logger.Error("gpio actuator setup failed", "error", err)
			os.Exit(1)
		}
		out = a
	} else {
		out = newNopActuator(logger)
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Warn("actuator close failed", "error", err)
		}
	}()

	sinks := multiSink{newLogSink(logger)}

	var hub *Hub
	var monSink *monitorSink
	if cfg.Monitor.Enabled {
		hub = newHub(logger)
		monSink = &monitorSink{hub: hub}
		sinks = append(sinks, monSink)
	}

	if cfg.Serial.Enabled {
		ss, err := newSerialSink(cfg.Serial, logger)
		if err != nil {
			logger.Error("serial event log setup failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := ss.Close(); err != nil {
				logger.Warn("serial close failed", "error", err)
			}
		}()
		sinks = append(sinks, ss)
	}

	eng, err := NewEngine(cfg.ToEngineConfig(), out, sinks, sysRand{})
	if err != nil {
		logger.Error("engine setup failed", "error", err)
		os.Exit(1)
	}
	if monSink != nil {
		monSink.eng = eng
	}

	clock := newMonotonicClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Monitor.Enabled {
		g.Go(func() error { return hub.Run(gctx) })
		g.Go(func() error { return runMonitorServer(gctx, cfg.Monitor.ListenAddr, hub, logger) })
	}

	g.Go(func() error { return runDaemon(gctx, eng, clock, cfg.Timing.TickHz, logger) })

	if err := g.Wait(); err != nil {
		logger.Error("glitchd exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("glitchd stopped")
}

package main

// Engine timing defaults. Everything is in milliseconds on the wrapping
// uint32 clock unless noted otherwise.
const (
	defaultTickHz = 200 // control loop frequency (Hz)

	defaultPulseWidthMS    = 80  // drive-on time per pulse
	defaultMinOffMS        = 120 // mandatory off time after a pulse
	defaultJitterMS        = 25  // signed jitter bound for autonomous scheduling
	defaultFreezeDeferMS   = 5   // how far a frozen lane pushes its next due
	defaultBurstIntervalMS = 180 // pacing between owed burst pulses

	// A lane that has drifted more than this many periods behind does not
	// replay the backlog; it resynchronizes from "now" instead.
	resyncAfterPeriods = 4

	// Floor for base_hz * nudge_mul so period math never divides by zero.
	minEffectiveHz = 0.05
)

// Mode dispatcher defaults.
const (
	defaultCheckIntervalMS = 4000 // how often the dispatcher considers launching
	defaultCheckJitterMS   = 1500 // jitter bound on the check interval
	defaultGlitchChancePct = 35   // chance per check that anything launches
)

// Subtle per-lane glitch split (percent of the fallback bucket).
const (
	subtleNudgePct  = 40
	subtleFreezePct = 25
	// burst takes the remaining 35
)

// Watchdog and per-effect scheduling constants.
const (
	defaultWatchdogMS = 30000 // silence threshold before lanes are re-armed
	watchdogJitterMS  = 40    // jitter bound for watchdog re-arm

	staggerJitterGrowMS = 3 // extra jitter bound per lane index on blackout release
	beatStepJitterMS    = 4 // timing wobble applied to beat steps
)

// Monitor/serial edge defaults.
const (
	defaultMonitorAddr  = "127.0.0.1:8717"
	defaultSerialBaud   = 115200
	defaultGPIOChip     = "/dev/gpiochip0"
	serialQueueLen      = 128
	hubBroadcastBuf     = 128
	hubClientSendBuf    = 32
	hubRegisterBuf      = 16
	wsWriteWaitDefault  = 5  // seconds
	wsPingPeriodDefault = 30 // seconds
)

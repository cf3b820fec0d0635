//go:build linux

package main

import (
	"fmt"
	"log/slog"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// gpioActuator drives the lanes through the Linux GPIO character device
// (uAPI v2). Each lane owns two output lines: a polarity line and an enable
// line. All lines are requested in a single line handle so one ioctl can
// update any of them.
type gpioActuator struct {
	chip   *os.File
	lineFd int32
	lanes  int
	bits   uint64 // cached desired level per requested line
	logger *slog.Logger
}

func newGPIOActuator(cfg GPIOConfig, logger *slog.Logger) (*gpioActuator, error) {
	if len(cfg.Lanes) == 0 {
		return nil, fmt.Errorf("gpio enabled but no lane pins configured")
	}
	if 2*len(cfg.Lanes) > len(unix.GPIOV2LineRequest{}.Offsets) {
		return nil, fmt.Errorf("too many gpio lanes: %d", len(cfg.Lanes))
	}

	chip, err := os.OpenFile(cfg.Chip, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", cfg.Chip, err)
	}

	var req unix.GPIOV2LineRequest
	copy(req.Consumer[:], "glitchd")
	req.Config.Flags = unix.GPIO_V2_LINE_FLAG_OUTPUT
	req.Num_lines = uint32(2 * len(cfg.Lanes))
	for i, lc := range cfg.Lanes {
		req.Offsets[2*i] = uint32(lc.PolarityPin)
		req.Offsets[2*i+1] = uint32(lc.EnablePin)
	}

	if err := ioctlPtr(int(chip.Fd()), unix.GPIO_V2_GET_LINE_IOCTL, unsafe.Pointer(&req)); err != nil {
		chip.Close()
		return nil, fmt.Errorf("request gpio lines on %s: %w", cfg.Chip, err)
	}

	logger.Info("gpio actuator ready", "chip", cfg.Chip, "lanes", len(cfg.Lanes))
	return &gpioActuator{
		chip:   chip,
		lineFd: req.Fd,
		lanes:  len(cfg.Lanes),
		logger: logger,
	}, nil
}

func (g *gpioActuator) SetPolarity(lane int, forward bool) {
	g.apply(2*lane, forward)
}

func (g *gpioActuator) Enable(lane int, on bool) {
	g.apply(2*lane+1, on)
}

// apply updates one line's cached level and pushes it to the kernel. Errors
// are logged, never surfaced into the tick.
func (g *gpioActuator) apply(bit int, on bool) {
	if bit < 0 || bit >= 2*g.lanes {
		return
	}
	mask := uint64(1) << uint(bit)
	if on {
		g.bits |= mask
	} else {
		g.bits &^= mask
	}
	vals := unix.GPIOV2LineValues{Bits: g.bits, Mask: mask}
	if err := ioctlPtr(int(g.lineFd), unix.GPIO_V2_LINE_SET_VALUES_IOCTL, unsafe.Pointer(&vals)); err != nil {
		g.logger.Error("gpio set line values failed", "bit", bit, "error", err)
	}
}

func (g *gpioActuator) Close() error {
	var vals = unix.GPIOV2LineValues{Bits: 0, Mask: ^uint64(0)}
	// Best effort: drop every line before releasing the handle.
	_ = ioctlPtr(int(g.lineFd), unix.GPIO_V2_LINE_SET_VALUES_IOCTL, unsafe.Pointer(&vals))
	_ = unix.Close(int(g.lineFd))
	return g.chip.Close()
}

func ioctlPtr(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package miniscope

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/miniscope/pkg/capture"
)

// State is the acquisition loop state.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateRunning
	StateDraining
	StateClosed
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateInitializing:
		return "INITIALIZING"
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	case StateClosed:
		return "CLOSED"
	case StateFaulted:
		return "FAULTED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config selects the device a loop or source acquires from.
type Config struct {
	Variant *Variant
	Index   int
	Opener  capture.Opener
	// Settings are read every cycle. Nil uses the variant defaults.
	Settings *Settings
}

// Loop runs one acquisition session against one capture handle.
type Loop struct {
	variant  *Variant
	index    int
	open     capture.Opener
	settings *Settings
	stats    *Statistics
	now      func() time.Time

	state atomic.Int32
}

// NewLoop returns a loop for cfg. stats may be nil.
func NewLoop(cfg Config, stats *Statistics) *Loop {
	settings := cfg.Settings
	if settings == nil {
		settings = NewSettings(cfg.Variant.Defaults)
	}
	if stats == nil {
		stats = NewStatistics()
	}
	return &Loop{
		variant:  cfg.Variant,
		index:    cfg.Index,
		open:     cfg.Opener,
		settings: settings,
		stats:    stats,
		now:      time.Now,
	}
}

// State returns the current state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setState(s State) {
	old := State(l.state.Swap(int32(s)))
	if old != s {
		Logf("miniscope: %s[%d] %s -> %s", l.variant.Name, l.index, old, s)
	}
}

// Run opens the device, initializes it and emits one frame per cycle until
// ctx is cancelled or the device reports end of stream. Cancellation is
// checked at the top of each cycle only.
//
// The device is shut down and closed exactly once on every exit path after
// a successful open. Run returns nil on cancellation and end of stream.
func (l *Loop) Run(ctx context.Context, emit func(Frame)) (err error) {
	l.setState(StateInitializing)

	dev, err := l.open(l.index)
	if err != nil {
		l.setState(StateFaulted)
		return fmt.Errorf("%w: index %d: %w", ErrDeviceOpen, l.index, err)
	}
	regs := capture.NewRegisters(dev)

	defer func() {
		if err == nil {
			l.setState(StateDraining)
		}
		if tdErr := l.teardown(dev, regs); tdErr != nil && err == nil {
			err = tdErr
		}
		if err != nil {
			Logf("miniscope: %s[%d] stopped: %v", l.variant.Name, l.index, err)
			l.setState(StateFaulted)
			return
		}
		l.setState(StateClosed)
	}()

	for _, op := range l.variant.InitOps(l.settings.Snapshot()) {
		if err := l.apply(dev, regs, op); err != nil {
			return fmt.Errorf("initialize %s: %w", l.variant.Name, err)
		}
	}

	l.setState(StateRunning)

	synchronizer := NewSynchronizer(l.variant)
	apply := func(op Op) error { return l.apply(dev, regs, op) }
	sequence := 0

	for ctx.Err() == nil {
		sample, err := ReadTelemetry(dev, l.variant.Telemetry)
		if err != nil {
			return err
		}

		if _, err := synchronizer.Sync(l.settings.Snapshot(), sample.Gate, apply); err != nil {
			return err
		}

		img, err := dev.Read()
		if errors.Is(err, io.EOF) {
			Logf("miniscope: %s[%d] end of stream after %d frames", l.variant.Name, l.index, sequence)
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransportRead, err)
		}

		frame := l.assemble(img, sample, sequence)
		sequence++
		l.stats.RecordFrame(frame.FrameMeta, l.variant.Telemetry.HasFrameCounter)
		emit(frame)
	}

	return nil
}

func (l *Loop) assemble(img image.Image, sample Sample, sequence int) Frame {
	meta := FrameMeta{
		Number:     sequence,
		Trigger:    l.variant.Telemetry.HasTrigger && sample.Gate,
		Quaternion: sample.Quaternion,
		Timestamp:  l.now(),
	}
	if l.variant.Telemetry.HasFrameCounter {
		meta.Number = sample.FrameCounter
	}
	if img != nil {
		b := img.Bounds()
		meta.Width, meta.Height = b.Dx(), b.Dy()
	}
	return Frame{FrameMeta: meta, Image: img}
}

func (l *Loop) apply(dev capture.Device, regs *capture.Registers, op Op) error {
	var err error
	if op.Direct {
		err = dev.SetProperty(op.Property, op.Value)
	} else {
		err = regs.SendCommand(op.Command)
	}
	l.stats.RecordCommand(err)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransportWrite, op, err)
	}
	return nil
}

// teardown sends the shutdown sequence best effort, then closes the device.
// The first failure is returned.
func (l *Loop) teardown(dev capture.Device, regs *capture.Registers) error {
	var first error
	for _, op := range l.variant.ShutdownOps() {
		if err := l.apply(dev, regs, op); err != nil {
			Logf("miniscope: %s[%d] shutdown: %v", l.variant.Name, l.index, err)
			if first == nil {
				first = fmt.Errorf("shutdown %s: %w", l.variant.Name, err)
			}
		}
	}
	if err := dev.Close(); err != nil {
		Logf("miniscope: %s[%d] close: %v", l.variant.Name, l.index, err)
		if first == nil {
			first = fmt.Errorf("close capture device: %w", err)
		}
	}
	return first
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package miniscope

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/miniscope/pkg/capture"
	"github.com/Thermoquad/miniscope/pkg/daq"
)

// v4InitWrites is the number of property writes in the V4 bring-up:
// 13 register commands of three writes each plus geometry and start.
const v4InitWrites = 13*3 + 3

func newTestLoop(v *Variant, sim *capture.Simulator, settings *Settings) *Loop {
	return NewLoop(Config{Variant: v, Index: 0, Opener: sim.Open, Settings: settings}, nil)
}

func collect(frames *[]Frame) func(Frame) {
	return func(f Frame) { *frames = append(*frames, f) }
}

func TestLoop_RunsUntilEndOfStream(t *testing.T) {
	sim := capture.NewSimulator()
	sim.SetFrameLimit(3)
	loop := newTestLoop(V4, sim, nil)
	assert.Equal(t, StateUninitialized, loop.State())

	var frames []Frame
	err := loop.Run(context.Background(), collect(&frames))
	require.NoError(t, err)

	require.Len(t, frames, 3)
	for i, f := range frames {
		assert.Equal(t, i, f.Number)
		assert.True(t, f.Trigger)
		require.NotNil(t, f.Quaternion)
		assert.Equal(t, daq.Quaternion{W: 1}, *f.Quaternion)
		assert.Equal(t, 608, f.Width)
		assert.Equal(t, 608, f.Height)
		assert.NotNil(t, f.Image)
	}

	assert.Equal(t, StateClosed, loop.State())
	assert.Equal(t, 1, sim.Opens())
	assert.Equal(t, 1, sim.Closes())

	// Init, one full synchronization pass, then shutdown
	cmds := sim.Commands()
	require.Len(t, cmds, 13+5+2)
	assert.Equal(t, daq.MustCommand(192, 31, 16), cmds[0])
	assert.Equal(t, daq.MustCommand(32, 1, 255), cmds[13])
	assert.Equal(t, daq.MustCommand(32, 1, 255), cmds[18])
	assert.Equal(t, daq.MustCommand(88, 0, 114, 255), cmds[19])

	writes := sim.Writes()
	assert.Equal(t, capture.PropertyWrite{Property: capture.Saturation, Value: 0}, writes[len(writes)-1])
	v, _ := sim.Written(capture.FrameWidth)
	assert.Equal(t, 608.0, v)
}

func TestLoop_CancellationDrainsAndReleases(t *testing.T) {
	sim := capture.NewSimulator()
	loop := newTestLoop(V4, sim, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var frames []Frame
	err := loop.Run(ctx, func(f Frame) {
		frames = append(frames, f)
		if len(frames) == 2 {
			cancel()
		}
	})
	require.NoError(t, err)

	assert.Len(t, frames, 2)
	assert.Equal(t, 2, sim.Frames())
	assert.Equal(t, 1, sim.Closes())
	assert.Equal(t, StateClosed, loop.State())

	writes := sim.Writes()
	assert.Equal(t, capture.Saturation, writes[len(writes)-1].Property)
	assert.Equal(t, 0.0, writes[len(writes)-1].Value)
}

func TestLoop_WriteFailureReleasesHandleOnce(t *testing.T) {
	sim := capture.NewSimulator()
	sim.FailWritesAfter(v4InitWrites)
	loop := newTestLoop(V4, sim, nil)

	var frames []Frame
	err := loop.Run(context.Background(), collect(&frames))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportWrite)
	assert.ErrorIs(t, err, capture.ErrSimulatedFault)

	assert.Empty(t, frames)
	assert.Equal(t, 1, sim.Closes())
	assert.False(t, sim.IsOpen())
	assert.Equal(t, StateFaulted, loop.State())
}

func TestLoop_InitFailureReleasesHandle(t *testing.T) {
	sim := capture.NewSimulator()
	sim.FailWritesAfter(4)
	loop := newTestLoop(V4, sim, nil)

	err := loop.Run(context.Background(), func(Frame) {
		t.Fatal("no frame expected")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportWrite)
	assert.Contains(t, err.Error(), "initialize v4")

	assert.Len(t, sim.Commands(), 1)
	assert.Equal(t, 1, sim.Closes())
	assert.Equal(t, StateFaulted, loop.State())
}

func TestLoop_DeviceOpenError(t *testing.T) {
	sim := capture.NewSimulator()
	sim.SetOpenError(errors.New("no camera"))
	loop := newTestLoop(V4, sim, nil)

	err := loop.Run(context.Background(), func(Frame) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceOpen)
	assert.ErrorIs(t, err, capture.ErrUnavailable)
	assert.Equal(t, 0, sim.Closes())
	assert.Equal(t, StateFaulted, loop.State())
}

func TestLoop_ImageReadError(t *testing.T) {
	sim := capture.NewSimulator()
	sim.FailImageReads(errors.New("usb reset"))
	loop := newTestLoop(MiniCam, sim, nil)

	err := loop.Run(context.Background(), func(Frame) {})
	assert.ErrorIs(t, err, ErrTransportRead)
	assert.Equal(t, 1, sim.Closes())
}

func TestLoop_TelemetryReadError(t *testing.T) {
	sim := capture.NewSimulator()
	sim.FailPropertyReads(errors.New("usb reset"))
	loop := newTestLoop(V4, sim, nil)

	err := loop.Run(context.Background(), func(Frame) {})
	assert.ErrorIs(t, err, ErrTransportRead)
	assert.Contains(t, err.Error(), "trigger")
	assert.Equal(t, 1, sim.Closes())
}

func TestLoop_ShutdownFailureStillReleases(t *testing.T) {
	sim := capture.NewSimulator()
	loop := newTestLoop(V4, sim, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := loop.Run(ctx, func(Frame) {
		sim.FailWritesAfter(0)
		cancel()
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown v4")
	assert.ErrorIs(t, err, ErrTransportWrite)
	assert.Equal(t, 1, sim.Closes())
}

func TestLoop_RuntimeSettingChange(t *testing.T) {
	sim := capture.NewSimulator()
	sim.SetFrameLimit(2)
	settings := NewSettings(V4.Defaults)
	loop := newTestLoop(V4, sim, settings)

	err := loop.Run(context.Background(), func(f Frame) {
		if f.Number == 0 {
			sim.ResetLog()
			settings.Set(SettingBrightness, 50)
		}
	})
	require.NoError(t, err)

	want := []daq.Command{
		daq.MustCommand(32, 1, 205),
		daq.MustCommand(88, 0, 114, 205),
		// shutdown
		daq.MustCommand(32, 1, 255),
		daq.MustCommand(88, 0, 114, 255),
	}
	if diff := cmp.Diff(want, sim.Commands()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestLoop_TriggerPolicyFollowsGate(t *testing.T) {
	sim := capture.NewSimulator()
	sim.SetFrameLimit(2)
	sim.SetTrigger(false)
	settings := NewSettings(V4.Defaults.With(SettingBrightness, 100).With(SettingTriggerPolicy, 1))
	loop := newTestLoop(V4, sim, settings)

	var frames []Frame
	err := loop.Run(context.Background(), func(f Frame) {
		frames = append(frames, f)
		if f.Number == 0 {
			sim.ResetLog()
			sim.SetTrigger(true)
		}
	})
	require.NoError(t, err)

	require.Len(t, frames, 2)
	assert.False(t, frames[0].Trigger)
	assert.True(t, frames[1].Trigger)

	cmds := sim.Commands()
	require.GreaterOrEqual(t, len(cmds), 2)
	assert.Equal(t, daq.MustCommand(32, 1, 155), cmds[0])
	assert.Equal(t, daq.MustCommand(88, 0, 114, 155), cmds[1])
}

func TestLoop_LegacyHostSequence(t *testing.T) {
	sim := capture.NewSimulator()
	sim.SetFrameLimit(2)
	loop := newTestLoop(V3Legacy, sim, nil)

	var frames []Frame
	require.NoError(t, loop.Run(context.Background(), collect(&frames)))

	require.Len(t, frames, 2)
	for i, f := range frames {
		assert.Equal(t, i, f.Number)
		assert.False(t, f.Trigger)
		assert.Nil(t, f.Quaternion)
	}

	want := []capture.PropertyWrite{
		{Property: capture.Saturation, Value: 0x15},
		{Property: capture.Hue, Value: 0},
		{Property: capture.Gain, Value: 16},
		{Property: capture.Brightness, Value: 255},
		{Property: capture.Saturation, Value: 2},
	}
	if diff := cmp.Diff(want, sim.Writes()); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, sim.Commands())
	assert.Equal(t, 1, sim.Closes())
}

func TestLoop_Statistics(t *testing.T) {
	sim := capture.NewSimulator()
	sim.SetFrameLimit(4)
	stats := NewStatistics()
	loop := NewLoop(Config{Variant: V4, Opener: sim.Open}, stats)

	require.NoError(t, loop.Run(context.Background(), func(Frame) {}))

	c := stats.Counters()
	assert.Equal(t, uint64(4), c.TotalFrames)
	assert.Equal(t, uint64(4), c.TriggeredFrames)
	assert.Zero(t, c.DroppedFrames)
	// 16 init ops, 5 synchronization ops, 3 shutdown ops
	assert.Equal(t, uint64(16+5+3), c.CommandsSent)
	assert.Zero(t, c.CommandFailures)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "RUNNING", StateRunning.String())
	assert.Equal(t, "FAULTED", StateFaulted.String())
	assert.Equal(t, "State(42)", State(42).String())
}

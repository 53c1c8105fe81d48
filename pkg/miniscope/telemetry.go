// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package miniscope

import (
	"fmt"

	"github.com/Thermoquad/miniscope/pkg/capture"
	"github.com/Thermoquad/miniscope/pkg/daq"
)

// Sample is the telemetry read back at the top of one acquisition cycle.
type Sample struct {
	FrameCounter int
	// Gate is the trigger gate. Variants without a trigger line report an
	// open gate so the LED is never held off.
	Gate       bool
	Quaternion *daq.Quaternion
}

// ReadTelemetry reads and decodes the telemetry properties of layout.
func ReadTelemetry(dev capture.Device, layout TelemetryLayout) (Sample, error) {
	sample := Sample{Gate: true}

	if layout.HasTrigger {
		v, err := dev.GetProperty(layout.Trigger)
		if err != nil {
			return sample, fmt.Errorf("%w: trigger: %w", ErrTransportRead, err)
		}
		sample.Gate = daq.TriggerGate(v)
	}

	if layout.HasFrameCounter {
		v, err := dev.GetProperty(layout.FrameCounter)
		if err != nil {
			return sample, fmt.Errorf("%w: frame counter: %w", ErrTransportRead, err)
		}
		sample.FrameCounter = daq.FrameCounter(v)
	}

	if layout.HasQuaternion {
		var raw [4]uint16
		for i, p := range layout.Quaternion {
			v, err := dev.GetProperty(p)
			if err != nil {
				return sample, fmt.Errorf("%w: quaternion channel %d: %w", ErrTransportRead, i, err)
			}
			raw[i] = daq.RawChannel(v)
		}
		q := daq.DecodeQuaternion(raw)
		sample.Quaternion = &q
	}

	return sample, nil
}

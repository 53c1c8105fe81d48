// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package commutator drives a motorized tether commutator from the head
// orientation reported by a miniscope IMU.
//
// The commutator accepts newline-terminated JSON commands on a serial link;
// {"turn":x} rotates it by x full turns.
package commutator

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"go.bug.st/serial"

	"github.com/Thermoquad/miniscope/pkg/daq"
)

// DefaultThreshold is the accumulated rotation, in turns, that triggers a
// command.
const DefaultThreshold = 0.25

// DefaultBaudRate is the commutator serial rate.
const DefaultBaudRate = 9600

// minNorm rejects samples too small to carry an orientation.
const minNorm = 0.5

// Yaw returns the heading of q in radians, in (-pi, pi].
func Yaw(q daq.Quaternion) float64 {
	return math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
}

type turnCommand struct {
	Turn float64 `json:"turn"`
}

// Commutator accumulates unwrapped heading changes and emits a turn command
// once they exceed the threshold. It is not safe for concurrent use.
type Commutator struct {
	enc       *json.Encoder
	threshold float64

	lastYaw float64
	haveYaw bool
	pending float64 // turns not yet sent
	total   float64 // turns sent
}

// New returns a commutator writing commands to w. A threshold <= 0 uses
// DefaultThreshold.
func New(w io.Writer, threshold float64) *Commutator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Commutator{enc: json.NewEncoder(w), threshold: threshold}
}

// Update feeds one orientation sample and reports whether a command was
// sent. Degenerate samples are ignored.
func (c *Commutator) Update(q daq.Quaternion) (bool, error) {
	if q.Norm() < minNorm {
		return false, nil
	}

	yaw := Yaw(q)
	if !c.haveYaw {
		c.lastYaw = yaw
		c.haveYaw = true
		return false, nil
	}

	delta := yaw - c.lastYaw
	for delta > math.Pi {
		delta -= 2 * math.Pi
	}
	for delta <= -math.Pi {
		delta += 2 * math.Pi
	}
	c.lastYaw = yaw
	c.pending += delta / (2 * math.Pi)

	if math.Abs(c.pending) < c.threshold {
		return false, nil
	}

	turn := c.pending
	if err := c.enc.Encode(turnCommand{Turn: turn}); err != nil {
		return false, fmt.Errorf("send turn command: %w", err)
	}
	c.pending = 0
	c.total += turn
	return true, nil
}

// Pending returns the rotation accumulated since the last command, in turns.
func (c *Commutator) Pending() float64 {
	return c.pending
}

// Total returns the rotation sent so far, in turns.
func (c *Commutator) Total() float64 {
	return c.total
}

// OpenSerial opens the commutator serial link.
func OpenSerial(portName string, baudRate int) (io.WriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	return port, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"fmt"

	"github.com/Thermoquad/miniscope/pkg/daq"
)

// Registers drives the DAQ register channel of an open device.
type Registers struct {
	dev Device
}

// NewRegisters wraps dev.
func NewRegisters(dev Device) *Registers {
	return &Registers{dev: dev}
}

// WriteRegisters writes the three register values in channel order.
// The device sees the command once the last register lands.
func (r *Registers) WriteRegisters(regs daq.Registers) error {
	for i, p := range RegisterProperties {
		if err := r.dev.SetProperty(p, float64(regs[i])); err != nil {
			return fmt.Errorf("write register %d (%s): %w", i, p, err)
		}
	}
	return nil
}

// ReadRegisters reads back the three register properties.
func (r *Registers) ReadRegisters() (daq.Registers, error) {
	var regs daq.Registers
	for i, p := range RegisterProperties {
		v, err := r.dev.GetProperty(p)
		if err != nil {
			return regs, fmt.Errorf("read register %d (%s): %w", i, p, err)
		}
		regs[i] = daq.RawChannel(v)
	}
	return regs, nil
}

// SendCommand splits c and writes it to the register channel.
func (r *Registers) SendCommand(c daq.Command) error {
	return r.WriteRegisters(daq.Split(c))
}

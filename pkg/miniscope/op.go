// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package miniscope

import (
	"fmt"

	"github.com/Thermoquad/miniscope/pkg/capture"
	"github.com/Thermoquad/miniscope/pkg/daq"
)

// Op is one step sent to the device: either a register command or a direct
// property write outside the register channel.
type Op struct {
	Command  daq.Command
	Direct   bool
	Property capture.Property
	Value    float64
}

// Send returns an Op that writes c to the register channel.
func Send(c daq.Command) Op {
	return Op{Command: c}
}

// SetProperty returns an Op that writes a property directly.
func SetProperty(p capture.Property, value float64) Op {
	return Op{Direct: true, Property: p, Value: value}
}

// cmd builds a register Op from a static table entry.
func cmd(address byte, payload ...byte) Op {
	return Send(daq.MustCommand(address, payload...))
}

func (o Op) String() string {
	if o.Direct {
		return fmt.Sprintf("set %s=%g", o.Property, o.Value)
	}
	return daq.FormatCommand(o.Command)
}

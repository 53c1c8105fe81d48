// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package daq

// Registers holds the three 16-bit register values a command is split into.
// Index 0 carries bits 0-15, index 1 bits 16-31 and index 2 bits 32-47.
type Registers [RegisterCount]uint16

// Split extracts the register values from a command word.
// Bits 48-63 are dropped.
func Split(c Command) Registers {
	word := uint64(c)
	return Registers{
		uint16(word & register0Mask),
		uint16((word & register1Mask) >> 16),
		uint16((word & register2Mask) >> 32),
	}
}

// Join reassembles a command word from register values.
func Join(r Registers) Command {
	return Command(uint64(r[0]) | uint64(r[1])<<16 | uint64(r[2])<<32)
}

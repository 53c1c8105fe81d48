// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package daq

import (
	"errors"
	"fmt"
)

// ErrInvalidPayloadLength is returned when a command carries more than
// MaxPayloadSize payload bytes.
var ErrInvalidPayloadLength = errors.New("invalid payload length")

// ErrMalformedCommand is returned when a command word cannot be decoded.
var ErrMalformedCommand = errors.New("malformed command word")

// Command is a 64-bit DAQ configuration word.
//
// Byte 0 holds the peripheral address. When its low bit is clear the word is
// in short form: byte 1 is the payload length plus one and bytes 2-5 carry up
// to four payload bytes. When the low bit is set the word is in full form and
// bytes 1-5 carry exactly five payload bytes.
type Command uint64

// NewCommand encodes a peripheral address and up to five payload bytes.
func NewCommand(address byte, payload ...byte) (Command, error) {
	if len(payload) > MaxPayloadSize {
		return 0, fmt.Errorf("%w: %d bytes (max %d)", ErrInvalidPayloadLength, len(payload), MaxPayloadSize)
	}

	word := uint64(address)

	if len(payload) == MaxPayloadSize {
		word |= fullFormFlag
		for i, b := range payload {
			word |= uint64(b) << (8 * (1 + i))
		}
		return Command(word), nil
	}

	word |= uint64(len(payload)+1) << 8
	for i, b := range payload {
		word |= uint64(b) << (8 * (2 + i))
	}
	return Command(word), nil
}

// MustCommand is like NewCommand but panics on an invalid payload.
// Intended for static command tables.
func MustCommand(address byte, payload ...byte) Command {
	c, err := NewCommand(address, payload...)
	if err != nil {
		panic(fmt.Sprintf("daq: %v", err))
	}
	return c
}

// Address returns the address byte as transmitted, including the
// length-mode flag.
func (c Command) Address() byte {
	return byte(c)
}

// FullForm reports whether the word carries five payload bytes without a
// length byte.
func (c Command) FullForm() bool {
	return c.Address()&fullFormFlag != 0
}

// Registers splits the command into its three register values.
func (c Command) Registers() Registers {
	return Split(c)
}

// Decode reconstructs the address byte and payload from a command word.
// This is the firmware's view of the word: the address low bit selects the
// length mode.
func Decode(c Command) (address byte, payload []byte, err error) {
	word := uint64(c)
	if word&^transportMask != 0 {
		return 0, nil, fmt.Errorf("%w: bits above 47 set (0x%016X)", ErrMalformedCommand, word)
	}

	address = byte(word)

	if c.FullForm() {
		payload = make([]byte, MaxPayloadSize)
		for i := range payload {
			payload[i] = byte(word >> (8 * (1 + i)))
		}
		return address, payload, nil
	}

	lengthByte := byte(word >> 8)
	if lengthByte == 0 || lengthByte > MaxPayloadSize {
		return 0, nil, fmt.Errorf("%w: length byte %d", ErrMalformedCommand, lengthByte)
	}

	n := int(lengthByte) - 1
	if rest := word >> (8 * (2 + n)); rest != 0 {
		return 0, nil, fmt.Errorf("%w: trailing data after %d payload bytes", ErrMalformedCommand, n)
	}

	payload = make([]byte, n)
	for i := range payload {
		payload[i] = byte(word >> (8 * (2 + i)))
	}
	return address, payload, nil
}

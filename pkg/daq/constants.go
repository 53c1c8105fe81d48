// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package daq provides a Go implementation of the Miniscope DAQ configuration protocol.
//
// The DAQ firmware has no dedicated control endpoint. Instead it repurposes
// three numeric camera properties as 16-bit configuration registers. A
// command is a 64-bit word holding an 8-bit peripheral address and up to five
// payload bytes; it is split across the three registers and forwarded by the
// firmware to the addressed peripheral over the SERDES I2C backchannel.
//
// The same properties are read back to obtain telemetry multiplexed by the
// firmware: the hardware frame counter, the trigger input state and, on
// devices with an IMU, raw quaternion channels.
package daq

// Command word limits
const (
	MaxPayloadSize = 5
	RegisterCount  = 3
	RegisterBits   = 16
)

// fullFormFlag is set in the address byte when the word carries exactly
// MaxPayloadSize payload bytes and no length byte.
const fullFormFlag = 0x01

// Register masks over the 64-bit command word. Bits 48-63 are not
// transported.
const (
	register0Mask = 0x0000_0000_FFFF
	register1Mask = 0x0000_FFFF_0000
	register2Mask = 0xFFFF_0000_0000
	transportMask = register0Mask | register1Mask | register2Mask
)

// Peripheral addresses in 8-bit I2C format (7-bit address shifted left).
//
// Aliases are assigned to the deserializer at init time; once assigned, the
// peripheral behind the serializer is addressed through its alias.
const (
	AddrMCU           = 0x20 // ATTINY MCU, bridges V4 LED and sensor writes
	AddrIMU           = 0x50 // BNO055
	AddrDigitalPotV4  = 0x58 // TPL0102 alias
	AddrLEDDriverMC   = 0x6C // LM3509 (MiniCam)
	AddrLEDDriverV3   = 0x98 // LED driver alias (V3)
	AddrDigitalPot    = 0xA0 // TPL0102
	AddrSerializer    = 0xB0
	AddrImageSensorV3 = 0xB8 // MT9V032 alias
	AddrImageSensorMC = 0xBA // MT9P031 (MiniCam)
	AddrDeserializer  = 0xC0
	AddrEWLDriver     = 0xEE // MAX14574
	AddrUnknownV4     = 0xFE
)

// Trigger input as mirrored by the firmware: the property reads zero while
// the external line is driven high.
const triggerAsserted = 0

// QuaternionScale converts a raw BNO055 quaternion channel to a unitless
// component (1 quaternion unit = 2^14 LSB).
const QuaternionScale = 1.0 / (1 << 14)

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package daq

import (
	"fmt"
	"strings"
)

// PeripheralName returns a human-readable name for an address byte.
// The length-mode flag is ignored.
func PeripheralName(address byte) string {
	switch address &^ fullFormFlag {
	case AddrDeserializer:
		return "DESERIALIZER"
	case AddrSerializer:
		return "SERIALIZER"
	case AddrDigitalPot:
		return "DIGITAL_POT"
	case AddrDigitalPotV4:
		return "DIGITAL_POT_ALIAS"
	case AddrIMU:
		return "IMU"
	case AddrEWLDriver:
		return "EWL_DRIVER"
	case AddrMCU:
		return "MCU"
	case AddrImageSensorV3, AddrImageSensorMC:
		return "IMAGE_SENSOR"
	case AddrLEDDriverV3, AddrLEDDriverMC:
		return "LED_DRIVER"
	default:
		return "UNKNOWN"
	}
}

// FormatCommand formats a command word into a human-readable string
func FormatCommand(c Command) string {
	r := Split(c)
	regs := fmt.Sprintf("regs=[%04X %04X %04X]", r[0], r[1], r[2])

	address, payload, err := Decode(c)
	if err != nil {
		return fmt.Sprintf("word=0x%012X %s (%v)", uint64(c), regs, err)
	}

	form := "short"
	if c.FullForm() {
		form = "full"
	}

	return fmt.Sprintf("%s (0x%02X) %s len=%d payload=[%s] %s",
		PeripheralName(address), address, form, len(payload), formatBytes(payload), regs)
}

// FormatQuaternion formats a quaternion as "w=... x=... y=... z=...".
func FormatQuaternion(q Quaternion) string {
	return fmt.Sprintf("w=%+.4f x=%+.4f y=%+.4f z=%+.4f", q.W, q.X, q.Y, q.Z)
}

func formatBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, " ")
}

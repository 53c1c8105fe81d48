// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package daq

import "math"

// Quaternion is an orientation sample in unitless components.
// It is not renormalized; sensor noise and wraparound pass through.
type Quaternion struct {
	W float64 `json:"w" cbor:"w"`
	X float64 `json:"x" cbor:"x"`
	Y float64 `json:"y" cbor:"y"`
	Z float64 `json:"z" cbor:"z"`
}

// DecodeQuaternion converts four raw channels (w, x, y, z) to a quaternion.
// Each channel is reinterpreted as a signed 16-bit value before scaling.
func DecodeQuaternion(raw [4]uint16) Quaternion {
	return Quaternion{
		W: QuaternionScale * float64(int16(raw[0])),
		X: QuaternionScale * float64(int16(raw[1])),
		Y: QuaternionScale * float64(int16(raw[2])),
		Z: QuaternionScale * float64(int16(raw[3])),
	}
}

// Norm returns the Euclidean norm of q.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Components returns q as [w, x, y, z].
func (q Quaternion) Components() [4]float64 {
	return [4]float64{q.W, q.X, q.Y, q.Z}
}

// RawChannel converts a property value read from the capture transport to
// the 16-bit channel it carries.
func RawChannel(value float64) uint16 {
	return uint16(int64(value))
}

// TriggerGate interprets the trigger property. The firmware mirrors the
// trigger input inverted, so the gate is open when the property reads zero.
func TriggerGate(value float64) bool {
	return RawChannel(value) == triggerAsserted
}

// FrameCounter interprets the frame counter property.
func FrameCounter(value float64) int {
	return int(value)
}

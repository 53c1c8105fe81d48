// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture is the boundary to the video-capture transport that
// carries miniscope images and, through a handful of repurposed camera
// properties, the DAQ register channel.
package capture

import "fmt"

// Property identifies a numeric capture property.
// Values match the OpenCV VideoCaptureProperties ids.
type Property int

const (
	FrameWidth  Property = 3
	FrameHeight Property = 4
	Brightness  Property = 10
	Contrast    Property = 11
	Saturation  Property = 12
	Hue         Property = 13
	Gain        Property = 14
	Sharpness   Property = 20
	Gamma       Property = 22
)

// Register channel mapping: register i of a command word travels in
// RegisterProperties[i].
var RegisterProperties = [3]Property{Contrast, Gamma, Sharpness}

// String returns the property name.
func (p Property) String() string {
	switch p {
	case FrameWidth:
		return "FrameWidth"
	case FrameHeight:
		return "FrameHeight"
	case Brightness:
		return "Brightness"
	case Contrast:
		return "Contrast"
	case Saturation:
		return "Saturation"
	case Hue:
		return "Hue"
	case Gain:
		return "Gain"
	case Sharpness:
		return "Sharpness"
	case Gamma:
		return "Gamma"
	default:
		return fmt.Sprintf("Property(%d)", int(p))
	}
}

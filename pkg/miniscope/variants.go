// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package miniscope

import (
	"github.com/Thermoquad/miniscope/pkg/capture"
	"github.com/Thermoquad/miniscope/pkg/daq"
)

const (
	acquisitionStart = 1
	acquisitionStop  = 0

	// Legacy firmware frame pulse codes on the Saturation property
	recordStart = 0x01
	recordEnd   = 0x02
)

// serdesLink brings up the deserializer/serializer pair shared by the V3
// and V4 boards: serializer alias, faster I2C timers, shorter BCC timeouts.
var serdesLink = []Op{
	cmd(daq.AddrDeserializer, 31, 16),
	cmd(daq.AddrSerializer, 5, 32),
	cmd(daq.AddrDeserializer, 34, 2),
	cmd(daq.AddrDeserializer, 32, 10),
	cmd(daq.AddrDeserializer, 7, 176),
	cmd(daq.AddrSerializer, 15, 2),
	cmd(daq.AddrSerializer, 30, 10),
}

// startOps sets frame geometry and raises the start flag.
func startOps(width, height int) []Op {
	return []Op{
		SetProperty(capture.FrameWidth, float64(width)),
		SetProperty(capture.FrameHeight, float64(height)),
		SetProperty(capture.Saturation, acquisitionStart),
	}
}

func staticInit(width, height int, sequences ...[]Op) func(Snapshot) []Op {
	return func(Snapshot) []Op {
		var ops []Op
		for _, seq := range sequences {
			ops = append(ops, seq...)
		}
		return append(ops, startOps(width, height)...)
	}
}

////////////////////////////////////////////////////////////////
// UCLA Miniscope V4
////////////////////////////////////////////////////////////////

var v4FrameRates = map[int][2]byte{
	10: {39, 16},
	15: {26, 11},
	20: {19, 136},
	25: {15, 160},
	30: {12, 228},
}

var v4Gains = map[int]byte{
	GainLow:    225,
	GainMedium: 228,
	GainHigh:   36,
}

// V4 is the UCLA Miniscope V4 with IMU and electrowetting lens.
var V4 = register(&Variant{
	Name:          "v4",
	Description:   "UCLA Miniscope V4 (608x608, IMU, EWL)",
	Width:         608,
	Height:        608,
	TriggerPolicy: true,
	Telemetry: TelemetryLayout{
		HasFrameCounter: true,
		FrameCounter:    capture.Contrast,
		HasTrigger:      true,
		Trigger:         capture.Gamma,
		HasQuaternion:   true,
		Quaternion:      [4]capture.Property{capture.Saturation, capture.Hue, capture.Gain, capture.Brightness},
	},
	Domains: map[Setting]Domain{
		SettingBrightness:    {Min: 0, Max: 255},
		SettingFrameRate:     {Choices: keys(v4FrameRates)},
		SettingGain:          {Choices: keys(v4Gains)},
		SettingLensFocus:     {Min: -127, Max: 127},
		SettingTriggerPolicy: {Min: 0, Max: 1},
	},
	Defaults: Snapshot{}.
		With(SettingFrameRate, 30).
		With(SettingGain, GainLow),
	init: staticInit(608, 608, serdesLink, []Op{
		// Aliases: MCU and EWL driver, digital pot and IMU
		cmd(daq.AddrDeserializer, 8, daq.AddrMCU, daq.AddrEWLDriver, daq.AddrDigitalPot, daq.AddrIMU),
		cmd(daq.AddrDeserializer, 16, daq.AddrMCU, daq.AddrEWLDriver, daq.AddrDigitalPotV4, daq.AddrIMU),
		// IMU axis remap, then NDOF fusion mode
		cmd(daq.AddrIMU, 65, 9, 5),
		cmd(daq.AddrIMU, 61, 12),
		cmd(daq.AddrUnknownV4, 0),
		// EWL driver enable
		cmd(daq.AddrEWLDriver, 3, 3),
	}),
	bindings: map[Setting]binding{
		SettingBrightness: func(v int) ([]Op, error) {
			level := byte(255 - v)
			return []Op{
				cmd(daq.AddrMCU, 1, level),
				cmd(daq.AddrDigitalPotV4, 0, 114, level),
			}, nil
		},
		SettingFrameRate: func(v int) ([]Op, error) {
			code, err := lookupCode(SettingFrameRate, v4FrameRates, v)
			if err != nil {
				return nil, err
			}
			return []Op{cmd(daq.AddrMCU, 5, 0, 201, code[0], code[1])}, nil
		},
		SettingGain: func(v int) ([]Op, error) {
			code, err := lookupCode(SettingGain, v4Gains, v)
			if err != nil {
				return nil, err
			}
			return []Op{cmd(daq.AddrMCU, 5, 0, 204, 0, code)}, nil
		},
		SettingLensFocus: func(v int) ([]Op, error) {
			return []Op{cmd(daq.AddrEWLDriver, 8, byte(127+v), 2)}, nil
		},
	},
	shutdown: []Op{
		cmd(daq.AddrMCU, 1, 255),
		cmd(daq.AddrDigitalPotV4, 0, 114, 255),
		SetProperty(capture.Saturation, acquisitionStop),
	},
})

////////////////////////////////////////////////////////////////
// UCLA Miniscope V3 (updated DAQ firmware)
////////////////////////////////////////////////////////////////

var v3FrameRates = map[int][]Op{
	10: {
		cmd(daq.AddrImageSensorV3, 5, 2, 238, 4, 226),
		cmd(daq.AddrImageSensorV3, 11, 6, 184),
	},
	30: {
		cmd(daq.AddrImageSensorV3, 5, 0, 94, 2, 33),
		cmd(daq.AddrImageSensorV3, 11, 3, 232),
	},
	60: {
		cmd(daq.AddrImageSensorV3, 5, 0, 93, 0, 33),
		cmd(daq.AddrImageSensorV3, 11, 1, 244),
	},
}

var v3Gains = map[int]byte{
	GainLow:    16,
	GainMedium: 32,
	GainHigh:   64,
}

// V3 is the UCLA Miniscope V3 on the register-protocol DAQ firmware.
var V3 = register(&Variant{
	Name:        "v3",
	Description: "UCLA Miniscope V3, updated DAQ firmware (752x480)",
	Width:       752,
	Height:      480,
	Domains: map[Setting]Domain{
		SettingBrightness: {Min: 0, Max: 0xFF0},
		SettingFrameRate:  {Choices: keys(v3FrameRates)},
		SettingGain:       {Choices: keys(v3Gains)},
	},
	Defaults: Snapshot{}.
		With(SettingFrameRate, 30).
		With(SettingGain, GainLow),
	init: staticInit(752, 480, serdesLink, []Op{
		// Aliases: image sensor and LED driver
		cmd(daq.AddrDeserializer, 8, daq.AddrImageSensorV3, daq.AddrLEDDriverV3),
		cmd(daq.AddrDeserializer, 16, daq.AddrImageSensorV3, daq.AddrLEDDriverV3),
		cmd(daq.AddrImageSensorV3, 12, 0, 1),
		cmd(daq.AddrImageSensorV3, 175, 0, 0),
	}),
	bindings: map[Setting]binding{
		SettingBrightness: func(v int) ([]Op, error) {
			return []Op{cmd(daq.AddrLEDDriverV3, byte(v>>8), byte(v))}, nil
		},
		SettingFrameRate: func(v int) ([]Op, error) {
			return lookupCode(SettingFrameRate, v3FrameRates, v)
		},
		SettingGain: func(v int) ([]Op, error) {
			code, err := lookupCode(SettingGain, v3Gains, v)
			if err != nil {
				return nil, err
			}
			return []Op{cmd(daq.AddrImageSensorV3, 53, 0, code)}, nil
		},
	},
	shutdown: []Op{
		cmd(daq.AddrLEDDriverV3, 0, 0),
		SetProperty(capture.Saturation, acquisitionStop),
	},
})

////////////////////////////////////////////////////////////////
// MiniCam
////////////////////////////////////////////////////////////////

var miniCamFrameRates = map[int]uint16{
	10: 2048,
	40: 1536,
	50: 6240,
}

var miniCamGains = map[int]uint16{
	GainLow:     8,
	GainMedium:  96,
	GainHigh:    2144,
	GainExtreme: 6240,
}

// MiniCam is the behavioural camera sharing the V4 DAQ.
var MiniCam = register(&Variant{
	Name:        "minicam",
	Description: "MiniCam behaviour camera (1024x768)",
	Width:       1024,
	Height:      768,
	Telemetry: TelemetryLayout{
		HasFrameCounter: true,
		FrameCounter:    capture.Contrast,
		HasTrigger:      true,
		Trigger:         capture.Gamma,
	},
	Domains: map[Setting]Domain{
		// Up to 31 is accepted by the driver but destabilizes the link
		SettingBrightness: {Min: 0, Max: 26},
		SettingFrameRate:  {Choices: keys(miniCamFrameRates)},
		SettingGain:       {Choices: keys(miniCamGains)},
	},
	Defaults: Snapshot{}.
		With(SettingFrameRate, 50).
		With(SettingGain, GainLow),
	init: staticInit(1024, 768, []Op{
		cmd(daq.AddrDeserializer, 7, 176),
		cmd(daq.AddrDeserializer, 34, 2),
		cmd(daq.AddrDeserializer, 32, 10),
		cmd(daq.AddrSerializer, 15, 2),
		cmd(daq.AddrSerializer, 30, 10),
		// Aliases: image sensor and LED driver
		cmd(daq.AddrDeserializer, 8, daq.AddrImageSensorMC, daq.AddrLEDDriverMC),
		cmd(daq.AddrDeserializer, 16, daq.AddrImageSensorMC, daq.AddrLEDDriverMC),
		// 1535 rows by 2047 columns, 2x subsampling and binning, summed columns
		cmd(daq.AddrImageSensorMC, 3, 5, 255),
		cmd(daq.AddrImageSensorMC, 4, 7, 255),
		cmd(daq.AddrImageSensorMC, 34, 0, 17),
		cmd(daq.AddrImageSensorMC, 35, 0, 17),
		cmd(daq.AddrImageSensorMC, 32, 0, 96),
		cmd(daq.AddrImageSensorMC, 62, 0, 192),
		// Shutter width
		cmd(daq.AddrImageSensorMC, 9, 2, 255),
		// LED driver general configuration
		cmd(daq.AddrLEDDriverMC, 16, 215),
	}),
	bindings: map[Setting]binding{
		SettingBrightness: func(v int) ([]Op, error) {
			return []Op{cmd(daq.AddrLEDDriverMC, 160, byte(v))}, nil
		},
		SettingFrameRate: func(v int) ([]Op, error) {
			code, err := lookupCode(SettingFrameRate, miniCamFrameRates, v)
			if err != nil {
				return nil, err
			}
			return []Op{cmd(daq.AddrImageSensorMC, 9, byte(code>>8), byte(code))}, nil
		},
		SettingGain: func(v int) ([]Op, error) {
			code, err := lookupCode(SettingGain, miniCamGains, v)
			if err != nil {
				return nil, err
			}
			return []Op{cmd(daq.AddrImageSensorMC, 53, byte(code>>8), byte(code))}, nil
		},
	},
	shutdown: []Op{
		cmd(daq.AddrLEDDriverMC, 160, 0),
		SetProperty(capture.Saturation, acquisitionStop),
	},
})

////////////////////////////////////////////////////////////////
// UCLA Miniscope V3 (legacy DAQ firmware)
////////////////////////////////////////////////////////////////

var legacyFrameRates = map[int]float64{
	5:  0x11,
	10: 0x12,
	15: 0x13,
	20: 0x14,
	30: 0x15,
	60: 0x16,
}

// V3Legacy is the UCLA Miniscope V3 on the original DAQ firmware, which
// maps settings straight onto camera properties.
var V3Legacy = register(&Variant{
	Name:        "v3-legacy",
	Description: "UCLA Miniscope V3, legacy DAQ firmware (direct properties)",
	Domains: map[Setting]Domain{
		SettingBrightness: {Min: 0, Max: 255},
		SettingFrameRate:  {Choices: keys(legacyFrameRates)},
		SettingGain:       {Min: 16, Max: 64},
		SettingExposure:   {Min: 1, Max: 255},
		SettingFramePulse: {Min: 0, Max: 1},
	},
	Defaults: Snapshot{}.
		With(SettingFrameRate, 30).
		With(SettingGain, 16).
		With(SettingExposure, 255),
	// Frame rate is latched once at start
	init: func(s Snapshot) []Op {
		code, ok := legacyFrameRates[s.Get(SettingFrameRate)]
		if !ok {
			code = legacyFrameRates[30]
		}
		return []Op{SetProperty(capture.Saturation, code)}
	},
	bindings: map[Setting]binding{
		SettingBrightness: func(v int) ([]Op, error) {
			return []Op{SetProperty(capture.Hue, float64(v))}, nil
		},
		SettingGain: func(v int) ([]Op, error) {
			return []Op{SetProperty(capture.Gain, float64(v))}, nil
		},
		SettingExposure: func(v int) ([]Op, error) {
			return []Op{SetProperty(capture.Brightness, float64(v))}, nil
		},
		SettingFramePulse: func(v int) ([]Op, error) {
			if v != 0 {
				return []Op{SetProperty(capture.Saturation, recordStart)}, nil
			}
			return []Op{SetProperty(capture.Saturation, recordEnd)}, nil
		},
	},
})

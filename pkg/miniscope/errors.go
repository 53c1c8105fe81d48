// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package miniscope

import "errors"

var (
	// ErrDeviceOpen is returned when the capture handle cannot be acquired.
	ErrDeviceOpen = errors.New("device open failed")

	// ErrTransportWrite is returned when a register or property write fails.
	// The peripheral state is unknown afterwards; the loop does not retry.
	ErrTransportWrite = errors.New("transport write failed")

	// ErrTransportRead is returned when a telemetry read or image pull fails.
	ErrTransportRead = errors.New("transport read failed")

	// ErrUnsupportedSetting is returned for a setting the variant does not
	// expose or a value outside its domain.
	ErrUnsupportedSetting = errors.New("unsupported setting")

	// ErrUnknownVariant is returned by LookupVariant for an unknown name.
	ErrUnknownVariant = errors.New("unknown device variant")

	// ErrSourceClosed is returned when subscribing to a closed Source.
	ErrSourceClosed = errors.New("source closed")
)

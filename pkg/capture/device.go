// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"errors"
	"image"
)

// ErrUnavailable is returned by an Opener when no device exists at the
// requested index or it cannot be opened.
var ErrUnavailable = errors.New("capture device unavailable")

// Device is an open capture handle. It is not safe for concurrent use.
//
// Read returns io.EOF once the device stops producing images. The returned
// image is owned by the caller and stays valid after the next Read.
type Device interface {
	SetProperty(p Property, value float64) error
	GetProperty(p Property) (float64, error)
	Read() (image.Image, error)
	Close() error
}

// Opener acquires a capture handle by device index.
type Opener func(index int) (Device, error)

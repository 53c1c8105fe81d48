// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package cv opens capture devices through OpenCV (cgo). Package capture
// itself never imports it.
package cv

import (
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"

	"github.com/Thermoquad/miniscope/pkg/capture"
)

// device is a capture.Device backed by an OpenCV VideoCapture.
type device struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

// Open opens the capture device at index. It satisfies capture.Opener.
func Open(index int) (capture.Device, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("%w: index %d: %v", capture.ErrUnavailable, index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: index %d", capture.ErrUnavailable, index)
	}
	return &device{vc: vc, mat: gocv.NewMat()}, nil
}

// OpenCV reports no status for property writes, so SetProperty never fails.
func (d *device) SetProperty(p capture.Property, value float64) error {
	d.vc.Set(gocv.VideoCaptureProperties(p), value)
	return nil
}

func (d *device) GetProperty(p capture.Property) (float64, error) {
	return d.vc.Get(gocv.VideoCaptureProperties(p)), nil
}

// Read grabs the next frame. The Mat is reused across reads; ToImage copies
// its pixels into a fresh image.
func (d *device) Read() (image.Image, error) {
	if ok := d.vc.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, io.EOF
	}
	img, err := d.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

func (d *device) Close() error {
	d.mat.Close()
	return d.vc.Close()
}

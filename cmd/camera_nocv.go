// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build nocv

package cmd

import (
	"fmt"

	"github.com/Thermoquad/miniscope/pkg/capture"
)

// Built with -tags nocv: only --simulate can acquire.
func cameraOpener(index int) (capture.Device, error) {
	return nil, fmt.Errorf("%w: index %d: built without OpenCV, use --simulate", capture.ErrUnavailable, index)
}

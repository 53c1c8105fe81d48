// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build !nocv

package cmd

import "github.com/Thermoquad/miniscope/pkg/capture/cv"

var cameraOpener = cv.Open

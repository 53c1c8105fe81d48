// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Miniscope - UCLA Miniscope DAQ acquisition tool
//
// A CLI tool for configuring miniscope headstages through the DAQ register
// channel and acquiring frames with their telemetry.

package main

import (
	"os"

	"github.com/Thermoquad/miniscope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

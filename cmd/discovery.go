// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/miniscope/pkg/capture"
)

var (
	discoveryMax int
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Probe capture device indices",
	Long: `Open capture devices 0..max-1 in turn and report the ones that respond.

Nothing is written to the devices: no initialization sequence is sent, so a
DAQ box found here is not started. The reported geometry is the transport
default before a variant configures it.

Examples:
  # Probe the first four capture devices
  miniscope discovery --max 4

Exit codes:
  0 - At least one device found
  1 - No devices found`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryMax, "max", 8, "Number of capture indices to probe")
}

type discoveryDeviceInfo struct {
	index  int
	width  int
	height int
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	opener, kind := deviceOpener()

	fmt.Printf("Miniscope - Device Discovery\n")
	fmt.Printf("Transport: %s\n", kind)
	fmt.Printf("Probing indices 0..%d\n\n", discoveryMax-1)

	devices := make([]discoveryDeviceInfo, 0)
	for i := 0; i < discoveryMax; i++ {
		info, err := probeDevice(opener, i)
		if err != nil {
			fmt.Printf("  #%d: %v\n", i, err)
			continue
		}
		devices = append(devices, info)
		fmt.Printf("  #%d: found (%dx%d)\n", info.index, info.width, info.height)
	}

	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Devices found: %d\n", len(devices))

	if len(devices) == 0 {
		fmt.Printf("No devices discovered. Check the USB connection and DAQ power.\n")
		os.Exit(1)
	}

	return nil
}

func probeDevice(opener capture.Opener, index int) (discoveryDeviceInfo, error) {
	dev, err := opener(index)
	if err != nil {
		return discoveryDeviceInfo{}, err
	}
	defer dev.Close()

	info := discoveryDeviceInfo{index: index}
	w, err := dev.GetProperty(capture.FrameWidth)
	if err != nil {
		return info, err
	}
	h, err := dev.GetProperty(capture.FrameHeight)
	if err != nil {
		return info, err
	}
	info.width, info.height = int(w), int(h)
	return info, nil
}

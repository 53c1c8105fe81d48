// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/miniscope/pkg/daq"
)

var (
	frameTestTimeout int
)

// deviceReleaseTimeout bounds the wait for the shutdown sequence before exit.
const deviceReleaseTimeout = 3 * time.Second

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test the device by waiting for the first frame",
	Long: `Open the device, run the initialization sequence and wait for one frame
until timeout.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached, or the stream ended without a frame
  2 - Device or transport error

Useful for checking that a DAQ box and headstage are connected and powered.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	addSettingFlags(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	src, devInfo, err := OpenSource(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Device error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Miniscope - Frame Test\n")
	fmt.Printf("Device: %s\n", devInfo)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for first frame...\n\n")

	sub, err := src.Subscribe()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Device error: %v\n", err)
		os.Exit(2)
	}

	code := 0
	select {
	case f, ok := <-sub.Frames():
		if !ok {
			if err := sub.Err(); err != nil {
				fmt.Fprintf(os.Stderr, "Device error: %v\n", err)
				code = 2
				break
			}
			fmt.Fprintf(os.Stderr, "FAILED: Stream ended before the first frame\n")
			code = 1
			break
		}

		fmt.Printf("SUCCESS: Received frame\n")
		fmt.Printf("  Frame: %d\n", f.Number)
		fmt.Printf("  Size: %dx%d\n", f.Width, f.Height)
		fmt.Printf("  Trigger: %v\n", f.Trigger)
		if f.Quaternion != nil {
			fmt.Printf("  Orientation: %s\n", daq.FormatQuaternion(*f.Quaternion))
		}

	case <-time.After(time.Duration(frameTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No frame received within %d seconds\n", frameTestTimeout)
		code = 1
	}

	// Release the device before exiting so the shutdown sequence runs
	sub.Close()
	if !closeWithin(src, deviceReleaseTimeout) {
		fmt.Fprintf(os.Stderr, "WARNING: Device not released within %s\n", deviceReleaseTimeout)
	}
	os.Exit(code)

	return nil
}

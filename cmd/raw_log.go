// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/miniscope/pkg/miniscope"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display per-frame telemetry in human-readable format",
	Long: `Continuously acquire frames and display one line per frame with the frame
number, trigger gate and head orientation (where the variant reports them).

Statistics are printed when the stream ends or on Ctrl+C.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	addSettingFlags(rawLogCmd)
	addCommutatorFlags(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	src, devInfo, err := OpenSource(cmd)
	if err != nil {
		return err
	}
	defer src.Close()

	comm, port, err := OpenCommutator()
	if err != nil {
		return err
	}
	if port != nil {
		defer port.Close()
	}

	fmt.Printf("Miniscope - Raw Frame Log\n")
	fmt.Printf("Device: %s\n", devInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := interruptContext()
	defer stop()

	sub, err := src.Subscribe()
	if err != nil {
		return err
	}
	defer sub.Close()

	err = consume(ctx, sub, func(f miniscope.Frame) error {
		fmt.Println(formatFrame(f.FrameMeta))
		driveCommutator(comm, f)
		return nil
	})

	fmt.Printf("\n%s", src.Statistics().String())
	return err
}

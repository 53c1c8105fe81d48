// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/miniscope/pkg/daq"
	"github.com/Thermoquad/miniscope/pkg/miniscope"
)

var (
	showAll       bool
	statsInterval int
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect dropped frames and telemetry anomalies",
	Long: `Track acquisition errors and anomalous telemetry with statistics.

This command checks each frame and detects:
  - Dropped frames (gaps in the hardware frame counter)
  - Frame counter resets
  - IMU anomalies (quaternion norm away from 1, components outside [-1, 1])
  - Register write failures (counted by the acquisition loop)

By default, only anomalies are displayed. Use --show-all to display every
frame too.

Periodic statistics summaries are displayed at a configurable interval.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	addSettingFlags(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just anomalies)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	src, devInfo, err := OpenSource(cmd)
	if err != nil {
		return err
	}
	defer src.Close()

	fmt.Printf("Miniscope - Error Detection\n")
	fmt.Printf("Device: %s\n", devInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := interruptContext()
	defer stop()

	sub, err := src.Subscribe()
	if err != nil {
		return err
	}
	defer sub.Close()

	stats := src.Statistics()
	prev := stats.Counters()
	lastSummary := time.Now()

	err = consume(ctx, sub, func(f miniscope.Frame) error {
		cur := stats.Counters()
		anomalies := detectAnomalies(prev, cur, f.FrameMeta)
		prev = cur

		if len(anomalies) > 0 {
			printAnomalies(f.FrameMeta, anomalies)
		} else if showAll {
			fmt.Println(formatFrame(f.FrameMeta))
		}

		if time.Since(lastSummary) >= time.Duration(statsInterval)*time.Second {
			fmt.Printf("\n%s\n", stats.String())
			lastSummary = time.Now()
		}
		return nil
	})

	fmt.Printf("\n%s", stats.String())
	return err
}

// detectAnomalies describes what changed between two statistics snapshots
// taken either side of frame m.
func detectAnomalies(prev, cur miniscope.Counters, m miniscope.FrameMeta) []string {
	var out []string

	if n := cur.DroppedFrames - prev.DroppedFrames; n > 0 {
		out = append(out, fmt.Sprintf("%d frame(s) dropped before frame %d", n, m.Number))
	}
	if cur.CounterResets > prev.CounterResets {
		out = append(out, fmt.Sprintf("frame counter reset to %d", m.Number))
	}
	if cur.QuaternionAnomalies > prev.QuaternionAnomalies && m.Quaternion != nil {
		out = append(out, fmt.Sprintf("IMU anomaly: %s (norm %.3f)", daq.FormatQuaternion(*m.Quaternion), m.Quaternion.Norm()))
	}
	if n := cur.CommandFailures - prev.CommandFailures; n > 0 {
		out = append(out, fmt.Sprintf("%d register write(s) failed", n))
	}

	return out
}

// printAnomalies prints the anomalies of one frame in highlighted format
func printAnomalies(m miniscope.FrameMeta, anomalies []string) {
	timestamp := m.Timestamp.Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;33mANOMALY:\033[0m FRAME #%d\n", timestamp, m.Number)
	for i, a := range anomalies {
		fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, a)
	}
	fmt.Println()
}

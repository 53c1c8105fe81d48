// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Device selection flags
	deviceIndex int
	variantName string
	simulate    bool
	configPath  string

	// Setting flags
	ledLevel       int
	gainLevel      string
	frameRate      int
	exposure       int
	lensFocus      int
	framePulse     int
	respectTrigger bool

	// Commutator flags
	commutatorPort      string
	commutatorBaud      int
	commutatorThreshold float64
)

var rootCmd = &cobra.Command{
	Use:   "miniscope",
	Short: "Miniscope DAQ acquisition tool",
	Long: `Miniscope - A CLI tool for acquiring frames and telemetry from UCLA Miniscope
DAQ boxes.

The DAQ enumerates as a UVC camera. Configuration commands for the head-mounted
peripherals (LED driver, image sensor, electrowetting lens, IMU) are tunnelled
through three camera properties; telemetry comes back the same way.

Device selection:
  --index 0           Capture device index
  --variant v4        Hardware revision (v4, v3, v3-legacy, minicam)
  --simulate          Use the built-in simulated DAQ instead of a camera

Settings may also be read from a YAML file (--config) whose keys match the
flag names. Flags given on the command line override the file.

For the serve command, the Basic auth password is read from the
MINISCOPE_PASSWORD environment variable, or prompted interactively if not set.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&deviceIndex, "index", "i", 0, "Capture device index")
	rootCmd.PersistentFlags().StringVarP(&variantName, "variant", "V", "v4", "Hardware variant")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Use a simulated DAQ")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
}

// addSettingFlags registers the device setting flags on an acquisition command.
func addSettingFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&ledLevel, "led", 0, "Excitation LED brightness")
	cmd.Flags().StringVar(&gainLevel, "gain", "low", "Sensor gain (low, medium, high, extreme or a number)")
	cmd.Flags().IntVar(&frameRate, "fps", 30, "Frame rate")
	cmd.Flags().IntVar(&exposure, "exposure", 255, "Exposure (v3-legacy)")
	cmd.Flags().IntVar(&lensFocus, "ewl", 0, "Electrowetting lens focus (-127..127)")
	cmd.Flags().IntVar(&framePulse, "frame-pulse", 0, "Recording frame pulse (v3-legacy: 1 record start, 0 record end)")
	cmd.Flags().BoolVar(&respectTrigger, "led-respects-trigger", false, "Hold the LED off while the trigger input is inactive")
}

// addCommutatorFlags registers the commutator flags on an acquisition command.
func addCommutatorFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&commutatorPort, "commutator", "", "Commutator serial port")
	cmd.Flags().IntVar(&commutatorBaud, "commutator-baud", 9600, "Commutator baud rate")
	cmd.Flags().Float64Var(&commutatorThreshold, "commutator-threshold", 0.25, "Rotation in turns before the commutator is driven")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

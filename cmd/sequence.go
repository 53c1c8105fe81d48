// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/miniscope/pkg/miniscope"
)

var (
	sequenceList bool
)

var sequenceCmd = &cobra.Command{
	Use:   "sequence",
	Short: "Print a variant's initialization and shutdown sequences",
	Long: `Print the operations the acquisition loop sends to the selected variant:
the initialization sequence for the requested settings, the operations each
runtime setting translates to, and the shutdown sequence.

No device is opened.

Examples:
  miniscope sequence --variant v4 --led 40 --fps 20
  miniscope sequence --list`,
	RunE: runSequence,
}

func init() {
	rootCmd.AddCommand(sequenceCmd)
	addSettingFlags(sequenceCmd)
	sequenceCmd.Flags().BoolVar(&sequenceList, "list", false, "List the known variants")
}

func runSequence(cmd *cobra.Command, args []string) error {
	if sequenceList {
		for _, name := range miniscope.VariantNames() {
			v, _ := miniscope.LookupVariant(name)
			fmt.Printf("%-10s %s\n", v.Name, v.Description)
		}
		return nil
	}

	v, err := miniscope.LookupVariant(variantName)
	if err != nil {
		return err
	}
	requested, err := requestedSettings(cmd.Flags(), v)
	if err != nil {
		return err
	}

	snapshot := v.Defaults
	for s, value := range requested {
		snapshot = snapshot.With(s, value)
	}

	fmt.Printf("Variant: %s (%s)\n\n", v.Name, v.Description)

	fmt.Printf("=== Initialization ===\n")
	printOps(v.InitOps(snapshot))

	fmt.Printf("\n=== Settings ===\n")
	for _, s := range miniscope.AllSettings {
		if !v.Supports(s) {
			continue
		}
		value := snapshot.Get(s)
		if !v.Runtime(s) {
			fmt.Printf("%s=%d (%s): applied at start only\n", s, value, v.Domains[s])
			continue
		}
		if s == miniscope.SettingTriggerPolicy {
			fmt.Printf("%s=%v: LED held at 0 while the trigger is inactive\n", s, snapshot.Bool(s))
			continue
		}
		fmt.Printf("%s=%d (%s):\n", s, value, v.Domains[s])
		ops, err := v.Ops(s, value)
		if err != nil {
			fmt.Printf("  %v\n", err)
			continue
		}
		printOps(ops)
	}

	fmt.Printf("\n=== Shutdown ===\n")
	printOps(v.ShutdownOps())
	return nil
}

func printOps(ops []miniscope.Op) {
	if len(ops) == 0 {
		fmt.Printf("  (none)\n")
		return
	}
	for i, op := range ops {
		fmt.Printf("  %2d. %s\n", i+1, op)
	}
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/miniscope/pkg/daq"
)

var (
	encodeDecode bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode ADDR [BYTES...]",
	Short: "Encode a peripheral command into register values",
	Long: `Pack an address byte and up to five payload bytes into a command word and
show the three 16-bit register values it is sent as.

Numbers accept decimal, 0x hex and 0b binary.

With --decode the single argument is a command word, which is unpacked
into its address and payload.

Examples:
  # LED off on a V3 headstage
  miniscope encode 152 0 0

  # Decode a word read back from the registers
  miniscope encode --decode 0xB00403C0`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().BoolVarP(&encodeDecode, "decode", "d", false, "Decode a command word instead")
}

func runEncode(cmd *cobra.Command, args []string) error {
	if encodeDecode {
		if len(args) != 1 {
			return fmt.Errorf("--decode takes exactly one command word")
		}
		word, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid command word %q: %w", args[0], err)
		}
		printCommand(daq.Command(word))
		return nil
	}

	values := make([]byte, len(args))
	for i, arg := range args {
		v, err := strconv.ParseUint(arg, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid byte %q: %w", arg, err)
		}
		values[i] = byte(v)
	}

	c, err := daq.NewCommand(values[0], values[1:]...)
	if err != nil {
		return err
	}
	printCommand(c)
	return nil
}

func printCommand(c daq.Command) {
	r := daq.Split(c)
	fmt.Printf("Word:      0x%012X\n", uint64(c))
	fmt.Printf("Registers: 0x%04X 0x%04X 0x%04X\n", r[0], r[1], r[2])
	fmt.Printf("Decoded:   %s\n", daq.FormatCommand(c))
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/miniscope/pkg/miniscope"
)

// errRecordingComplete ends a recording that reached --frames.
var errRecordingComplete = errors.New("recording complete")

var (
	recordDir    string
	recordFrames int
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record frames to PNG files with a CBOR metadata sidecar",
	Long: `Acquire frames and write each one to DIR/frame_NNNNNN.png. Per-frame
metadata (frame number, trigger, orientation, timestamp, size) is appended
to DIR/frames.cbor as a CBOR sequence.

Recording stops after --frames frames, when the stream ends, or on Ctrl+C.`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	addSettingFlags(recordCmd)
	addCommutatorFlags(recordCmd)
	recordCmd.Flags().StringVarP(&recordDir, "out", "o", "recording", "Output directory")
	recordCmd.Flags().IntVarP(&recordFrames, "frames", "n", 0, "Stop after N frames (0 = unlimited)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(recordDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	metaFile, err := os.Create(filepath.Join(recordDir, "frames.cbor"))
	if err != nil {
		return fmt.Errorf("failed to create metadata file: %w", err)
	}
	defer metaFile.Close()
	metaBuf := bufio.NewWriter(metaFile)
	meta := miniscope.NewMetaWriter(metaBuf)

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

	fmt.Printf("Miniscope - Record\n")
	fmt.Printf("Device: %s\n", devInfo)
	fmt.Printf("Output: %s\n", recordDir)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	ctx, stop := interruptContext()
	defer stop()

	sub, err := src.Subscribe()
	if err != nil {
		return err
	}
	defer sub.Close()

	written := 0
	err = consume(ctx, sub, func(f miniscope.Frame) error {
		if err := writePNG(filepath.Join(recordDir, fmt.Sprintf("frame_%06d.png", written)), f); err != nil {
			return err
		}
		if err := meta.Write(f.FrameMeta); err != nil {
			return fmt.Errorf("failed to write metadata: %w", err)
		}
		driveCommutator(comm, f)

		written++
		if written%100 == 0 {
			fmt.Printf("%d frames\n", written)
		}
		if recordFrames > 0 && written >= recordFrames {
			return errRecordingComplete
		}
		return nil
	})
	if errors.Is(err, errRecordingComplete) {
		err = nil
	}

	if flushErr := metaBuf.Flush(); flushErr != nil && err == nil {
		err = fmt.Errorf("failed to write metadata: %w", flushErr)
	}

	fmt.Printf("\nWrote %d frames to %s\n\n", written, recordDir)
	fmt.Print(src.Statistics().String())
	return err
}

func writePNG(path string, f miniscope.Frame) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(out, f.Image); err != nil {
		out.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return out.Close()
}

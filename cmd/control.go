// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/miniscope/pkg/commutator"
	"github.com/Thermoquad/miniscope/pkg/miniscope"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for live acquisition and settings",
	Long: `Monitor a miniscope and change its settings via an interactive terminal UI.

Features:
  - Live frame number, trigger gate and orientation
  - Statistics tracking
  - Runtime setting edits (LED, gain, frame rate, focus, ...)
  - Event logging

Up/down selects a setting, +/- steps it, Enter edits the value directly.
Changes are applied by the acquisition loop at the start of its next frame.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	addSettingFlags(controlCmd)
	addCommutatorFlags(controlCmd)
}

// frameForwarder moves frames from a subscription to the TUI at a fixed rate
type frameForwarder struct {
	sub  *miniscope.Subscription
	comm *commutator.Commutator
	p    *tea.Program
}

func runControl(cmd *cobra.Command, args []string) error {
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

	m := initialControlModel(src, devInfo)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Route diagnostics into the event log; plain log output would tear
	// the alt screen
	log.SetOutput(io.Discard)
	miniscope.SetLogger(func(format string, v ...interface{}) {
		p.Send(controlLogMsg{message: fmt.Sprintf(format, v...)})
	})

	sub, err := src.Subscribe()
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fwd := &frameForwarder{sub: sub, comm: comm, p: p}
	go fwd.run(ctx)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// run forwards the most recent frame every tick, with the number of frames
// seen since the previous tick.
func (f *frameForwarder) run(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var latest *miniscope.FrameMeta
	received := 0

	for {
		select {
		case <-ctx.Done():
			return

		case frame, ok := <-f.sub.Frames():
			if !ok {
				f.p.Send(streamEndedMsg{err: f.sub.Err()})
				return
			}
			meta := frame.FrameMeta
			latest = &meta
			received++
			driveCommutator(f.comm, frame)

		case <-ticker.C:
			if latest != nil {
				f.p.Send(controlFrameMsg{meta: *latest, received: received})
				latest = nil
				received = 0
			}
		}
	}
}

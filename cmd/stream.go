// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/miniscope/pkg/commutator"
	"github.com/Thermoquad/miniscope/pkg/daq"
	"github.com/Thermoquad/miniscope/pkg/miniscope"
)

// interruptContext is cancelled on Ctrl+C or SIGTERM.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// closeWithin runs c.Close in the background and waits at most d for it.
// It reports whether Close returned in time.
func closeWithin(c io.Closer, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Close(); err != nil {
			log.Printf("Close: %v", err)
		}
	}()

	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

// consume hands every frame of sub to handle until the stream ends, ctx is
// cancelled or handle fails. It returns the error that ended the stream.
func consume(ctx context.Context, sub *miniscope.Subscription, handle func(miniscope.Frame) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-sub.Frames():
			if !ok {
				return sub.Err()
			}
			if err := handle(f); err != nil {
				return err
			}
		}
	}
}

// driveCommutator forwards the frame orientation to c, if both exist.
func driveCommutator(c *commutator.Commutator, f miniscope.Frame) {
	if c == nil || f.Quaternion == nil {
		return
	}
	sent, err := c.Update(*f.Quaternion)
	if err != nil {
		log.Printf("Commutator: %v", err)
		return
	}
	if sent {
		log.Printf("Commutator: total %.2f turns", c.Total())
	}
}

// formatFrame renders one line of frame metadata.
func formatFrame(m miniscope.FrameMeta) string {
	line := fmt.Sprintf("[%s] FRAME #%d %dx%d trigger=%v",
		m.Timestamp.Format("15:04:05.000"), m.Number, m.Width, m.Height, m.Trigger)
	if m.Quaternion != nil {
		line += " q=" + daq.FormatQuaternion(*m.Quaternion)
	}
	return line
}

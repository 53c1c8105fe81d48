// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/miniscope/pkg/miniscope"
)

var (
	watchURL         string
	watchUsername    string
	watchNoSSLVerify bool
	watchDuration    int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch frame metadata from a remote frame server",
	Long: `Connect to a frame server started with "miniscope serve" and print the
frame metadata it streams. Connecting starts acquisition on the server if no
other client is connected.

For authenticated servers the password is read from MINISCOPE_PASSWORD, or
prompted interactively if not set.

Exit codes:
  0 - Watched for the requested duration (or until Ctrl+C)
  1 - Connection dropped by the server
  2 - Connection error`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchURL, "url", "u", "ws://localhost:8080/frames", "Frame server URL (ws:// or wss://)")
	watchCmd.Flags().StringVar(&watchUsername, "username", "", "Username for HTTP Basic auth")
	watchCmd.Flags().BoolVar(&watchNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
	watchCmd.Flags().IntVar(&watchDuration, "duration", 0, "Watch duration in seconds (0 = until Ctrl+C)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	password := ""
	if watchUsername != "" {
		var err error
		password, err = GetPassword()
		if err != nil {
			return err
		}
	}

	conn, err := OpenWebSocketConnection(watchURL, watchUsername, password, watchNoSSLVerify)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Miniscope - Watch\n")
	fmt.Printf("Connection: %s\n", watchURL)
	if watchDuration > 0 {
		fmt.Printf("Duration: %d seconds\n", watchDuration)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := interruptContext()
	defer stop()

	frameChan := make(chan miniscope.FrameMeta, 100)
	errChan := make(chan error, 1)

	// Reader goroutine
	go func() {
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				errChan <- err
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			var meta miniscope.FrameMeta
			if err := json.Unmarshal(data, &meta); err != nil {
				fmt.Printf("[ERROR] invalid frame message: %v\n", err)
				continue
			}
			frameChan <- meta
		}
	}()

	var deadline <-chan time.Time
	if watchDuration > 0 {
		deadline = time.After(time.Duration(watchDuration) * time.Second)
	}

	start := time.Now()
	received := 0
	for {
		select {
		case meta := <-frameChan:
			received++
			fmt.Println(formatFrame(meta))

		case err := <-errChan:
			fmt.Printf("\n[%s] Connection error: %v\n", time.Now().Format("15:04:05.000"), err)
			printWatchSummary(start, received)
			os.Exit(1)

		case <-deadline:
			printWatchSummary(start, received)
			return nil

		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			printWatchSummary(start, received)
			return nil
		}
	}
}

func printWatchSummary(start time.Time, received int) {
	elapsed := time.Since(start)
	fmt.Printf("\n--- Watch summary ---\n")
	fmt.Printf("Duration: %.0f seconds\n", elapsed.Seconds())
	fmt.Printf("Frames received: %d\n", received)
	if elapsed > 0 {
		fmt.Printf("Rate: %.1f frames/sec\n", float64(received)/elapsed.Seconds())
	}
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Thermoquad/miniscope/pkg/capture"
	"github.com/Thermoquad/miniscope/pkg/commutator"
	"github.com/Thermoquad/miniscope/pkg/miniscope"
)

// deviceOpener returns the capture opener selected by --simulate.
func deviceOpener() (capture.Opener, string) {
	if simulate {
		return capture.NewSimulator().Open, "simulated DAQ"
	}
	return cameraOpener, "UVC capture"
}

// OpenSource builds a shared source for the selected device, with the
// settings requested on the command line applied over the variant defaults.
func OpenSource(cmd *cobra.Command) (*miniscope.Source, string, error) {
	v, err := miniscope.LookupVariant(variantName)
	if err != nil {
		return nil, "", err
	}

	requested, err := requestedSettings(cmd.Flags(), v)
	if err != nil {
		return nil, "", err
	}

	initial := v.Defaults
	for s, value := range requested {
		initial = initial.With(s, value)
	}

	opener, kind := deviceOpener()
	src, err := miniscope.NewSource(miniscope.Config{
		Variant:  v,
		Index:    deviceIndex,
		Opener:   opener,
		Settings: miniscope.NewSettings(initial),
	})
	if err != nil {
		return nil, "", err
	}

	return src, fmt.Sprintf("%s #%d (%s)", kind, deviceIndex, v.Description), nil
}

// OpenCommutator opens the commutator named by --commutator. It returns nil
// when no commutator was requested.
func OpenCommutator() (*commutator.Commutator, io.Closer, error) {
	if commutatorPort == "" {
		return nil, nil, nil
	}

	port, err := commutator.OpenSerial(commutatorPort, commutatorBaud)
	if err != nil {
		return nil, nil, err
	}
	return commutator.New(port, commutatorThreshold), port, nil
}

// OpenWebSocketConnection dials a frame server with optional HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (*websocket.Conn, error) {
	// Parse and validate URL
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	// Configure TLS for wss://
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	// Build HTTP headers with Basic auth
	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return conn, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("MINISCOPE_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

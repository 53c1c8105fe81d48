// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/miniscope/pkg/miniscope"
)

var (
	serveListen   string
	serveUsername string
)

const wsWriteTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Stream frame metadata to WebSocket clients",
	Long: `Serve frame metadata over WebSocket. Each client connected to /frames
receives one JSON text message per frame. /status returns the acquisition
state and statistics as JSON.

The device is only acquiring while at least one client is connected: the
first client starts the acquisition loop and the last one to leave stops it.

With --username, clients must authenticate with HTTP Basic auth. The password
is read from MINISCOPE_PASSWORD or prompted for at start.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addSettingFlags(serveCmd)
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveUsername, "username", "", "Require HTTP Basic auth with this username")
}

// frameServer hands each WebSocket client its own subscription.
type frameServer struct {
	src      *miniscope.Source
	upgrader websocket.Upgrader
	username string
	password string
}

func runServe(cmd *cobra.Command, args []string) error {
	src, devInfo, err := OpenSource(cmd)
	if err != nil {
		return err
	}
	defer src.Close()

	fs := &frameServer{src: src, username: serveUsername}
	if serveUsername != "" {
		fs.password, err = GetPassword()
		if err != nil {
			return err
		}
	}

	server := &http.Server{Addr: serveListen, Handler: fs.routes()}

	fmt.Printf("Miniscope - Frame Server\n")
	fmt.Printf("Device: %s\n", devInfo)
	fmt.Printf("Listening: %s\n", serveListen)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := interruptContext()
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	if err := <-errChan; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	fmt.Printf("\n%s", src.Statistics().String())
	return nil
}

func (fs *frameServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/frames", fs.requireAuth(fs.handleFrames))
	mux.HandleFunc("/status", fs.requireAuth(fs.handleStatus))
	return mux
}

func (fs *frameServer) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	if fs.username == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(fs.username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(fs.password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="miniscope"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (fs *frameServer) handleFrames(w http.ResponseWriter, r *http.Request) {
	conn, err := fs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub, err := fs.src.Subscribe()
	if err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
		return
	}
	defer sub.Close()

	log.Printf("Client %s connected (%s)", r.RemoteAddr, sub.ID)

	// Reader goroutine - only watches for the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-gone:
			cancel()
		case <-ctx.Done():
		}
	}()

	err = consume(ctx, sub, func(f miniscope.Frame) error {
		data, err := f.JSON()
		if err != nil {
			return err
		}
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteMessage(websocket.TextMessage, data)
	})
	if err != nil {
		log.Printf("Client %s: %v", r.RemoteAddr, err)
	}
	log.Printf("Client %s disconnected", r.RemoteAddr)
}

type serveStatus struct {
	Variant    string             `json:"variant"`
	State      string             `json:"state"`
	Error      string             `json:"error,omitempty"`
	Settings   map[string]int     `json:"settings"`
	Statistics miniscope.Counters `json:"statistics"`
}

func (fs *frameServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	v := fs.src.Variant()
	snapshot := fs.src.Settings().Snapshot()

	status := serveStatus{
		Variant:    v.Name,
		State:      fs.src.State().String(),
		Settings:   make(map[string]int),
		Statistics: fs.src.Statistics().Counters(),
	}
	if err := fs.src.Err(); err != nil {
		status.Error = err.Error()
	}
	for _, s := range miniscope.AllSettings {
		if v.Supports(s) {
			status.Settings[s.String()] = snapshot.Get(s)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Printf("Status encode failed: %v", err)
	}
}

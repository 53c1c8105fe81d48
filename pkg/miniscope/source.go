// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package miniscope

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Source shares one acquisition loop between any number of subscribers.
//
// The first subscriber starts a loop; when the last one unsubscribes the
// loop is cancelled and the device released. A later subscriber starts a
// fresh loop from the uninitialized state. Loop bodies never overlap, so a
// restart waits for the previous teardown to finish.
type Source struct {
	cfg      Config
	settings *Settings
	stats    *Statistics

	// captureLock serializes loop bodies on the single capture handle.
	captureLock sync.Mutex
	wg          sync.WaitGroup

	mu      sync.Mutex
	session *session
	loop    *Loop
	lastErr error
	closed  bool
}

type session struct {
	ctx      context.Context
	cancel   context.CancelFunc
	loop     *Loop
	subs     map[uuid.UUID]*Subscription
	finished bool
}

// NewSource returns an idle source for cfg.
func NewSource(cfg Config) (*Source, error) {
	if cfg.Variant == nil {
		return nil, errors.New("miniscope: no variant configured")
	}
	if cfg.Opener == nil {
		return nil, errors.New("miniscope: no capture opener configured")
	}
	if cfg.Settings == nil {
		cfg.Settings = NewSettings(cfg.Variant.Defaults)
	}
	return &Source{
		cfg:      cfg,
		settings: cfg.Settings,
		stats:    NewStatistics(),
	}, nil
}

// Variant returns the device variant.
func (s *Source) Variant() *Variant {
	return s.cfg.Variant
}

// Settings returns the live settings read by the loop every cycle.
func (s *Source) Settings() *Settings {
	return s.settings
}

// Statistics returns the acquisition statistics shared by all sessions.
func (s *Source) Statistics() *Statistics {
	return s.stats
}

// Set validates value against the variant and stores it. The loop picks it
// up at the top of its next cycle.
func (s *Source) Set(setting Setting, value int) error {
	if err := s.cfg.Variant.Validate(setting, value); err != nil {
		return err
	}
	s.settings.Set(setting, value)
	return nil
}

// State returns the state of the current or most recent loop.
func (s *Source) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loop == nil {
		return StateUninitialized
	}
	return s.loop.State()
}

// Err returns the error that ended the most recent loop, if any.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Subscribe attaches a new consumer, starting the loop if none is running.
func (s *Source) Subscribe() (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSourceClosed
	}

	if s.session == nil {
		s.session = s.startLocked()
	}

	sub := &Subscription{
		ID:     uuid.New(),
		frames: make(chan Frame),
		quit:   make(chan struct{}),
		src:    s,
		sess:   s.session,
	}
	s.session.subs[sub.ID] = sub
	return sub, nil
}

// Close stops the loop, ends every subscription and rejects new ones.
// It waits for the device to be released.
func (s *Source) Close() error {
	s.mu.Lock()
	s.closed = true
	if s.session != nil {
		s.session.cancel()
		s.session = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Source) startLocked() *session {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		ctx:    ctx,
		cancel: cancel,
		loop:   NewLoop(s.cfg, s.stats),
		subs:   make(map[uuid.UUID]*Subscription),
	}
	s.loop = sess.loop
	s.wg.Add(1)
	go s.run(sess)
	return sess
}

func (s *Source) run(sess *session) {
	defer s.wg.Done()
	defer sess.cancel()

	s.captureLock.Lock()
	var err error
	if sess.ctx.Err() == nil {
		err = sess.loop.Run(sess.ctx, func(f Frame) { s.emit(sess, f) })
	}
	s.captureLock.Unlock()

	s.mu.Lock()
	if s.session == sess {
		s.session = nil
	}
	s.lastErr = err
	sess.finished = true
	subs := make([]*Subscription, 0, len(sess.subs))
	for _, sub := range sess.subs {
		subs = append(subs, sub)
	}
	sess.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.finish(err)
	}
}

// emit hands f to every subscriber in turn. A subscriber that is not
// reading blocks the loop until it reads or unsubscribes.
func (s *Source) emit(sess *session, f Frame) {
	s.mu.Lock()
	targets := make([]*Subscription, 0, len(sess.subs))
	for _, sub := range sess.subs {
		targets = append(targets, sub)
	}
	s.mu.Unlock()

	for _, sub := range targets {
		if !sub.send(sess.ctx, f) {
			return
		}
	}
}

func (s *Source) unsubscribe(sub *Subscription) {
	sub.quitOnce.Do(func() { close(sub.quit) })

	s.mu.Lock()
	sess := sub.sess
	if !sess.finished {
		if _, ok := sess.subs[sub.ID]; ok {
			delete(sess.subs, sub.ID)
			if len(sess.subs) == 0 {
				sess.cancel()
				if s.session == sess {
					s.session = nil
				}
			}
		}
	}
	s.mu.Unlock()

	sub.finish(nil)
}

// Subscription is one consumer's view of a Source.
type Subscription struct {
	ID uuid.UUID

	frames   chan Frame
	quit     chan struct{}
	quitOnce sync.Once
	src      *Source
	sess     *session

	// sendMu is held while the loop delivers to frames; finish takes it
	// before closing frames.
	sendMu   sync.Mutex
	finished bool

	mu  sync.Mutex
	err error
}

// Frames delivers frames until the loop stops or the subscription is
// closed, then is closed.
func (sub *Subscription) Frames() <-chan Frame {
	return sub.frames
}

// Err returns the error that ended the loop. It is meaningful once Frames
// has been closed; cancellation and end of stream leave it nil.
func (sub *Subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

// Close unsubscribes. The last subscriber to close stops the loop.
func (sub *Subscription) Close() {
	sub.src.unsubscribe(sub)
}

// send delivers f unless the subscription has quit. It returns false when
// ctx is cancelled.
func (sub *Subscription) send(ctx context.Context, f Frame) bool {
	sub.sendMu.Lock()
	defer sub.sendMu.Unlock()

	if sub.finished {
		return true
	}
	select {
	case sub.frames <- f:
	case <-sub.quit:
	case <-ctx.Done():
		return false
	}
	return true
}

// finish records err and closes frames. Only the first call has an effect.
func (sub *Subscription) finish(err error) {
	sub.sendMu.Lock()
	defer sub.sendMu.Unlock()

	if sub.finished {
		return
	}
	sub.finished = true

	sub.mu.Lock()
	sub.err = err
	sub.mu.Unlock()
	close(sub.frames)
}

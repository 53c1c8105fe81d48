// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sync"

	"github.com/Thermoquad/miniscope/pkg/daq"
)

// ErrSimulatedFault is returned by injected Simulator failures.
var ErrSimulatedFault = errors.New("simulated transport fault")

// PropertyWrite records one SetProperty call.
type PropertyWrite struct {
	Property Property
	Value    float64
}

// Simulator is an in-memory DAQ box. It records property writes, decodes
// register writes into commands, reports telemetry on the register
// properties and synthesizes grayscale frames.
//
// A Simulator can be opened, closed and reopened; counters accumulate.
type Simulator struct {
	mu sync.Mutex

	open       bool
	opens      int
	closes     int
	openErr    error
	frameLimit int
	frames     int

	written  map[Property]float64
	readback map[Property]float64
	writes   []PropertyWrite
	commands []daq.Command
	pending  daq.Registers

	failWritesAfter int // -1 disables
	readErr         error
	imageErr        error
}

// NewSimulator returns a simulator reporting an open trigger gate and an
// identity orientation.
func NewSimulator() *Simulator {
	s := &Simulator{
		written:         make(map[Property]float64),
		readback:        make(map[Property]float64),
		failWritesAfter: -1,
	}
	s.readback[Gamma] = 0
	s.setQuaternionLocked(daq.Quaternion{W: 1})
	return s
}

// Open implements Opener.
func (s *Simulator) Open(index int) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openErr != nil {
		return nil, fmt.Errorf("%w: index %d: %v", ErrUnavailable, index, s.openErr)
	}
	if s.open {
		return nil, fmt.Errorf("%w: index %d already open", ErrUnavailable, index)
	}
	s.open = true
	s.opens++
	return s, nil
}

// SetOpenError makes subsequent Open calls fail.
func (s *Simulator) SetOpenError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
}

// SetFrameLimit ends the stream after n frames in total. Zero means unlimited.
func (s *Simulator) SetFrameLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameLimit = n
}

// FailWritesAfter lets n more property writes succeed and fails every one
// after that. A negative n clears the fault.
func (s *Simulator) FailWritesAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWritesAfter = n
}

// FailPropertyReads makes GetProperty return err. Nil clears the fault.
func (s *Simulator) FailPropertyReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// FailImageReads makes Read return err. Nil clears the fault.
func (s *Simulator) FailImageReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageErr = err
}

// SetTrigger sets the trigger property so the gate reads as open or closed.
func (s *Simulator) SetTrigger(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if open {
		s.readback[Gamma] = 0
	} else {
		s.readback[Gamma] = 1
	}
}

// SetQuaternion sets the orientation reported on the IMU channels.
func (s *Simulator) SetQuaternion(q daq.Quaternion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setQuaternionLocked(q)
}

func (s *Simulator) setQuaternionLocked(q daq.Quaternion) {
	for i, p := range [4]Property{Saturation, Hue, Gain, Brightness} {
		raw := uint16(int16(math.Round(q.Components()[i] / daq.QuaternionScale)))
		s.readback[p] = float64(raw)
	}
}

// SetReadback overrides the value GetProperty reports for p.
func (s *Simulator) SetReadback(p Property, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readback[p] = value
}

// Commands returns the commands decoded from register writes so far.
func (s *Simulator) Commands() []daq.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]daq.Command(nil), s.commands...)
}

// Writes returns every successful property write so far.
func (s *Simulator) Writes() []PropertyWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PropertyWrite(nil), s.writes...)
}

// Written returns the last value written to p.
func (s *Simulator) Written(p Property) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.written[p]
	return v, ok
}

// ResetLog clears the write and command logs.
func (s *Simulator) ResetLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = nil
	s.commands = nil
}

// Opens returns how many times the simulator has been opened.
func (s *Simulator) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

// Closes returns how many times Close has been called.
func (s *Simulator) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// IsOpen reports whether the simulator holds an open handle.
func (s *Simulator) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Frames returns how many frames have been produced.
func (s *Simulator) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *Simulator) SetProperty(p Property, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return errors.New("simulator: device closed")
	}
	if s.failWritesAfter == 0 {
		return fmt.Errorf("%w: set %s", ErrSimulatedFault, p)
	}
	if s.failWritesAfter > 0 {
		s.failWritesAfter--
	}

	s.written[p] = value
	s.writes = append(s.writes, PropertyWrite{Property: p, Value: value})

	for i, rp := range RegisterProperties {
		if rp != p {
			continue
		}
		s.pending[i] = daq.RawChannel(value)
		// The last register in channel order latches the command
		if i == len(RegisterProperties)-1 {
			s.commands = append(s.commands, daq.Join(s.pending))
			s.pending = daq.Registers{}
		}
	}
	return nil
}

func (s *Simulator) GetProperty(p Property) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return 0, errors.New("simulator: device closed")
	}
	if s.readErr != nil {
		return 0, fmt.Errorf("get %s: %w", p, s.readErr)
	}

	switch p {
	case Contrast:
		return float64(s.frames & 0xFFFF), nil
	case FrameWidth, FrameHeight:
		return float64(s.sizeLocked(p)), nil
	}
	if v, ok := s.readback[p]; ok {
		return v, nil
	}
	return s.written[p], nil
}

func (s *Simulator) Read() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, errors.New("simulator: device closed")
	}
	if s.imageErr != nil {
		return nil, fmt.Errorf("read frame: %w", s.imageErr)
	}
	if s.frameLimit > 0 && s.frames >= s.frameLimit {
		return nil, io.EOF
	}

	w, h := s.sizeLocked(FrameWidth), s.sizeLocked(FrameHeight)
	img := image.NewGray(image.Rect(0, 0, w, h))
	shift := s.frames
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x := range row {
			row[x] = uint8(x + y + shift)
		}
	}
	s.frames++
	return img, nil
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	s.open = false
	return nil
}

func (s *Simulator) sizeLocked(p Property) int {
	if v, ok := s.written[p]; ok && v > 0 {
		return int(v)
	}
	if p == FrameWidth {
		return 64
	}
	return 48
}

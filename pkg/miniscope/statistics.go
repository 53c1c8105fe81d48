// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package miniscope

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// quaternionTolerance bounds how far a quaternion norm may drift from 1
// before the sample counts as anomalous.
const quaternionTolerance = 0.05

// frameCounterModulus is the range of the hardware frame counter, which
// travels in one 16-bit register.
const frameCounterModulus = 1 << 16

// Counters is a copy of the statistics at one instant.
type Counters struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	TotalFrames         uint64
	DroppedFrames       uint64
	TriggeredFrames     uint64
	CounterResets       uint64
	CommandsSent        uint64
	CommandFailures     uint64
	QuaternionSamples   uint64
	QuaternionAnomalies uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // failures/sec
}

// Statistics tracks acquisition counters. It is safe for concurrent use:
// the loop records while consumers read.
type Statistics struct {
	mu sync.Mutex
	c  Counters

	lastCounter int
	haveCounter bool
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{c: Counters{StartTime: now, LastUpdateTime: now}}
}

// RecordFrame updates statistics for an emitted frame. hardwareCounter
// says whether Number comes from the device; only then are gaps counted.
func (s *Statistics) RecordFrame(meta FrameMeta, hardwareCounter bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.c.TotalFrames++
	if meta.Trigger {
		s.c.TriggeredFrames++
	}

	if hardwareCounter {
		if s.haveCounter {
			switch {
			case meta.Number > s.lastCounter+1:
				s.c.DroppedFrames += uint64(meta.Number - s.lastCounter - 1)
			case meta.Number < s.lastCounter && s.lastCounter-meta.Number >= frameCounterModulus/2:
				// Wrapped past the top of the register
				s.c.DroppedFrames += uint64(meta.Number + frameCounterModulus - s.lastCounter - 1)
			case meta.Number <= s.lastCounter:
				s.c.CounterResets++
			}
		}
		s.lastCounter = meta.Number
		s.haveCounter = true
	}

	if q := meta.Quaternion; q != nil {
		s.c.QuaternionSamples++
		outOfRange := false
		for _, v := range q.Components() {
			if v < -1 || v > 1 {
				outOfRange = true
			}
		}
		if outOfRange || math.Abs(q.Norm()-1) > quaternionTolerance {
			s.c.QuaternionAnomalies++
		}
	}

	s.c.LastUpdateTime = time.Now()
}

// RecordCommand counts one op sent to the device.
func (s *Statistics) RecordCommand(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.c.CommandFailures++
		return
	}
	s.c.CommandsSent++
}

// Counters returns a copy of the counters with rates calculated.
func (s *Statistics) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.c
	elapsed := time.Since(c.StartTime).Seconds()
	if elapsed > 0 {
		c.FrameRate = float64(c.TotalFrames) / elapsed
		c.ErrorRate = float64(c.CommandFailures) / elapsed
	}
	return c
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	c := s.Counters()

	var droppedPercent, triggeredPercent, anomalyPercent float64
	if expected := c.TotalFrames + c.DroppedFrames; expected > 0 {
		droppedPercent = float64(c.DroppedFrames) * 100.0 / float64(expected)
	}
	if c.TotalFrames > 0 {
		triggeredPercent = float64(c.TriggeredFrames) * 100.0 / float64(c.TotalFrames)
	}
	if c.QuaternionSamples > 0 {
		anomalyPercent = float64(c.QuaternionAnomalies) * 100.0 / float64(c.QuaternionSamples)
	}

	elapsed := time.Since(c.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", c.TotalFrames)
	result += fmt.Sprintf("Triggered:       %8d (%.1f%%)\n", c.TriggeredFrames, triggeredPercent)

	if c.DroppedFrames > 0 {
		result += fmt.Sprintf("Dropped Frames:  %8d (%.1f%%)\n", c.DroppedFrames, droppedPercent)
	}
	if c.CounterResets > 0 {
		result += fmt.Sprintf("Counter Resets:  %8d\n", c.CounterResets)
	}
	if c.QuaternionAnomalies > 0 {
		result += fmt.Sprintf("IMU Anomalies:   %8d (%.1f%%)\n", c.QuaternionAnomalies, anomalyPercent)
	}

	result += fmt.Sprintf("Commands Sent:   %8d\n", c.CommandsSent)
	if c.CommandFailures > 0 {
		result += fmt.Sprintf("Command Errors:  %8d\n", c.CommandFailures)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", c.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", c.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.c = Counters{StartTime: now, LastUpdateTime: now}
	s.lastCounter = 0
	s.haveCounter = false
}

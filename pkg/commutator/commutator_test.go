// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package commutator

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/miniscope/pkg/daq"
)

// heading returns a unit quaternion rotated by angle radians about z.
func heading(angle float64) daq.Quaternion {
	return daq.Quaternion{W: math.Cos(angle / 2), Z: math.Sin(angle / 2)}
}

func TestYaw(t *testing.T) {
	for _, angle := range []float64{0, 0.5, -1.2, math.Pi / 2, 3} {
		assert.InDelta(t, angle, Yaw(heading(angle)), 1e-9, "angle %v", angle)
	}
}

func TestUpdate_SendsAfterThreshold(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, 0.25)

	sent, err := c.Update(heading(0))
	require.NoError(t, err)
	assert.False(t, sent)

	// 60 degrees
	sent, err = c.Update(heading(math.Pi / 3))
	require.NoError(t, err)
	assert.False(t, sent)
	assert.InDelta(t, 1.0/6, c.Pending(), 1e-9)

	sent, err = c.Update(heading(2 * math.Pi / 3))
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Zero(t, c.Pending())
	assert.InDelta(t, 1.0/3, c.Total(), 1e-9)

	var cmd map[string]float64
	require.NoError(t, json.Unmarshal(buf.Bytes(), &cmd))
	assert.InDelta(t, 1.0/3, cmd["turn"], 1e-9)
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestUpdate_UnwrapsAcrossPi(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, 10)

	// three full counter-clockwise turns in 30 degree steps
	for i := 0; i <= 36; i++ {
		_, err := c.Update(heading(float64(i) * math.Pi / 6))
		require.NoError(t, err)
	}
	assert.InDelta(t, 3.0, c.Pending(), 1e-9)
	assert.Empty(t, buf.Bytes())
}

func TestUpdate_ClockwiseIsNegative(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, 0.3)

	for i := 0; i <= 3; i++ {
		_, err := c.Update(heading(-float64(i) * math.Pi / 4))
		require.NoError(t, err)
	}

	var cmd map[string]float64
	require.NoError(t, json.Unmarshal(buf.Bytes(), &cmd))
	assert.InDelta(t, -0.375, cmd["turn"], 1e-9)
}

func TestUpdate_IgnoresDegenerateSamples(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, 0)

	sent, err := c.Update(daq.Quaternion{})
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Zero(t, c.Pending())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("port gone")
}

func TestUpdate_WriteError(t *testing.T) {
	c := New(failingWriter{}, 0.1)

	_, err := c.Update(heading(0))
	require.NoError(t, err)
	_, err = c.Update(heading(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port gone")
	assert.NotZero(t, c.Pending())
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package miniscope

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_SnapshotAndSet(t *testing.T) {
	s := NewSettings(V4.Defaults)
	assert.Equal(t, V4.Defaults, s.Snapshot())

	s.Set(SettingBrightness, 42)
	s.SetBool(SettingTriggerPolicy, true)

	snap := s.Snapshot()
	assert.Equal(t, 42, snap.Get(SettingBrightness))
	assert.True(t, snap.Bool(SettingTriggerPolicy))
	assert.Equal(t, 30, snap.Get(SettingFrameRate))

	s.SetBool(SettingTriggerPolicy, false)
	assert.Equal(t, 0, s.Get(SettingTriggerPolicy))
}

func TestSettings_ConcurrentWritersLastWriteWins(t *testing.T) {
	s := NewSettings(Snapshot{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set(SettingBrightness, v)
				_ = s.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	got := s.Get(SettingBrightness)
	assert.True(t, got >= 0 && got < 8)
}

func TestParseSetting(t *testing.T) {
	for _, setting := range AllSettings {
		got, err := ParseSetting(setting.String())
		require.NoError(t, err)
		assert.Equal(t, setting, got)
	}

	_, err := ParseSetting("zoom")
	assert.ErrorIs(t, err, ErrUnsupportedSetting)
}

func TestParseGain(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"low", GainLow},
		{"Medium", GainMedium},
		{" high ", GainHigh},
		{"extreme", GainExtreme},
		{"32", 32},
	}
	for _, tt := range tests {
		got, err := ParseGain(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseGain("loud")
	assert.ErrorIs(t, err, ErrUnsupportedSetting)

	assert.Equal(t, "medium", GainName(GainMedium))
	assert.Equal(t, "48", GainName(48))
}

func TestDomain(t *testing.T) {
	r := Domain{Min: -2, Max: 2}
	assert.True(t, r.Contains(-2))
	assert.True(t, r.Contains(2))
	assert.False(t, r.Contains(3))
	assert.Equal(t, "[-2..2]", r.String())

	c := Domain{Choices: []int{10, 30}}
	assert.True(t, c.Contains(30))
	assert.False(t, c.Contains(20))
	assert.Equal(t, "{10,30}", c.String())
}

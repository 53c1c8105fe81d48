// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/miniscope/pkg/miniscope"
)

func newSettingFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("led", 0, "")
	flags.String("gain", "low", "")
	flags.Int("fps", 30, "")
	flags.Int("exposure", 255, "")
	flags.Int("ewl", 0, "")
	flags.Int("frame-pulse", 0, "")
	flags.Bool("led-respects-trigger", false, "")
	return flags
}

func TestApplyConfig_FillsUnsetFlags(t *testing.T) {
	flags := newSettingFlags()
	require.NoError(t, flags.Parse([]string{"--led", "40"}))

	err := applyConfig(flags, []byte("led: 10\nfps: 20\ngain: high\nbroker: tcp://elsewhere:1883\n"))
	require.NoError(t, err)

	led, _ := flags.GetInt("led")
	fps, _ := flags.GetInt("fps")
	gain, _ := flags.GetString("gain")
	assert.Equal(t, 40, led, "command line wins over the file")
	assert.Equal(t, 20, fps)
	assert.Equal(t, "high", gain)
	assert.True(t, flags.Lookup("fps").Changed)
	assert.False(t, flags.Lookup("ewl").Changed)
}

func TestApplyConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not a mapping", "- led\n- fps\n"},
		{"nested value", "led:\n  value: 3\n"},
		{"wrong type", "fps: fast\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, applyConfig(newSettingFlags(), []byte(tt.data)))
		})
	}
}

func TestApplyConfig_Empty(t *testing.T) {
	assert.NoError(t, applyConfig(newSettingFlags(), nil))
}

func TestRequestedSettings(t *testing.T) {
	flags := newSettingFlags()
	require.NoError(t, flags.Parse([]string{"--led", "40", "--gain", "medium", "--ewl", "-20", "--led-respects-trigger"}))

	got, err := requestedSettings(flags, miniscope.V4)
	require.NoError(t, err)
	assert.Equal(t, map[miniscope.Setting]int{
		miniscope.SettingBrightness:    40,
		miniscope.SettingGain:          miniscope.GainMedium,
		miniscope.SettingLensFocus:     -20,
		miniscope.SettingTriggerPolicy: 1,
	}, got)
}

func TestRequestedSettings_Validation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		variant *miniscope.Variant
	}{
		{"led out of range", []string{"--led", "300"}, miniscope.V4},
		{"fps not offered", []string{"--fps", "60"}, miniscope.V4},
		{"unsupported setting", []string{"--ewl", "10"}, miniscope.V3},
		{"gain not a level", []string{"--gain", "loud"}, miniscope.V4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := newSettingFlags()
			require.NoError(t, flags.Parse(tt.args))
			_, err := requestedSettings(flags, tt.variant)
			assert.ErrorIs(t, err, miniscope.ErrUnsupportedSetting)
		})
	}
}

func TestSettingFlags_FramePulse(t *testing.T) {
	c := &cobra.Command{Use: "test"}
	addSettingFlags(c)

	f := c.Flags().Lookup("frame-pulse")
	require.NotNil(t, f)
	assert.Contains(t, f.Usage, "1 record start")
	assert.Contains(t, f.Usage, "0 record end")

	for _, value := range []string{"0", "1"} {
		flags := newSettingFlags()
		require.NoError(t, flags.Parse([]string{"--frame-pulse", value}))
		_, err := requestedSettings(flags, miniscope.V3Legacy)
		assert.NoError(t, err, "frame-pulse %s", value)
	}

	flags := newSettingFlags()
	require.NoError(t, flags.Parse([]string{"--frame-pulse", "2"}))
	_, err := requestedSettings(flags, miniscope.V3Legacy)
	assert.ErrorIs(t, err, miniscope.ErrUnsupportedSetting)
}

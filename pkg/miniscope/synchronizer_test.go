// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package miniscope

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/miniscope/pkg/capture"
)

// opRecorder collects the ops a synchronizer pass would send.
type opRecorder struct {
	ops []Op
}

func (r *opRecorder) apply(op Op) error {
	r.ops = append(r.ops, op)
	return nil
}

func (r *opRecorder) take() []Op {
	ops := r.ops
	r.ops = nil
	return ops
}

func TestSynchronizer_FirstPassAppliesEverySetting(t *testing.T) {
	syn := NewSynchronizer(V4)
	rec := &opRecorder{}

	sent, err := syn.Sync(V4.Defaults, true, rec.apply)
	require.NoError(t, err)
	assert.Equal(t, 5, sent)
	assert.True(t, syn.Initialized())

	want := []Op{
		cmd(32, 1, 255),
		cmd(88, 0, 114, 255),
		cmd(32, 5, 0, 201, 12, 228),
		cmd(32, 5, 0, 204, 0, 225),
		cmd(238, 8, 127, 2),
	}
	if diff := cmp.Diff(want, rec.take()); diff != "" {
		t.Errorf("first pass mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, V4.Defaults, syn.LastApplied())
}

func TestSynchronizer_NoChangeSendsNothing(t *testing.T) {
	syn := NewSynchronizer(V4)
	rec := &opRecorder{}

	_, err := syn.Sync(V4.Defaults, true, rec.apply)
	require.NoError(t, err)
	rec.take()

	for i := 0; i < 3; i++ {
		sent, err := syn.Sync(V4.Defaults, true, rec.apply)
		require.NoError(t, err)
		assert.Zero(t, sent)
	}
	assert.Empty(t, rec.ops)
}

func TestSynchronizer_OnlyChangedSettingsAreSent(t *testing.T) {
	syn := NewSynchronizer(V4)
	rec := &opRecorder{}

	_, err := syn.Sync(V4.Defaults, true, rec.apply)
	require.NoError(t, err)
	rec.take()

	current := V4.Defaults.With(SettingGain, GainHigh).With(SettingLensFocus, 10)
	_, err = syn.Sync(current, true, rec.apply)
	require.NoError(t, err)

	want := []Op{
		cmd(32, 5, 0, 204, 0, 36),
		cmd(238, 8, 137, 2),
	}
	if diff := cmp.Diff(want, rec.take()); diff != "" {
		t.Errorf("delta pass mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, current, syn.LastApplied())
}

func TestSynchronizer_TriggerPolicyGatesLED(t *testing.T) {
	syn := NewSynchronizer(V4)
	rec := &opRecorder{}

	current := V4.Defaults.With(SettingBrightness, 100).With(SettingTriggerPolicy, 1)

	// Gate closed: LED forced off
	_, err := syn.Sync(current, false, rec.apply)
	require.NoError(t, err)
	ops := rec.take()
	require.Len(t, ops, 5)
	assert.Equal(t, []Op{cmd(32, 1, 255), cmd(88, 0, 114, 255)}, ops[:2])

	// Gate opens with no settings change: full brightness re-sent
	_, err = syn.Sync(current, true, rec.apply)
	require.NoError(t, err)
	assert.Equal(t, []Op{cmd(32, 1, 155), cmd(88, 0, 114, 155)}, rec.take())

	// Gate stays open: nothing
	_, err = syn.Sync(current, true, rec.apply)
	require.NoError(t, err)
	assert.Empty(t, rec.take())

	// Gate closes again: LED off
	_, err = syn.Sync(current, false, rec.apply)
	require.NoError(t, err)
	assert.Equal(t, []Op{cmd(32, 1, 255), cmd(88, 0, 114, 255)}, rec.take())
}

func TestSynchronizer_TriggerPolicyDisabledIgnoresGate(t *testing.T) {
	syn := NewSynchronizer(V4)
	rec := &opRecorder{}

	current := V4.Defaults.With(SettingBrightness, 100)
	_, err := syn.Sync(current, false, rec.apply)
	require.NoError(t, err)
	assert.Equal(t, []Op{cmd(32, 1, 155), cmd(88, 0, 114, 155)}, rec.take()[:2])

	_, err = syn.Sync(current, false, rec.apply)
	require.NoError(t, err)
	assert.Empty(t, rec.take())

	// Enabling the policy while the gate is closed turns the LED off
	_, err = syn.Sync(current.With(SettingTriggerPolicy, 1), false, rec.apply)
	require.NoError(t, err)
	assert.Equal(t, []Op{cmd(32, 1, 255), cmd(88, 0, 114, 255)}, rec.take())
}

func TestSynchronizer_PolicyIgnoredWithoutSupport(t *testing.T) {
	syn := NewSynchronizer(MiniCam)
	rec := &opRecorder{}

	current := MiniCam.Defaults.With(SettingBrightness, 20).With(SettingTriggerPolicy, 1)
	_, err := syn.Sync(current, false, rec.apply)
	require.NoError(t, err)

	want := []Op{
		cmd(108, 160, 20),
		cmd(186, 9, 0x18, 0x60),
		cmd(186, 53, 0, 8),
	}
	if diff := cmp.Diff(want, rec.take()); diff != "" {
		t.Errorf("minicam first pass mismatch (-want +got):\n%s", diff)
	}
}

func TestSynchronizer_LegacyDirectProperties(t *testing.T) {
	syn := NewSynchronizer(V3Legacy)
	rec := &opRecorder{}

	_, err := syn.Sync(V3Legacy.Defaults, true, rec.apply)
	require.NoError(t, err)

	want := []Op{
		SetProperty(capture.Hue, 0),
		SetProperty(capture.Gain, 16),
		SetProperty(capture.Brightness, 255),
		SetProperty(capture.Saturation, 2),
	}
	if diff := cmp.Diff(want, rec.take()); diff != "" {
		t.Errorf("legacy first pass mismatch (-want +got):\n%s", diff)
	}

	// Frame rate changes are not applied at runtime
	_, err = syn.Sync(V3Legacy.Defaults.With(SettingFrameRate, 60).With(SettingFramePulse, 1), true, rec.apply)
	require.NoError(t, err)
	assert.Equal(t, []Op{SetProperty(capture.Saturation, 1)}, rec.take())
}

func TestSynchronizer_ApplyFailureStopsPass(t *testing.T) {
	syn := NewSynchronizer(V4)
	fault := errors.New("write failed")

	calls := 0
	sent, err := syn.Sync(V4.Defaults, true, func(Op) error {
		calls++
		if calls == 3 {
			return fault
		}
		return nil
	})
	assert.ErrorIs(t, err, fault)
	assert.Equal(t, 2, sent)
	assert.False(t, syn.Initialized())
}

func TestSynchronizer_UnsupportedValue(t *testing.T) {
	syn := NewSynchronizer(V4)
	rec := &opRecorder{}

	_, err := syn.Sync(V4.Defaults.With(SettingFrameRate, 12), true, rec.apply)
	assert.ErrorIs(t, err, ErrUnsupportedSetting)
}

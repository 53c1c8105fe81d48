// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package miniscope

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// Setting identifies a user-facing device setting. The declaration order is
// the order in which settings are synchronized each cycle.
type Setting int

const (
	SettingBrightness Setting = iota
	SettingFrameRate
	SettingGain
	SettingExposure
	SettingLensFocus
	SettingFramePulse
	SettingTriggerPolicy

	settingCount = iota
)

// AllSettings lists every setting in synchronization order.
var AllSettings = []Setting{
	SettingBrightness,
	SettingFrameRate,
	SettingGain,
	SettingExposure,
	SettingLensFocus,
	SettingFramePulse,
	SettingTriggerPolicy,
}

var settingNames = [settingCount]string{
	"led",
	"fps",
	"gain",
	"exposure",
	"ewl",
	"frame-pulse",
	"led-respects-trigger",
}

func (s Setting) String() string {
	if s < 0 || int(s) >= settingCount {
		return fmt.Sprintf("Setting(%d)", int(s))
	}
	return settingNames[s]
}

// ParseSetting resolves a setting from its name.
func ParseSetting(name string) (Setting, error) {
	for i, n := range settingNames {
		if n == name {
			return Setting(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedSetting, name)
}

// Sensor gain levels for variants with enumerated gain.
const (
	GainLow = iota + 1
	GainMedium
	GainHigh
	GainExtreme
)

var gainNames = map[int]string{
	GainLow:     "low",
	GainMedium:  "medium",
	GainHigh:    "high",
	GainExtreme: "extreme",
}

// GainName returns the name of an enumerated gain level, or the number for
// variants with a numeric gain.
func GainName(v int) string {
	if n, ok := gainNames[v]; ok {
		return n
	}
	return strconv.Itoa(v)
}

// ParseGain accepts a level name or a plain number.
func ParseGain(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for v, n := range gainNames {
		if n == s {
			return v, nil
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: gain %q", ErrUnsupportedSetting, s)
	}
	return v, nil
}

// Snapshot is a point-in-time copy of every setting. Boolean settings are
// stored as 0 or 1.
type Snapshot [settingCount]int

// Get returns the value of s.
func (sn Snapshot) Get(s Setting) int {
	return sn[s]
}

// With returns a copy of sn with s set to v.
func (sn Snapshot) With(s Setting, v int) Snapshot {
	sn[s] = v
	return sn
}

// Bool reports whether a boolean setting is enabled.
func (sn Snapshot) Bool(s Setting) bool {
	return sn[s] != 0
}

// Settings holds the live settings of a device source. Each field is read
// and written atomically on its own; a reader may observe a mix of old and
// new fields when several are changed at once. Last write wins.
type Settings struct {
	values [settingCount]atomic.Int64
}

// NewSettings returns settings initialized from initial.
func NewSettings(initial Snapshot) *Settings {
	s := &Settings{}
	for i, v := range initial {
		s.values[i].Store(int64(v))
	}
	return s
}

// Get returns the current value of setting.
func (s *Settings) Get(setting Setting) int {
	return int(s.values[setting].Load())
}

// Set stores a new value. No validation is performed here; see
// Variant.Validate.
func (s *Settings) Set(setting Setting, v int) {
	s.values[setting].Store(int64(v))
}

// SetBool stores a boolean setting.
func (s *Settings) SetBool(setting Setting, on bool) {
	if on {
		s.Set(setting, 1)
		return
	}
	s.Set(setting, 0)
}

// Snapshot reads every setting.
func (s *Settings) Snapshot() Snapshot {
	var sn Snapshot
	for i := range sn {
		sn[i] = int(s.values[i].Load())
	}
	return sn
}

// Domain describes the accepted values of a setting.
type Domain struct {
	Min, Max int
	// Choices, when set, lists the only accepted values.
	Choices []int
}

// Contains reports whether v is accepted.
func (d Domain) Contains(v int) bool {
	if len(d.Choices) > 0 {
		for _, c := range d.Choices {
			if c == v {
				return true
			}
		}
		return false
	}
	return v >= d.Min && v <= d.Max
}

func (d Domain) String() string {
	if len(d.Choices) > 0 {
		parts := make([]string, len(d.Choices))
		for i, c := range d.Choices {
			parts[i] = strconv.Itoa(c)
		}
		return "{" + strings.Join(parts, ",") + "}"
	}
	return fmt.Sprintf("[%d..%d]", d.Min, d.Max)
}

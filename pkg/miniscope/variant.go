// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package miniscope

import (
	"fmt"
	"sort"

	"github.com/Thermoquad/miniscope/pkg/capture"
)

// TelemetryLayout says which properties carry telemetry on a variant.
type TelemetryLayout struct {
	HasFrameCounter bool
	FrameCounter    capture.Property

	HasTrigger bool
	Trigger    capture.Property

	// Quaternion channels in w, x, y, z order.
	HasQuaternion bool
	Quaternion    [4]capture.Property
}

// binding maps a setting value to the ops that apply it.
type binding func(v int) ([]Op, error)

// Variant describes one hardware revision: how to bring it up, how each
// setting is applied, what it reports back and how to shut it down.
type Variant struct {
	Name        string
	Description string

	// Frame geometry written at start. Zero leaves the transport default.
	Width, Height int

	Telemetry TelemetryLayout

	// TriggerPolicy reports whether the LED may be gated by the trigger input.
	TriggerPolicy bool

	// Domains lists every setting the variant accepts.
	Domains map[Setting]Domain

	// Defaults are the settings a new source starts with.
	Defaults Snapshot

	init     func(Snapshot) []Op
	bindings map[Setting]binding
	shutdown []Op
}

// InitOps returns the bring-up sequence for the given settings, including
// frame geometry and the start signal.
func (v *Variant) InitOps(s Snapshot) []Op {
	return v.init(s)
}

// ShutdownOps returns the teardown sequence.
func (v *Variant) ShutdownOps() []Op {
	return append([]Op(nil), v.shutdown...)
}

// Supports reports whether setting is accepted by the variant.
func (v *Variant) Supports(setting Setting) bool {
	_, ok := v.Domains[setting]
	return ok
}

// Runtime reports whether changes to setting are applied while running.
// Settings that are supported but not runtime are applied at start only.
func (v *Variant) Runtime(setting Setting) bool {
	if setting == SettingTriggerPolicy {
		return v.TriggerPolicy
	}
	_, ok := v.bindings[setting]
	return ok
}

// Validate checks value against the variant's domain for setting.
func (v *Variant) Validate(setting Setting, value int) error {
	d, ok := v.Domains[setting]
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedSetting, setting, v.Name)
	}
	if !d.Contains(value) {
		return fmt.Errorf("%w: %s=%d outside %s on %s", ErrUnsupportedSetting, setting, value, d, v.Name)
	}
	return nil
}

// Ops returns the ops that apply value for setting.
func (v *Variant) Ops(setting Setting, value int) ([]Op, error) {
	b, ok := v.bindings[setting]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not applied at runtime on %s", ErrUnsupportedSetting, setting, v.Name)
	}
	return b(value)
}

var registry = map[string]*Variant{}

func register(v *Variant) *Variant {
	registry[v.Name] = v
	return v
}

// LookupVariant returns the variant registered under name.
func LookupVariant(name string) (*Variant, error) {
	v, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

// VariantNames returns the registered variant names, sorted.
func VariantNames() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// lookupCode resolves a table value or fails with ErrUnsupportedSetting.
func lookupCode[T any](setting Setting, table map[int]T, v int) (T, error) {
	code, ok := table[v]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s=%d", ErrUnsupportedSetting, setting, v)
	}
	return code, nil
}

func keys[T any](table map[int]T) []int {
	out := make([]int, 0, len(table))
	for k := range table {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

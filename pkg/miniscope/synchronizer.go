// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package miniscope

// Synchronizer reconciles live settings against the values last applied to
// the device. It is owned by a single acquisition loop.
type Synchronizer struct {
	variant     *Variant
	last        Snapshot
	initialized bool
}

// NewSynchronizer returns a synchronizer that applies every runtime setting
// on its first pass.
func NewSynchronizer(v *Variant) *Synchronizer {
	return &Synchronizer{variant: v}
}

// LastApplied returns the values applied by the most recent pass. With the
// trigger policy active the brightness entry is the effective brightness.
func (s *Synchronizer) LastApplied() Snapshot {
	return s.last
}

// Initialized reports whether a full pass has completed.
func (s *Synchronizer) Initialized() bool {
	return s.initialized
}

// Effective returns the value to apply for setting given the trigger gate.
func (s *Synchronizer) Effective(current Snapshot, setting Setting, gate bool) int {
	v := current.Get(setting)
	if setting == SettingBrightness && s.variant.TriggerPolicy &&
		current.Bool(SettingTriggerPolicy) && !gate {
		return 0
	}
	return v
}

// Sync applies the ops for every runtime setting whose effective value
// differs from the last applied one, in synchronization order. The first
// pass applies everything. It stops at the first failing op and returns the
// number of ops sent.
func (s *Synchronizer) Sync(current Snapshot, gate bool, apply func(Op) error) (int, error) {
	sent := 0
	for _, setting := range AllSettings {
		if !s.variant.Runtime(setting) {
			continue
		}

		want := s.Effective(current, setting, gate)
		if s.initialized && want == s.last.Get(setting) {
			continue
		}

		if setting != SettingTriggerPolicy {
			ops, err := s.variant.Ops(setting, want)
			if err != nil {
				return sent, err
			}
			for _, op := range ops {
				if err := apply(op); err != nil {
					return sent, err
				}
				sent++
			}
		}

		s.last = s.last.With(setting, want)
	}

	s.initialized = true
	return sent, nil
}

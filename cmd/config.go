// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/miniscope/pkg/miniscope"
)

// loadConfig applies the --config file to every flag of cmd that was not
// given on the command line.
func loadConfig(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return applyConfig(cmd.Flags(), data)
}

// applyConfig sets flags from a flat YAML mapping keyed by flag name. Keys
// naming flags the command does not have are ignored so one file can serve
// every command.
func applyConfig(flags *pflag.FlagSet, data []byte) error {
	values := map[string]yaml.Node{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	for name, node := range values {
		f := flags.Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		if node.Kind != yaml.ScalarNode {
			return fmt.Errorf("config key %q: expected a scalar value", name)
		}
		if err := flags.Set(name, node.Value); err != nil {
			return fmt.Errorf("config key %q: %w", name, err)
		}
	}
	return nil
}

// requestedSettings returns the settings named by flag or config file,
// validated against v.
func requestedSettings(flags *pflag.FlagSet, v *miniscope.Variant) (map[miniscope.Setting]int, error) {
	out := make(map[miniscope.Setting]int)
	for _, s := range miniscope.AllSettings {
		f := flags.Lookup(s.String())
		if f == nil || !f.Changed {
			continue
		}

		value, err := parseSettingValue(s, f.Value.String())
		if err != nil {
			return nil, err
		}
		if err := v.Validate(s, value); err != nil {
			return nil, err
		}
		out[s] = value
	}
	return out, nil
}

func parseSettingValue(s miniscope.Setting, raw string) (int, error) {
	switch s {
	case miniscope.SettingGain:
		return miniscope.ParseGain(raw)
	case miniscope.SettingTriggerPolicy:
		on, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", s, err)
		}
		if on {
			return 1, nil
		}
		return 0, nil
	}

	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", s, err)
	}
	return v, nil
}

package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseSweepYAML parses a Sweep from YAML bytes, fills defaults and validates it.
// This is used for APIs where the definition is provided as payload (not via filesystem).
func ParseSweepYAML(data []byte) (*Sweep, error) {
	var sw Sweep
	if err := yaml.Unmarshal(data, &sw); err != nil {
		return nil, fmt.Errorf("failed to parse sweep yaml: %w", err)
	}

	applyDefaults(&sw)
	if err := validateSweep(&sw); err != nil {
		return nil, fmt.Errorf("invalid sweep: %w", err)
	}

	return &sw, nil
}

// ParseSweepYAMLString parses a Sweep from a YAML string and validates it.
func ParseSweepYAMLString(yamlText string) (*Sweep, error) {
	return ParseSweepYAML([]byte(yamlText))
}

// Validate fills defaults and validates a Sweep built in code.
func Validate(sw *Sweep) error {
	applyDefaults(sw)
	if err := validateSweep(sw); err != nil {
		return fmt.Errorf("invalid sweep: %w", err)
	}
	return nil
}

func applyDefaults(sw *Sweep) {
	if sw.Strategy == "" {
		sw.Strategy = DefaultStrategy
	}
	if sw.OnFailure == "" {
		sw.OnFailure = DefaultOnFailure
	}
	if sw.Source == "" {
		sw.Source = DefaultSource
	}
}

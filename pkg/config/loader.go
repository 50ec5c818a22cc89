package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/GoSim-25-26J-441/sweep-core/pkg/utils"
)

// LoadSweep loads and parses a sweep definition file
func LoadSweep(path string) (*Sweep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sweep file %s: %w", path, err)
	}
	sw, err := ParseSweepYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sweep file %s: %w", path, err)
	}
	return sw, nil
}

// Expand returns the variable's ordered values.
func (v Variable) Expand() ([]float64, error) {
	switch {
	case v.Range != nil:
		return utils.Range(v.Range.Start, v.Range.End, v.Range.Step)
	case v.Linspace != nil:
		return utils.Linspace(v.Linspace.Start, v.Linspace.End, v.Linspace.Num)
	default:
		return append([]float64(nil), v.Values...), nil
	}
}

// validateSweep performs validation on the sweep definition
func validateSweep(sw *Sweep) error {
	validStrategies := map[string]bool{
		"product": true,
		"zip":     true,
	}
	if !validStrategies[strings.ToLower(sw.Strategy)] {
		return fmt.Errorf("invalid strategy: %s (must be product or zip)", sw.Strategy)
	}

	validPolicies := map[string]bool{
		"abort": true,
		"skip":  true,
	}
	if !validPolicies[strings.ToLower(sw.OnFailure)] {
		return fmt.Errorf("invalid on_failure: %s (must be abort or skip)", sw.OnFailure)
	}

	validSources := map[string]bool{
		"sweep":      true,
		"variations": true,
	}
	if !validSources[strings.ToLower(sw.Source)] {
		return fmt.Errorf("invalid source: %s (must be sweep or variations)", sw.Source)
	}
	if strings.ToLower(sw.Source) == "variations" && !sw.IncludeProjectState {
		return fmt.Errorf("source variations requires include_project_state")
	}

	if len(sw.Variables) == 0 {
		return fmt.Errorf("at least one variable must be defined")
	}
	names := make(map[string]bool)
	for i, v := range sw.Variables {
		if err := validateVariable(v); err != nil {
			return fmt.Errorf("variable %d: %w", i, err)
		}
		if names[v.Name] {
			return fmt.Errorf("duplicate variable name: %s", v.Name)
		}
		names[v.Name] = true
	}

	for i, a := range sw.Analyses {
		if err := validateAnalysis(a); err != nil {
			return fmt.Errorf("analysis %d: %w", i, err)
		}
	}

	if sw.Project != nil {
		if err := validateProject(sw.Project); err != nil {
			return fmt.Errorf("project validation failed: %w", err)
		}
	}

	if sw.Output != nil && sw.Output.Plot != nil {
		p := sw.Output.Plot
		if p.Path == "" || p.X == "" || p.Metric == "" {
			return fmt.Errorf("output plot requires path, x and metric")
		}
		if !names[p.X] {
			return fmt.Errorf("output plot x %s is not a swept variable", p.X)
		}
	}

	return nil
}

// validateVariable validates a swept variable
func validateVariable(v Variable) error {
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("variable name cannot be empty")
	}

	sources := 0
	if len(v.Values) > 0 {
		sources++
	}
	if v.Range != nil {
		sources++
	}
	if v.Linspace != nil {
		sources++
	}
	if sources != 1 {
		return fmt.Errorf("%s: exactly one of values, range or linspace must be set", v.Name)
	}

	if _, err := v.Expand(); err != nil {
		return fmt.Errorf("%s: %w", v.Name, err)
	}
	return nil
}

// validateAnalysis validates an analysis entry
func validateAnalysis(a Analysis) error {
	validTypes := map[string]bool{
		"classical": true,
		"quantum":   true,
		"tabular":   true,
		"losses":    true,
	}
	if !validTypes[strings.ToLower(a.Type)] {
		return fmt.Errorf("invalid analysis type: %s (must be classical, quantum or tabular)", a.Type)
	}
	for mode, label := range a.Labels {
		if mode < 0 {
			return fmt.Errorf("%s: mode %d cannot be negative", a.Type, mode)
		}
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("%s: label for mode %d cannot be empty", a.Type, mode)
		}
	}
	if len(a.Columns) > 0 && strings.ToLower(a.Type) == "quantum" {
		return fmt.Errorf("quantum analysis does not take columns")
	}
	return nil
}

// validateProject validates the synthetic backend settings
func validateProject(p *Project) error {
	if p.Modes < 0 {
		return fmt.Errorf("modes cannot be negative, got %d", p.Modes)
	}
	if p.BaseQuality < 0 {
		return fmt.Errorf("base_quality cannot be negative, got %v", p.BaseQuality)
	}
	if d, err := p.GetStepDelay(); err != nil {
		return fmt.Errorf("invalid step_delay %s: %w", p.StepDelay, err)
	} else if d < 0 {
		return fmt.Errorf("step_delay cannot be negative, got %s", p.StepDelay)
	}

	names := make(map[string]bool)
	for _, v := range p.Variables {
		if v.Name == "" {
			return fmt.Errorf("project variable name cannot be empty")
		}
		if names[v.Name] {
			return fmt.Errorf("duplicate project variable: %s", v.Name)
		}
		names[v.Name] = true
	}
	return nil
}

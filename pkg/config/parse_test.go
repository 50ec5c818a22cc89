package config

import (
	"strings"
	"testing"
)

const cavitySweep = `
name: cavity-length
strategy: zip
on_failure: skip
include_project_state: true
variables:
  - name: length
    units: mm
    values: [30, 32, 34]
  - name: $hole
    units: mm
    range: {start: 1, end: 2, step: 0.5}
analyses:
  - type: classical
    labels: {0: transmon, 2: cavity}
  - type: tabular
    columns: ["Q seam loss"]
project:
  modes: 3
  step_delay: 5ms
  variables:
    - {name: width, value: 22.86, units: mm}
  fail_on:
    - "length='32mm'"
output:
  csv: out/cavity.csv
  plot: {path: out/cavity.png, x: length, metric: "cavity Quality Factor"}
`

func TestParseSweepYAMLString(t *testing.T) {
	sw, err := ParseSweepYAMLString(cavitySweep)
	if err != nil {
		t.Fatalf("ParseSweepYAMLString failed: %v", err)
	}
	if sw.Name != "cavity-length" || sw.Strategy != "zip" || sw.OnFailure != "skip" {
		t.Errorf("unexpected header fields: %+v", sw)
	}
	if !sw.IncludeProjectState {
		t.Error("expected include_project_state")
	}
	if len(sw.Variables) != 2 {
		t.Fatalf("expected 2 variables, got %d", len(sw.Variables))
	}

	hole, err := sw.Variables[1].Expand()
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(hole) != 3 || hole[0] != 1 || hole[2] != 2 {
		t.Errorf("unexpected range expansion %v", hole)
	}

	if sw.Analyses[0].Labels[2] != "cavity" {
		t.Errorf("expected label cavity for mode 2, got %v", sw.Analyses[0].Labels)
	}
	if d, err := sw.Project.GetStepDelay(); err != nil || d.Milliseconds() != 5 {
		t.Errorf("GetStepDelay = %v, %v", d, err)
	}
	if sw.Output.Plot.Metric != "cavity Quality Factor" {
		t.Errorf("unexpected plot %+v", sw.Output.Plot)
	}
	if sw.Source != DefaultSource {
		t.Errorf("expected default source, got %q", sw.Source)
	}
}

func TestParseSweepDefaults(t *testing.T) {
	sw, err := ParseSweepYAMLString(`
variables:
  - name: x
    linspace: {start: 0, end: 1, num: 5}
`)
	if err != nil {
		t.Fatalf("ParseSweepYAMLString failed: %v", err)
	}
	if sw.Strategy != DefaultStrategy || sw.OnFailure != DefaultOnFailure {
		t.Errorf("defaults not applied: %+v", sw)
	}
	values, _ := sw.Variables[0].Expand()
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("linspace[%d] = %v, want %v", i, values[i], want[i])
		}
	}
}

func TestParseSweepYAMLStringInvalid(t *testing.T) {
	tests := []struct {
		name     string
		yamlText string
		wantErr  string
	}{
		{"Malformed", `variables: [`, "failed to parse sweep yaml"},
		{"No variables", `strategy: product`, "at least one variable"},
		{"Unknown strategy", "strategy: random\nvariables: [{name: x, values: [1]}]", "invalid strategy"},
		{"Unknown policy", "on_failure: retry\nvariables: [{name: x, values: [1]}]", "invalid on_failure"},
		{"Empty name", "variables: [{name: '', values: [1]}]", "name cannot be empty"},
		{"No values", "variables: [{name: x}]", "exactly one of"},
		{"Two sources", "variables: [{name: x, values: [1], range: {start: 0, end: 1, step: 1}}]", "exactly one of"},
		{"Bad range", "variables: [{name: x, range: {start: 0, end: 1, step: 0}}]", "step must be positive"},
		{"Duplicate", "variables: [{name: x, values: [1]}, {name: x, values: [2]}]", "duplicate variable name"},
		{"Bad analysis", "variables: [{name: x, values: [1]}]\nanalyses: [{type: thermal}]", "invalid analysis type"},
		{"Quantum columns", "variables: [{name: x, values: [1]}]\nanalyses: [{type: quantum, columns: [a]}]", "does not take columns"},
		{"Bad delay", "variables: [{name: x, values: [1]}]\nproject: {step_delay: soon}", "invalid step_delay"},
		{"Plot x not swept", "variables: [{name: x, values: [1]}]\noutput: {plot: {path: a.png, x: y, metric: m}}", "not a swept variable"},
		{"Variations without state", "source: variations\nvariables: [{name: x, values: [1]}]", "requires include_project_state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSweepYAMLString(tt.yamlText)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	sw := &Sweep{Variables: []Variable{{Name: "x", Values: []float64{1, 2}}}}
	if err := Validate(sw); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sw.Strategy != DefaultStrategy {
		t.Errorf("expected defaults to be applied, got %q", sw.Strategy)
	}
}

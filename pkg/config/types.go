package config

import "time"

// Sweep represents a sweep definition
type Sweep struct {
	Name                string     `yaml:"name,omitempty" json:"name,omitempty"`
	Strategy            string     `yaml:"strategy,omitempty" json:"strategy,omitempty"`     // product or zip
	OnFailure           string     `yaml:"on_failure,omitempty" json:"on_failure,omitempty"` // abort or skip
	IncludeProjectState bool       `yaml:"include_project_state,omitempty" json:"include_project_state,omitempty"`
	Source              string     `yaml:"source,omitempty" json:"source,omitempty"` // sweep or variations
	Variables           []Variable `yaml:"variables" json:"variables"`
	Analyses            []Analysis `yaml:"analyses,omitempty" json:"analyses,omitempty"`
	Project             *Project   `yaml:"project,omitempty" json:"project,omitempty"`
	Output              *Output    `yaml:"output,omitempty" json:"output,omitempty"`
}

// Variable represents one swept variable. Exactly one of Values, Range and
// Linspace is set.
type Variable struct {
	Name     string    `yaml:"name" json:"name"`
	Units    string    `yaml:"units,omitempty" json:"units,omitempty"`
	Values   []float64 `yaml:"values,omitempty" json:"values,omitempty"`
	Range    *Range    `yaml:"range,omitempty" json:"range,omitempty"`
	Linspace *Linspace `yaml:"linspace,omitempty" json:"linspace,omitempty"`
}

// Range represents start..end inclusive in fixed steps
type Range struct {
	Start float64 `yaml:"start" json:"start"`
	End   float64 `yaml:"end" json:"end"`
	Step  float64 `yaml:"step" json:"step"`
}

// Linspace represents num evenly spaced values over start..end
type Linspace struct {
	Start float64 `yaml:"start" json:"start"`
	End   float64 `yaml:"end" json:"end"`
	Num   int     `yaml:"num" json:"num"`
}

// Analysis represents one formatter applied to the sweep records
type Analysis struct {
	Type    string         `yaml:"type" json:"type"` // classical, quantum, tabular
	Labels  map[int]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Columns []string       `yaml:"columns,omitempty" json:"columns,omitempty"`
}

// Project represents the synthetic solver backend
type Project struct {
	Modes       int             `yaml:"modes,omitempty" json:"modes,omitempty"`
	BaseQuality float64         `yaml:"base_quality,omitempty" json:"base_quality,omitempty"`
	StepDelay   string          `yaml:"step_delay,omitempty" json:"step_delay,omitempty"` // e.g., "50ms"
	Strict      bool            `yaml:"strict,omitempty" json:"strict,omitempty"`
	Variables   []FixedVariable `yaml:"variables,omitempty" json:"variables,omitempty"`
	FailOn      []string        `yaml:"fail_on,omitempty" json:"fail_on,omitempty"` // variation text, e.g. "length='32mm'"
}

// FixedVariable represents an initial project variable
type FixedVariable struct {
	Name  string  `yaml:"name" json:"name"`
	Value float64 `yaml:"value" json:"value"`
	Units string  `yaml:"units,omitempty" json:"units,omitempty"`
}

// Output represents where results go
type Output struct {
	CSV         string `yaml:"csv,omitempty" json:"csv,omitempty"`
	Plot        *Plot  `yaml:"plot,omitempty" json:"plot,omitempty"`
	CallbackURL string `yaml:"callback_url,omitempty" json:"callback_url,omitempty"`
}

// Plot represents a metric-versus-parameter chart
type Plot struct {
	Path   string `yaml:"path" json:"path"`
	X      string `yaml:"x" json:"x"`
	Metric string `yaml:"metric" json:"metric"`
	Title  string `yaml:"title,omitempty" json:"title,omitempty"`
	LogY   bool   `yaml:"log_y,omitempty" json:"log_y,omitempty"`
}

// GetStepDelay parses the step delay string to time.Duration
func (p *Project) GetStepDelay() (time.Duration, error) {
	if p == nil || p.StepDelay == "" {
		return 0, nil
	}
	return time.ParseDuration(p.StepDelay)
}

// Defaults applied by the parser.
const (
	DefaultStrategy  = "product"
	DefaultOnFailure = "abort"
	DefaultSource    = "sweep"
)

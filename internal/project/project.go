// Package project defines the contract with the external solver and a
// synthetic in-process backend that satisfies it.
package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

var (
	ErrVariationCollision = errors.New("two variations share the same snapshot")
	ErrVariationNotFound  = errors.New("no variation matches snapshot")
	ErrUnknownVariable    = errors.New("unknown variable")
	ErrAnalysisFailed     = errors.New("analysis failed")
	ErrNoResults          = errors.New("no analysis results available")
)

// Column titles of per-mode records.
const (
	ColumnFrequency = "Freq. (GHz)"
	ColumnQuality   = "Quality Factor"
)

// Project is a handle to one open solver project. Calls are blocking and
// must not be issued concurrently against the same Project.
type Project interface {
	// SetVariable assigns value with units to a design variable, or to a
	// project variable when name starts with "$".
	SetVariable(ctx context.Context, name string, value float64, units string) error
	// RunAnalysis solves the project at its current parameter state.
	RunAnalysis(ctx context.Context) error
	// Results returns the record of the most recent analysis.
	Results(ctx context.Context) (Record, error)
}

// StateReporter is implemented by projects that can report their complete
// variable state.
type StateReporter interface {
	Variables(ctx context.Context) (variable.Snapshot, error)
}

// VariationSource is implemented by projects that keep solved variations.
// The variation ids are assigned by the solver and are not stable across
// additions and deletions; look them up through a VariationIndex.
type VariationSource interface {
	// Variations maps variation id to its variation text.
	Variations(ctx context.Context) (map[string]string, error)
	ResultsForVariation(ctx context.Context, id string) (Record, error)
}

// Record is the raw output of one analysis.
type Record struct {
	// Modes maps a column title to one value per eigenmode, indexed by mode number.
	Modes map[string][]float64 `json:"modes,omitempty"`
	// ChiMHz is the symmetric dispersive-shift matrix.
	ChiMHz [][]float64 `json:"chi_mhz,omitempty"`
	// FreqsNDMHz are the dressed mode frequencies.
	FreqsNDMHz []float64 `json:"freqs_nd_mhz,omitempty"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := Record{}
	if r.Modes != nil {
		out.Modes = make(map[string][]float64, len(r.Modes))
		for k, v := range r.Modes {
			out.Modes[k] = append([]float64(nil), v...)
		}
	}
	if r.ChiMHz != nil {
		out.ChiMHz = make([][]float64, len(r.ChiMHz))
		for i, row := range r.ChiMHz {
			out.ChiMHz[i] = append([]float64(nil), row...)
		}
	}
	if r.FreqsNDMHz != nil {
		out.FreqsNDMHz = append([]float64(nil), r.FreqsNDMHz...)
	}
	return out
}

// ModeCount returns the number of modes in the record.
func (r Record) ModeCount() int {
	n := len(r.FreqsNDMHz)
	for _, v := range r.Modes {
		if len(v) > n {
			n = len(v)
		}
	}
	return n
}

// Apply sets every variable of s on p, in declared order. It stops at the
// first failure; the error names the variable.
func Apply(ctx context.Context, p Project, s variable.Snapshot) error {
	for _, v := range s.Vars() {
		if err := p.SetVariable(ctx, v.Name, v.Value, v.Units); err != nil {
			return fmt.Errorf("%s: %w", v.Name, err)
		}
	}
	return nil
}

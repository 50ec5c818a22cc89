// Package analysis turns raw solver records into named metrics.
//
// Each Formatter reads one kind of record (eigenmode table, chi matrix,
// loss table) and flattens it into "<mode label> <quantity>" keys. Applying
// several formatters to the same sweep and joining their results yields one
// metric set per snapshot.
package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/sweep-core/internal/project"
	"github.com/GoSim-25-26J-441/sweep-core/internal/result"
	"github.com/GoSim-25-26J-441/sweep-core/internal/sweep"
)

var (
	ErrMissingColumn    = errors.New("record is missing a column")
	ErrColumnLength     = errors.New("record columns have different lengths")
	ErrMissingMode      = errors.New("mode label refers to a mode not in the record")
	ErrInvalidChi       = errors.New("invalid chi matrix")
	ErrUnknownFormatter = errors.New("unknown analysis")
)

// Labels maps a mode number to a human-readable label, e.g. 0: "transmon".
type Labels map[int]string

// Modes returns the labelled mode numbers in ascending order.
func (l Labels) Modes() []int {
	modes := make([]int, 0, len(l))
	for m := range l {
		modes = append(modes, m)
	}
	sort.Ints(modes)
	return modes
}

// Sequential renumbers the labels 0..n-1 keeping ascending mode order:
// {0: a, 2: b, 4: c} becomes {0: a, 1: b, 2: c}.
func (l Labels) Sequential() Labels {
	out := make(Labels, len(l))
	for i, m := range l.Modes() {
		out[i] = l[m]
	}
	return out
}

// resolve returns the (mode, label) pairs to emit. Without labels every
// mode is kept under its number.
func (l Labels) resolve(modeCount int) ([]int, []string, error) {
	if len(l) == 0 {
		modes := make([]int, modeCount)
		labels := make([]string, modeCount)
		for i := range modes {
			modes[i] = i
			labels[i] = strconv.Itoa(i)
		}
		return modes, labels, nil
	}
	modes := l.Modes()
	labels := make([]string, len(modes))
	for i, m := range modes {
		if m < 0 || m >= modeCount {
			return nil, nil, fmt.Errorf("%w: mode %d (%s), record has %d modes", ErrMissingMode, m, l[m], modeCount)
		}
		labels[i] = l[m]
	}
	return modes, labels, nil
}

// Formatter converts one record into metrics.
type Formatter interface {
	// Name returns the name of the analysis
	Name() string
	Format(rec project.Record, labels Labels) (result.Metrics, error)
}

// Analysis is a formatter with its mode labels.
type Analysis struct {
	Formatter Formatter
	Labels    Labels
}

// Apply formats every sample, keeping sample order.
func Apply(f Formatter, samples []sweep.Sample, labels Labels) ([]result.Result, error) {
	out := make([]result.Result, 0, len(samples))
	for _, s := range samples {
		metrics, err := f.Format(s.Record, labels)
		if err != nil {
			return nil, fmt.Errorf("%s analysis at %s: %w", f.Name(), s.Snapshot, err)
		}
		out = append(out, result.Result{Snapshot: s.Snapshot, Metrics: metrics})
	}
	return out, nil
}

// ApplyAll applies every analysis to the samples and joins the outputs.
func ApplyAll(analyses []Analysis, samples []sweep.Sample) ([]result.Result, error) {
	lists := make([][]result.Result, 0, len(analyses))
	for _, a := range analyses {
		results, err := Apply(a.Formatter, samples, a.Labels)
		if err != nil {
			return nil, err
		}
		lists = append(lists, results)
	}
	return result.Join(lists...)
}

// ByName returns a formatter with default settings.
func ByName(name string) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameClassical:
		return Classical{}, nil
	case NameQuantum:
		return Quantum{}, nil
	case NameTabular, "losses":
		return Tabular{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (available: %s, %s, %s)", ErrUnknownFormatter, name, NameClassical, NameQuantum, NameTabular)
	}
}

func key(label, title string) string {
	return label + " " + title
}

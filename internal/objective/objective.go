// Package objective ranks sweep results by one metric column.
package objective

import (
	"math"
	"sort"

	"github.com/GoSim-25-26J-441/sweep-core/internal/result"
)

// Goal says whether lower or higher metric values are better.
type Goal string

const (
	Minimize Goal = "min"
	Maximize Goal = "max"
)

// Objective selects a metric and the direction in which it improves.
type Objective struct {
	Metric string
	Goal   Goal
}

// New builds an Objective. An empty goal means Minimize.
func New(metric, goal string) (Objective, error) {
	if metric == "" {
		return Objective{}, &InvalidObjectiveError{Reason: "metric is required"}
	}
	switch Goal(goal) {
	case "", Minimize:
		return Objective{Metric: metric, Goal: Minimize}, nil
	case Maximize:
		return Objective{Metric: metric, Goal: Maximize}, nil
	default:
		return Objective{}, &InvalidObjectiveError{Reason: "unknown goal " + goal}
	}
}

// Minimizes reports whether lower values are better.
func (o Objective) Minimizes() bool { return o.Goal != Maximize }

// Evaluate returns the metric value of m. NaN and missing values are not
// comparable and report false.
func (o Objective) Evaluate(m result.Metrics) (float64, bool) {
	v, ok := m[o.Metric]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// better reports whether a beats b.
func (o Objective) better(a, b float64) bool {
	if o.Minimizes() {
		return a < b
	}
	return a > b
}

// Candidate is one comparable result.
type Candidate struct {
	// Index is the position in the ranked input.
	Index  int
	Result result.Result
	Value  float64
}

// Rank orders the results that carry the metric best first. Ties keep input
// order.
func Rank(results []result.Result, o Objective) []Candidate {
	out := make([]Candidate, 0, len(results))
	for i, r := range results {
		if v, ok := o.Evaluate(r.Metrics); ok {
			out = append(out, Candidate{Index: i, Result: r, Value: v})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return o.better(out[i].Value, out[j].Value)
	})
	return out
}

// Best returns the best candidate.
func Best(results []result.Result, o Objective) (Candidate, error) {
	ranked := Rank(results, o)
	if len(ranked) == 0 {
		return Candidate{}, &NoCandidatesError{Metric: o.Metric, Results: len(results)}
	}
	return ranked[0], nil
}

// Improvement returns how much better value is than baseline, in percent of
// the baseline. It is zero when the baseline is zero.
func Improvement(value, baseline float64, minimize bool) float64 {
	if baseline == 0 {
		return 0
	}
	if minimize {
		return (baseline - value) / math.Abs(baseline) * 100
	}
	return (value - baseline) / math.Abs(baseline) * 100
}

// InvalidObjectiveError reports a malformed objective.
type InvalidObjectiveError struct {
	Reason string
}

func (e *InvalidObjectiveError) Error() string {
	return "invalid objective: " + e.Reason
}

// NoCandidatesError reports that no result carries a comparable value.
type NoCandidatesError struct {
	Metric  string
	Results int
}

func (e *NoCandidatesError) Error() string {
	return "no result has a value for " + e.Metric
}

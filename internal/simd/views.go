package simd

import (
	"math"

	"github.com/GoSim-25-26J-441/sweep-core/internal/objective"
	"github.com/GoSim-25-26J-441/sweep-core/internal/result"
	"github.com/GoSim-25-26J-441/sweep-core/internal/sweep"
	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/models"
)

// JSON shapes shared by the HTTP and gRPC surfaces. Metric values that JSON
// cannot carry (NaN, ±Inf) are rendered as null.

type runView struct {
	models.Run
	Completed  int   `json:"completed"`
	DurationMs int64 `json:"duration_ms,omitempty"`
}

type outcomeView struct {
	Index      int                       `json:"index"`
	Snapshot   []variable.ValuedVariable `json:"snapshot"`
	Status     sweep.Status              `json:"status"`
	Op         string                    `json:"op,omitempty"`
	Error      string                    `json:"error,omitempty"`
	DurationMs float64                   `json:"duration_ms"`
}

type resultView struct {
	Snapshot []variable.ValuedVariable `json:"snapshot"`
	Metrics  map[string]*float64       `json:"metrics"`
}

type minimizedView struct {
	Constants []variable.ValuedVariable `json:"constants"`
	Variants  []string                  `json:"variants"`
	Header    []string                  `json:"header"`
	Rows      [][]string                `json:"rows"`
}

type rankedView struct {
	Index    int                       `json:"index"`
	Snapshot []variable.ValuedVariable `json:"snapshot"`
	Value    *float64                  `json:"value"`
}

func newRunView(rec RunRecord) runView {
	completed := 0
	for _, o := range rec.Outcomes {
		if o.Status == sweep.StatusCompleted {
			completed++
		}
	}
	return runView{Run: rec.Run, Completed: completed, DurationMs: rec.Run.Duration().Milliseconds()}
}

func newOutcomeViews(outcomes []sweep.Outcome) []outcomeView {
	out := make([]outcomeView, len(outcomes))
	for i, o := range outcomes {
		out[i] = outcomeView{
			Index:      o.Index,
			Snapshot:   o.Snapshot.Vars(),
			Status:     o.Status,
			Op:         o.Op,
			Error:      o.Error,
			DurationMs: float64(o.Duration.Microseconds()) / 1e3,
		}
	}
	return out
}

func newResultViews(results []result.Result) []resultView {
	out := make([]resultView, len(results))
	for i, r := range results {
		metrics := make(map[string]*float64, len(r.Metrics))
		for k, v := range r.Metrics {
			metrics[k] = finite(v)
		}
		out[i] = resultView{Snapshot: r.Snapshot.Vars(), Metrics: metrics}
	}
	return out
}

func newMinimizedView(m *result.Minimized) minimizedView {
	if m == nil {
		m = &result.Minimized{}
	}
	variants := m.Variants
	if variants == nil {
		variants = []string{}
	}
	header := m.Header()
	if header == nil {
		header = []string{}
	}
	return minimizedView{
		Constants: m.Constants.Vars(),
		Variants:  variants,
		Header:    header,
		Rows:      m.Table(),
	}
}

func newRankedViews(ranked []objective.Candidate) []rankedView {
	out := make([]rankedView, len(ranked))
	for i, c := range ranked {
		out[i] = rankedView{Index: c.Index, Snapshot: c.Result.Snapshot.Vars(), Value: finite(c.Value)}
	}
	return out
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

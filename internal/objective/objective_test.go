package objective

import (
	"errors"
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/sweep-core/internal/result"
	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

func results(values ...float64) []result.Result {
	out := make([]result.Result, len(values))
	for i, v := range values {
		out[i] = result.Result{
			Snapshot: variable.MustSnapshot(variable.ValuedVariable{Name: "length", Value: float64(30 + i), Units: "mm"}),
			Metrics:  result.Metrics{"Q": v},
		}
	}
	return out
}

func TestNew(t *testing.T) {
	o, err := New("Q", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !o.Minimizes() {
		t.Errorf("expected an empty goal to minimize")
	}

	o, err = New("Q", "max")
	if err != nil || o.Minimizes() {
		t.Errorf("expected maximize, got %+v, %v", o, err)
	}

	var invalid *InvalidObjectiveError
	if _, err := New("", "min"); !errors.As(err, &invalid) {
		t.Errorf("expected InvalidObjectiveError for empty metric, got %v", err)
	}
	if _, err := New("Q", "sideways"); !errors.As(err, &invalid) {
		t.Errorf("expected InvalidObjectiveError for unknown goal, got %v", err)
	}
}

func TestRank(t *testing.T) {
	rs := results(3, 1, math.NaN(), 2, 1)
	rs = append(rs, result.Result{Snapshot: variable.MustSnapshot(), Metrics: result.Metrics{"other": 0}})

	ranked := Rank(rs, Objective{Metric: "Q", Goal: Minimize})
	wantIdx := []int{1, 4, 3, 0}
	if len(ranked) != len(wantIdx) {
		t.Fatalf("expected %d candidates, got %d", len(wantIdx), len(ranked))
	}
	for i, c := range ranked {
		if c.Index != wantIdx[i] {
			t.Errorf("rank %d: expected index %d, got %d", i, wantIdx[i], c.Index)
		}
	}

	ranked = Rank(rs, Objective{Metric: "Q", Goal: Maximize})
	if ranked[0].Index != 0 || ranked[0].Value != 3 {
		t.Errorf("expected index 0 first when maximizing, got %+v", ranked[0])
	}
}

func TestBest(t *testing.T) {
	best, err := Best(results(5, 2, 9), Objective{Metric: "Q", Goal: Maximize})
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	if best.Index != 2 || best.Value != 9 {
		t.Errorf("unexpected best %+v", best)
	}
	if v, _ := best.Result.Snapshot.Get("length"); v.Value != 32 {
		t.Errorf("expected snapshot of the third result, got %v", best.Result.Snapshot)
	}

	var none *NoCandidatesError
	if _, err := Best(results(math.NaN()), Objective{Metric: "Q"}); !errors.As(err, &none) {
		t.Errorf("expected NoCandidatesError, got %v", err)
	}
	if _, err := Best(nil, Objective{Metric: "Q"}); !errors.As(err, &none) {
		t.Errorf("expected NoCandidatesError for empty input, got %v", err)
	}
}

func TestImprovement(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		baseline float64
		minimize bool
		want     float64
	}{
		{"lower is better", 80, 100, true, 20},
		{"higher is better", 150, 100, false, 50},
		{"regression", 120, 100, true, -20},
		{"negative baseline", -50, -100, false, 50},
		{"zero baseline", 10, 0, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Improvement(tt.value, tt.baseline, tt.minimize); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Improvement = %v, want %v", got, tt.want)
			}
		})
	}
}

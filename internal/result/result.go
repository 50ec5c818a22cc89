// Package result holds snapshot-tagged metric records and the operations
// that combine them: Merge and Join unify records of the same parameter
// state, Minimize factors out the parameters that never vary.
package result

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

var (
	ErrMetricKeyCollision    = errors.New("metric key collision")
	ErrSnapshotShapeMismatch = errors.New("snapshots have different variable names")
	ErrSnapshotMismatch      = errors.New("results belong to different snapshots")
	ErrMixedUnits            = errors.New("variable has different units across results")
)

// Metrics maps a metric name to its value.
type Metrics map[string]float64

// Clone returns a copy of m.
func (m Metrics) Clone() Metrics {
	out := make(Metrics, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Keys returns the metric names, sorted.
func (m Metrics) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Result is the metrics computed at one parameter state.
type Result struct {
	Snapshot variable.Snapshot `json:"snapshot"`
	Metrics  Metrics           `json:"metrics"`
}

// New returns a Result owning a copy of metrics.
func New(snapshot variable.Snapshot, metrics Metrics) Result {
	return Result{Snapshot: snapshot, Metrics: metrics.Clone()}
}

// Flat returns the metrics together with one "name (units)" column per
// snapshot variable.
func (r Result) Flat() map[string]float64 {
	out := make(map[string]float64, len(r.Metrics)+r.Snapshot.Len())
	for k, v := range r.Metrics {
		out[k] = v
	}
	for k, v := range r.Snapshot.Columns() {
		out[k] = v
	}
	return out
}

// CollisionError reports a metric present in two records of the same
// snapshot with different values.
type CollisionError struct {
	Snapshot variable.Snapshot
	Key      string
	Existing float64
	Incoming float64
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("metric key collision at %s: %q is %v and %v", e.Snapshot, e.Key, e.Existing, e.Incoming)
}

func (e *CollisionError) Is(target error) bool {
	return target == ErrMetricKeyCollision
}

// sameValue treats NaN as equal to itself so that joining a list with
// itself is a no-op.
func sameValue(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

// mergeInto adds src to dst, failing on a conflicting key.
func mergeInto(dst Metrics, snap variable.Snapshot, src Metrics) error {
	for _, k := range src.Keys() {
		v := src[k]
		if existing, ok := dst[k]; ok {
			if !sameValue(existing, v) {
				return &CollisionError{Snapshot: snap, Key: k, Existing: existing, Incoming: v}
			}
			continue
		}
		dst[k] = v
	}
	return nil
}

// Merge combines two results of the same snapshot.
func Merge(a, b Result) (Result, error) {
	if !a.Snapshot.Equal(b.Snapshot) {
		return Result{}, fmt.Errorf("%w: %s and %s", ErrSnapshotMismatch, a.Snapshot, b.Snapshot)
	}
	merged := a.Metrics.Clone()
	if err := mergeInto(merged, a.Snapshot, b.Metrics); err != nil {
		return Result{}, err
	}
	return Result{Snapshot: a.Snapshot, Metrics: merged}, nil
}

// Join groups every result of every list by snapshot and unions the
// metrics of each group. The output is ordered by first appearance and
// carries the snapshot as first seen.
func Join(lists ...[]Result) ([]Result, error) {
	var out []Result
	pos := make(map[string]int)
	for _, list := range lists {
		for _, r := range list {
			key := r.Snapshot.Key()
			i, seen := pos[key]
			if !seen {
				pos[key] = len(out)
				out = append(out, New(r.Snapshot, r.Metrics))
				continue
			}
			if err := mergeInto(out[i].Metrics, out[i].Snapshot, r.Metrics); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

package result

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

// ShapeError reports a snapshot whose variable names differ from the first
// result's.
type ShapeError struct {
	Index int
	Want  []string
	Got   []string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("snapshot %d has variables [%s], expected [%s]",
		e.Index, strings.Join(e.Got, ", "), strings.Join(e.Want, ", "))
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrSnapshotShapeMismatch
}

// UnitsError reports a variable whose units differ from the first result's.
// A minimized table has one column per variable, so units must agree.
type UnitsError struct {
	Index int
	Name  string
	Want  string
	Got   string
}

func (e *UnitsError) Error() string {
	return fmt.Sprintf("snapshot %d has %s in %q, expected %q", e.Index, e.Name, e.Got, e.Want)
}

func (e *UnitsError) Is(target error) bool {
	return target == ErrMixedUnits
}

// Row is one minimized result: the varying parameters and the metrics.
type Row struct {
	Variant variable.Snapshot `json:"variant"`
	Metrics Metrics           `json:"metrics"`
}

// Minimized is a result set with the parameters shared by every result
// factored out into Constants.
type Minimized struct {
	Constants variable.Snapshot `json:"constants"`
	Rows      []Row             `json:"rows"`
	// Variants lists the varying parameter names in declared order.
	Variants []string `json:"variants"`
}

// Minimize splits the parameters of results into constants, which take one
// value across the whole set, and per-row variants. Every snapshot must
// carry the same variable names, each in the same units. Row order follows
// input order.
func Minimize(results []Result) (*Minimized, error) {
	if len(results) == 0 {
		return &Minimized{}, nil
	}

	first := results[0].Snapshot
	want := first.Names()
	for i, r := range results[1:] {
		got := r.Snapshot.Names()
		if !equalNames(want, got) {
			return nil, &ShapeError{Index: i + 1, Want: want, Got: got}
		}
		for _, v := range first.Vars() {
			other, _ := r.Snapshot.Get(v.Name)
			if other.Units != v.Units {
				return nil, &UnitsError{Index: i + 1, Name: v.Name, Want: v.Units, Got: other.Units}
			}
		}
	}

	constant := make(map[string]bool, first.Len())
	varying := make(map[string]bool, first.Len())
	var variants []string
	for _, v := range first.Vars() {
		same := true
		for _, r := range results[1:] {
			other, _ := r.Snapshot.Get(v.Name)
			if other != v {
				same = false
				break
			}
		}
		if same {
			constant[v.Name] = true
		} else {
			varying[v.Name] = true
			variants = append(variants, v.Name)
		}
	}

	m := &Minimized{
		Constants: first.Select(constant),
		Rows:      make([]Row, len(results)),
		Variants:  variants,
	}
	for i, r := range results {
		m.Rows[i] = Row{Variant: r.Snapshot.Select(varying), Metrics: r.Metrics.Clone()}
	}
	return m, nil
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Len returns the number of rows.
func (m *Minimized) Len() int { return len(m.Rows) }

// Reconstruct rebuilds the full results from constants and variants.
func (m *Minimized) Reconstruct() ([]Result, error) {
	out := make([]Result, len(m.Rows))
	for i, row := range m.Rows {
		snap, err := m.Constants.Union(row.Variant)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = Result{Snapshot: snap, Metrics: row.Metrics.Clone()}
	}
	return out, nil
}

// MetricKeys returns the union of metric names across all rows, sorted.
func (m *Minimized) MetricKeys() []string {
	seen := make(map[string]struct{})
	for _, row := range m.Rows {
		for k := range row.Metrics {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Header returns the table columns: the variant display names in declared
// order followed by the sorted metric names.
func (m *Minimized) Header() []string {
	var header []string
	if len(m.Rows) > 0 {
		for _, name := range m.Variants {
			v, _ := m.Rows[0].Variant.Get(name)
			header = append(header, v.DisplayName())
		}
	}
	return append(header, m.MetricKeys()...)
}

// Table renders the rows as text cells matching Header. A metric missing
// from a row is an empty cell.
func (m *Minimized) Table() [][]string {
	keys := m.MetricKeys()
	rows := make([][]string, len(m.Rows))
	for i, row := range m.Rows {
		cells := make([]string, 0, len(m.Variants)+len(keys))
		for _, name := range m.Variants {
			v, _ := row.Variant.Get(name)
			cells = append(cells, formatFloat(v.Value))
		}
		for _, k := range keys {
			value, ok := row.Metrics[k]
			if !ok {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, formatFloat(value))
		}
		rows[i] = cells
	}
	return rows
}

// ConstantColumns maps each constant's display name to its value.
func (m *Minimized) ConstantColumns() map[string]float64 {
	return m.Constants.Columns()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

package analysis

import (
	"fmt"
	"sort"

	"github.com/GoSim-25-26J-441/sweep-core/internal/project"
	"github.com/GoSim-25-26J-441/sweep-core/internal/result"
)

const NameTabular = "tabular"

// Tabular flattens per-mode columns as they are, e.g. loss channels.
// With no Columns every column of the record is used.
type Tabular struct {
	Columns []string
}

func (Tabular) Name() string { return NameTabular }

func (t Tabular) Format(rec project.Record, labels Labels) (result.Metrics, error) {
	columns := t.Columns
	if len(columns) == 0 {
		for title := range rec.Modes {
			columns = append(columns, title)
		}
		sort.Strings(columns)
	}

	out := make(result.Metrics)
	for _, title := range columns {
		values, ok := rec.Modes[title]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, title)
		}
		modes, names, err := labels.resolve(len(values))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", title, err)
		}
		for i, m := range modes {
			out[key(names[i], title)] = values[m]
		}
	}
	return out, nil
}

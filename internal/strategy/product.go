package strategy

import (
	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

// Product enumerates the cartesian product of all variable values. The
// rightmost variable varies fastest.
type Product struct{}

func (Product) Name() string { return NameProduct }

func (Product) Snapshots(vars []variable.Variable) ([]variable.Snapshot, error) {
	if err := validate(vars); err != nil {
		return nil, err
	}

	total, err := productCount(vars)
	if err != nil {
		return nil, err
	}

	out := make([]variable.Snapshot, 0, total)
	indices := make([]int, len(vars))
	for {
		state := make([]variable.ValuedVariable, len(vars))
		for i, v := range vars {
			state[i] = v.At(indices[i])
		}
		snap, err := variable.NewSnapshot(state...)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)

		// odometer increment, rightmost first
		pos := len(vars) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < vars[pos].Len() {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			return out, nil
		}
	}
}

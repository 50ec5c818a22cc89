package strategy

import (
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

// Zip pairs the i-th value of every variable. All variables must have the
// same number of values; mismatches are reported, never truncated.
type Zip struct{}

func (Zip) Name() string { return NameZip }

func (Zip) Snapshots(vars []variable.Variable) ([]variable.Snapshot, error) {
	if err := validate(vars); err != nil {
		return nil, err
	}
	if err := sameLength(vars); err != nil {
		return nil, err
	}

	n := vars[0].Len()
	out := make([]variable.Snapshot, 0, n)
	for i := 0; i < n; i++ {
		state := make([]variable.ValuedVariable, len(vars))
		for j, v := range vars {
			state[j] = v.At(i)
		}
		snap, err := variable.NewSnapshot(state...)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func sameLength(vars []variable.Variable) error {
	n := vars[0].Len()
	for _, v := range vars[1:] {
		if v.Len() != n {
			lengths := make([]string, len(vars))
			for i, w := range vars {
				lengths[i] = fmt.Sprintf("%s=%d", w.Name(), w.Len())
			}
			return fmt.Errorf("%w: %s", ErrLengthMismatch, strings.Join(lengths, ", "))
		}
	}
	return nil
}

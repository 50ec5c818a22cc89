package sweep

import (
	"context"

	"github.com/GoSim-25-26J-441/sweep-core/internal/project"
	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

// Collect fetches the stored record of every snapshot from src, looking
// variations up by content instead of by the solver's index. With no
// snapshots every stored variation is collected. It is all-or-nothing: the
// first missing snapshot fails with a *StepError.
func Collect(ctx context.Context, src project.VariationSource, snaps []variable.Snapshot) ([]Sample, error) {
	idx, err := project.BuildIndex(ctx, src)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		snaps = idx.Snapshots()
	}

	out := make([]Sample, 0, len(snaps))
	for i, snap := range snaps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := idx.Lookup(snap)
		if err != nil {
			return nil, &StepError{Index: i, Snapshot: snap, Op: OpLookup, Err: err}
		}
		rec, err := src.ResultsForVariation(ctx, id)
		if err != nil {
			return nil, &StepError{Index: i, Snapshot: snap, Op: OpGetResults, Err: err}
		}
		out = append(out, Sample{Index: i, Snapshot: snap, Record: rec})
	}
	return out, nil
}

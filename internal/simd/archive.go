package simd

import (
	"context"
	"errors"

	"github.com/GoSim-25-26J-441/sweep-core/internal/result"
	"github.com/GoSim-25-26J-441/sweep-core/internal/store"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/logger"
)

// ArchiveReader loads runs that are no longer held in memory.
type ArchiveReader interface {
	GetRun(ctx context.Context, id string) (*store.Record, error)
}

// lookupRun finds a run in memory, then in the archive.
func lookupRun(ctx context.Context, rs *RunStore, archive ArchiveReader, runID string) (RunRecord, bool) {
	if rec, ok := rs.Get(runID); ok {
		return rec, true
	}
	if archive == nil {
		return RunRecord{}, false
	}
	archived, err := archive.GetRun(ctx, runID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Error("failed to read archive", "run_id", runID, "error", err)
		}
		return RunRecord{}, false
	}
	return fromArchive(archived), true
}

func fromArchive(a *store.Record) RunRecord {
	rec := RunRecord{
		Run:        a.Run,
		Definition: a.Definition,
		Outcomes:   a.Outcomes,
		Results:    a.Results,
		Metrics:    a.Metrics,
	}
	m, err := result.Minimize(a.Results)
	if err != nil {
		logger.Warn("archived results cannot be minimized", "run_id", a.Run.ID, "error", err)
		return rec
	}
	rec.Minimized = m
	return rec
}

func archiveRecord(rec RunRecord) store.Record {
	return store.Record{
		Run:        rec.Run,
		Definition: rec.Definition,
		Outcomes:   rec.Outcomes,
		Results:    rec.Results,
		Metrics:    rec.Metrics,
	}
}

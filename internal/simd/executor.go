package simd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/sweep-core/internal/metrics"
	"github.com/GoSim-25-26J-441/sweep-core/internal/pipeline"
	"github.com/GoSim-25-26J-441/sweep-core/internal/project"
	"github.com/GoSim-25-26J-441/sweep-core/internal/store"
	"github.com/GoSim-25-26J-441/sweep-core/internal/sweep"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/logger"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/models"
)

// ProjectFactory opens the project a run drives. Each run gets its own
// project, so runs never share a solver.
type ProjectFactory func(plan *pipeline.Plan) (project.Project, error)

// Archiver persists finished runs.
type Archiver interface {
	SaveRun(ctx context.Context, rec store.Record) error
}

// RunExecutor manages asynchronous run execution and per-run cancellation.
type RunExecutor struct {
	store      *RunStore
	newProject ProjectFactory
	archive    Archiver
	notifier   *Notifier

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// ExecutorOption configures a RunExecutor.
type ExecutorOption func(*RunExecutor)

func WithProjectFactory(f ProjectFactory) ExecutorOption {
	return func(e *RunExecutor) {
		if f != nil {
			e.newProject = f
		}
	}
}

func WithArchive(a Archiver) ExecutorOption {
	return func(e *RunExecutor) { e.archive = a }
}

func WithNotifier(n *Notifier) ExecutorOption {
	return func(e *RunExecutor) { e.notifier = n }
}

// SyntheticProjects opens the synthetic backend described by each plan.
func SyntheticProjects(plan *pipeline.Plan) (project.Project, error) {
	return plan.NewProject()
}

func NewRunExecutor(store *RunStore, opts ...ExecutorOption) *RunExecutor {
	e := &RunExecutor{
		store:      store,
		newProject: SyntheticProjects,
		cancels:    make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins executing a run asynchronously.
// Returns the updated run state (running) or an error.
func (e *RunExecutor) Start(runID string) (RunRecord, error) {
	if runID == "" {
		return RunRecord{}, ErrRunIDMissing
	}

	rec, ok := e.store.Get(runID)
	if !ok {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	switch {
	case rec.Run.Status == models.RunStatusRunning:
		return rec, nil
	case rec.Run.Status.IsTerminal():
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	// Stop looks the cancel func up under mu, so it is registered before
	// any Stop can observe the running status.
	e.mu.Lock()
	updated, err := e.store.SetStatus(runID, models.RunStatusRunning, "")
	if err != nil {
		e.mu.Unlock()
		return RunRecord{}, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	if old, exists := e.cancels[runID]; exists {
		old()
	}
	e.cancels[runID] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go e.runSweep(ctx, runID)
	return updated, nil
}

// Stop marks a run cancelled. A running sweep stops once its current step
// has finished; the partial results are kept.
func (e *RunExecutor) Stop(runID string) (RunRecord, error) {
	if runID == "" {
		return RunRecord{}, ErrRunIDMissing
	}

	updated, err := e.store.SetStatus(runID, models.RunStatusCancelled, "")
	if err != nil {
		return RunRecord{}, err
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()
	if ok {
		cancel()
	} else {
		// never started: nothing else will archive it
		e.finish(runID)
	}
	return updated, nil
}

// Shutdown stops every running sweep and waits for them to finish or for
// ctx to end.
func (e *RunExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	ids := make([]string, 0, len(e.cancels))
	for id := range e.cancels {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	for _, id := range ids {
		if _, err := e.Stop(id); err != nil && !errors.Is(err, ErrRunTerminal) {
			logger.Warn("failed to stop run", "run_id", id, "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every started run has finished.
func (e *RunExecutor) Wait() {
	e.wg.Wait()
}

func (e *RunExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	e.mu.Unlock()
}

func (e *RunExecutor) fail(runID, msg string) {
	if _, err := e.store.SetStatus(runID, models.RunStatusFailed, msg); err != nil {
		logger.Error("failed to set failed status", "run_id", runID, "error", err)
	}
}

func (e *RunExecutor) runSweep(ctx context.Context, runID string) {
	defer e.wg.Done()
	defer e.cleanup(runID)
	defer e.finish(runID)

	rec, ok := e.store.Get(runID)
	if !ok {
		logger.Error("run not found", "run_id", runID)
		return
	}

	proj, err := e.newProject(rec.Plan)
	if err != nil {
		logger.Error("failed to open project", "run_id", runID, "error", err)
		e.fail(runID, fmt.Sprintf("project initialization failed: %v", err))
		return
	}

	collector := metrics.NewCollector()
	collector.Start()
	if err := e.store.SetCollector(runID, collector); err != nil {
		logger.Error("failed to store collector", "run_id", runID, "error", err)
	}

	live := sweep.ObserverFunc(func(o sweep.Outcome) {
		if err := e.store.AppendOutcome(runID, o); err != nil {
			logger.Warn("failed to record outcome", "run_id", runID, "step", o.Index, "error", err)
		}
	})

	logger.Info("starting sweep", "run_id", runID, "steps", rec.Run.Steps, "strategy", rec.Run.Strategy)
	start := time.Now()
	out, runErr := rec.Plan.Run(ctx, proj,
		sweep.WithObserver(metrics.NewStepObserver(collector)),
		sweep.WithObserver(live),
		sweep.WithLogger(logger.With("run_id", runID)),
	)
	// steps that never ran reach no observer
	if out != nil && out.Report != nil {
		now := time.Now()
		for _, o := range out.Report.Outcomes {
			if o.Status == sweep.StatusNotRun {
				metrics.RecordStep(collector, o, now)
			}
		}
	}
	collector.Stop()

	if err := e.store.SetOutput(runID, out); err != nil {
		logger.Error("failed to set output", "run_id", runID, "error", err)
	}
	runMetrics := metrics.ConvertToRunMetrics(collector)
	if err := e.store.SetMetrics(runID, runMetrics); err != nil {
		logger.Error("failed to set metrics", "run_id", runID, "error", err)
	}

	switch {
	case runErr == nil:
		if _, err := e.store.SetStatus(runID, models.RunStatusCompleted, ""); err != nil && !errors.Is(err, ErrRunTerminal) {
			logger.Error("failed to set completed status", "run_id", runID, "error", err)
			return
		}
		logger.Info("sweep completed", "run_id", runID,
			"completed_steps", runMetrics.CompletedSteps,
			"skipped_steps", runMetrics.SkippedSteps,
			"duration", time.Since(start))
	case errors.Is(runErr, context.Canceled):
		logger.Info("sweep cancelled", "run_id", runID, "completed_steps", runMetrics.CompletedSteps)
	default:
		logger.Error("sweep failed", "run_id", runID, "error", runErr)
		e.fail(runID, runErr.Error())
	}
}

// finish archives and announces a run once it has left the running state.
func (e *RunExecutor) finish(runID string) {
	rec, ok := e.store.Get(runID)
	if !ok {
		return
	}
	if rec.Run.Status == models.RunStatusRunning {
		e.fail(runID, "sweep ended unexpectedly")
		if rec, ok = e.store.Get(runID); !ok {
			return
		}
	}

	if e.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := e.archive.SaveRun(ctx, archiveRecord(rec))
		cancel()
		if err != nil {
			logger.Error("failed to archive run", "run_id", runID, "error", err)
		} else {
			logger.Debug("run archived", "run_id", runID)
		}
	}
	if e.notifier != nil && rec.CallbackURL != "" {
		e.notifier.Notify(rec.CallbackURL, rec.CallbackSecret, &rec)
	}
}

package simd

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/sweep-core/internal/metrics"
	"github.com/GoSim-25-26J-441/sweep-core/internal/pipeline"
	"github.com/GoSim-25-26J-441/sweep-core/internal/result"
	"github.com/GoSim-25-26J-441/sweep-core/internal/strategy"
	"github.com/GoSim-25-26J-441/sweep-core/internal/sweep"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/config"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/models"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/utils"
)

var (
	ErrRunNotFound       = errors.New("run not found")
	ErrRunTerminal       = errors.New("run is terminal")
	ErrRunIDMissing      = errors.New("run_id is required")
	ErrRunExists         = errors.New("run already exists")
	ErrInvalidRunID      = errors.New("invalid run_id")
	ErrInvalidDefinition = errors.New("invalid sweep definition")
	ErrTooManySteps      = errors.New("sweep exceeds the step limit")
)

// CreateRequest describes a new sweep run.
type CreateRequest struct {
	RunID          string            `json:"run_id,omitempty"`
	Definition     string            `json:"definition"`
	CallbackURL    string            `json:"callback_url,omitempty"`
	CallbackSecret string            `json:"callback_secret,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// RunRecord is the daemon's view of one sweep run. RunStore hands out
// copies; the slices are replaced, never modified in place, once shared.
type RunRecord struct {
	Run            models.Run
	Definition     string
	Plan           *pipeline.Plan
	CallbackURL    string
	CallbackSecret string
	Outcomes       []sweep.Outcome
	Results        []result.Result
	Minimized      *result.Minimized
	Metrics        *models.RunMetrics
	Collector      *metrics.Collector
}

type RunStore struct {
	mu       sync.RWMutex
	runs     map[string]*RunRecord
	maxSteps int
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs:     make(map[string]*RunRecord),
		maxSteps: utils.MaxRangeValues,
	}
}

// SetStepLimit bounds the number of snapshots a single run may enumerate.
func (s *RunStore) SetStepLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxSteps = n
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

// Create parses and compiles the definition and registers a pending run.
func (s *RunStore) Create(req CreateRequest) (RunRecord, error) {
	runID := req.RunID
	if runID == "" {
		runID = utils.GenerateRunID()
	} else if err := utils.ValidateRunID(runID); err != nil {
		return RunRecord{}, fmt.Errorf("%w: %v", ErrInvalidRunID, err)
	}

	sw, err := config.ParseSweepYAMLString(req.Definition)
	if err != nil {
		return RunRecord{}, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	plan, err := pipeline.Compile(sw)
	if err != nil {
		return RunRecord{}, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	steps, err := plan.Steps()
	if errors.Is(err, strategy.ErrTooManySnapshots) {
		return RunRecord{}, fmt.Errorf("%w: %v", ErrTooManySteps, err)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	callback := req.CallbackURL
	if callback == "" && sw.Output != nil {
		callback = sw.Output.CallbackURL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSteps > 0 && steps > s.maxSteps {
		return RunRecord{}, fmt.Errorf("%w: %d steps (max %d)", ErrTooManySteps, steps, s.maxSteps)
	}
	if _, exists := s.runs[runID]; exists {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunExists, runID)
	}

	rec := &RunRecord{
		Run: models.Run{
			ID:              runID,
			Name:            plan.Name,
			Status:          models.RunStatusPending,
			Strategy:        plan.Strategy.Name(),
			Policy:          string(plan.Policy),
			Steps:           steps,
			CreatedAtUnixMs: nowUnixMs(),
			Metadata:        copyMetadata(req.Metadata),
		},
		Definition:     req.Definition,
		Plan:           plan,
		CallbackURL:    callback,
		CallbackSecret: req.CallbackSecret,
	}
	s.runs[runID] = rec
	return rec.clone(), nil
}

func (r *RunRecord) clone() RunRecord {
	out := *r
	out.Run.Metadata = copyMetadata(r.Run.Metadata)
	return out
}

func copyMetadata(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *RunStore) Get(runID string) (RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return RunRecord{}, false
	}
	return rec.clone(), true
}

// List returns runs newest first, optionally filtered by status.
func (s *RunStore) List(limit, offset int, status models.RunStatus) []RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	all := make([]*RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		if status != "" && rec.Run.Status != status {
			continue
		}
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Run.CreatedAtUnixMs != all[j].Run.CreatedAtUnixMs {
			return all[i].Run.CreatedAtUnixMs > all[j].Run.CreatedAtUnixMs
		}
		return all[i].Run.ID < all[j].Run.ID
	})

	if offset >= len(all) {
		return []RunRecord{}
	}
	all = all[offset:]
	out := make([]RunRecord, 0, utils.MinInt(limit, len(all)))
	for _, rec := range all[:utils.MinInt(limit, len(all))] {
		out = append(out, rec.clone())
	}
	return out
}

// SetStatus moves a run to status. A terminal run never changes again.
func (s *RunStore) SetStatus(runID string, status models.RunStatus, errMsg string) (RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Status.IsTerminal() {
		return RunRecord{}, fmt.Errorf("%w: %s is %s", ErrRunTerminal, runID, rec.Run.Status)
	}

	rec.Run.Status = status
	if errMsg != "" {
		rec.Run.Error = errMsg
	}

	switch {
	case status == models.RunStatusRunning:
		if rec.Run.StartedAtUnixMs == 0 {
			rec.Run.StartedAtUnixMs = nowUnixMs()
		}
	case status.IsTerminal():
		rec.Run.EndedAtUnixMs = nowUnixMs()
	}

	return rec.clone(), nil
}

// AppendOutcome records the outcome of one finished step.
func (s *RunStore) AppendOutcome(runID string, o sweep.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Outcomes = append(rec.Outcomes, o)
	return nil
}

// SetOutput stores what the pipeline produced. The full outcome list of the
// report replaces the live one.
func (s *RunStore) SetOutput(runID string, out *pipeline.Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if out == nil {
		return nil
	}
	if out.Report != nil {
		rec.Outcomes = append([]sweep.Outcome(nil), out.Report.Outcomes...)
	}
	rec.Results = out.Results
	rec.Minimized = out.Minimized
	return nil
}

func (s *RunStore) SetMetrics(runID string, m *models.RunMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Metrics = m
	return nil
}

func (s *RunStore) SetCollector(runID string, c *metrics.Collector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Collector = c
	return nil
}

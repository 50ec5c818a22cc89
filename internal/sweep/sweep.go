// Package sweep drives a Project through every snapshot a strategy emits
// and tags each raw record with the snapshot that produced it.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/sweep-core/internal/project"
	"github.com/GoSim-25-26J-441/sweep-core/internal/strategy"
	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/logger"
)

// Policy decides what happens when a step fails.
type Policy string

const (
	// PolicyAbort stops the sweep at the first failed step.
	PolicyAbort Policy = "abort"
	// PolicySkip records the failure and moves on to the next snapshot.
	PolicySkip Policy = "skip"
)

// ParsePolicy parses a policy name. Empty means abort.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("%w: %q (expected abort or skip)", ErrInvalidPolicy, s)
	}
}

// Status of a single step.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusNotRun    Status = "not_run"
)

// Sample is one successful step: the snapshot and the raw record it produced.
type Sample struct {
	Index    int
	Snapshot variable.Snapshot
	Record   project.Record
}

// Outcome is the per-step log entry. Every emitted snapshot gets one.
type Outcome struct {
	Index    int               `json:"index"`
	Snapshot variable.Snapshot `json:"snapshot"`
	Status   Status            `json:"status"`
	Op       string            `json:"op,omitempty"`
	Error    string            `json:"error,omitempty"`
	Duration time.Duration     `json:"duration_ns"`
}

// Observer receives every outcome as soon as its step ends.
type Observer interface {
	ObserveStep(o Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Outcome)

func (f ObserverFunc) ObserveStep(o Outcome) { f(o) }

// Report is the result of a sweep run.
type Report struct {
	Strategy string
	Policy   Policy
	Samples  []Sample
	Outcomes []Outcome
	// Stopped is set when the context ended the sweep early.
	Stopped bool
}

// Snapshots returns the tagged snapshots of all samples, in order.
func (r *Report) Snapshots() []variable.Snapshot {
	out := make([]variable.Snapshot, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Snapshot
	}
	return out
}

// Count returns the number of outcomes with the given status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Sweep owns a Project, the variables to sweep and a strategy.
type Sweep struct {
	project      project.Project
	vars         []variable.Variable
	strategy     strategy.Strategy
	policy       Policy
	includeState bool
	observers    []Observer
	log          *slog.Logger
}

// Option configures a Sweep.
type Option func(*Sweep)

// WithPolicy sets the failure policy.
func WithPolicy(p Policy) Option {
	return func(s *Sweep) { s.policy = p }
}

// WithProjectState tags each sample with the project's full variable state
// instead of only the swept variables.
func WithProjectState(enabled bool) Option {
	return func(s *Sweep) { s.includeState = enabled }
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(s *Sweep) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sweep) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Sweep. A nil strategy means Product.
func New(p project.Project, vars []variable.Variable, strat strategy.Strategy, opts ...Option) (*Sweep, error) {
	if p == nil {
		return nil, ErrNoProject
	}
	if strat == nil {
		strat = strategy.Product{}
	}
	s := &Sweep{
		project:  p,
		vars:     append([]variable.Variable(nil), vars...),
		strategy: strat,
		policy:   PolicyAbort,
		log:      logger.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy != PolicyAbort && s.policy != PolicySkip {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPolicy, s.policy)
	}
	return s, nil
}

// Snapshots enumerates the snapshots the sweep will visit without touching
// the project.
func (s *Sweep) Snapshots() ([]variable.Snapshot, error) {
	return s.strategy.Snapshots(s.vars)
}

// Len returns the number of steps.
func (s *Sweep) Len() (int, error) {
	return strategy.Count(s.strategy, s.vars)
}

// Variables returns the swept variables.
func (s *Sweep) Variables() []variable.Variable {
	return append([]variable.Variable(nil), s.vars...)
}

// Run visits every snapshot in emission order. Steps are strictly
// sequential. Cancelling ctx stops the sweep once the current step has
// finished; the partial report is returned together with the context error.
// Under PolicyAbort the first failure ends the sweep with a *StepError.
func (s *Sweep) Run(ctx context.Context) (*Report, error) {
	snaps, err := s.Snapshots()
	if err != nil {
		return nil, err
	}

	report := &Report{
		Strategy: s.strategy.Name(),
		Policy:   s.policy,
		Samples:  make([]Sample, 0, len(snaps)),
		Outcomes: make([]Outcome, 0, len(snaps)),
	}
	s.log.Info("sweep started", "strategy", report.Strategy, "policy", report.Policy, "steps", len(snaps))
	start := time.Now()

	// the solver call is never interrupted mid-step
	stepCtx := context.WithoutCancel(ctx)

	for i, snap := range snaps {
		if err := ctx.Err(); err != nil {
			report.Stopped = true
			s.markNotRun(report, snaps[i:], i)
			s.log.Warn("sweep stopped", "completed_steps", i, "remaining", len(snaps)-i)
			return report, err
		}

		stepStart := time.Now()
		sample, stepErr := s.step(stepCtx, i, snap)
		outcome := Outcome{Index: i, Snapshot: snap, Duration: time.Since(stepStart)}

		if stepErr == nil {
			outcome.Snapshot = sample.Snapshot
			outcome.Status = StatusCompleted
			report.Samples = append(report.Samples, sample)
			report.Outcomes = append(report.Outcomes, outcome)
			s.notify(outcome)
			s.log.Debug("sweep step completed", "step", i, "snapshot", sample.Snapshot.String(), "duration", outcome.Duration)
			continue
		}

		outcome.Op = stepErr.Op
		outcome.Error = stepErr.Err.Error()
		if s.policy == PolicySkip {
			outcome.Status = StatusSkipped
			report.Outcomes = append(report.Outcomes, outcome)
			s.notify(outcome)
			s.log.Warn("sweep step skipped", "step", i, "snapshot", snap.String(), "op", stepErr.Op, "error", stepErr.Err)
			continue
		}

		outcome.Status = StatusFailed
		report.Outcomes = append(report.Outcomes, outcome)
		s.notify(outcome)
		s.markNotRun(report, snaps[i+1:], i+1)
		s.log.Error("sweep aborted", "step", i, "snapshot", snap.String(), "op", stepErr.Op, "error", stepErr.Err)
		return report, stepErr
	}

	s.log.Info("sweep completed",
		"samples", len(report.Samples),
		"skipped", report.Count(StatusSkipped),
		"duration", time.Since(start))
	return report, nil
}

func (s *Sweep) step(ctx context.Context, i int, snap variable.Snapshot) (Sample, *StepError) {
	fail := func(op string, err error) *StepError {
		return &StepError{Index: i, Snapshot: snap, Op: op, Err: err}
	}

	if err := project.Apply(ctx, s.project, snap); err != nil {
		return Sample{}, fail(OpSetVariable, err)
	}

	tagged := snap
	if s.includeState {
		reporter, ok := s.project.(project.StateReporter)
		if !ok {
			return Sample{}, fail(OpGetState, errors.New("project cannot report its variable state"))
		}
		state, err := reporter.Variables(ctx)
		if err != nil {
			return Sample{}, fail(OpGetState, err)
		}
		tagged = state.Override(snap)
	}

	if err := s.project.RunAnalysis(ctx); err != nil {
		return Sample{}, fail(OpRunAnalysis, err)
	}
	rec, err := s.project.Results(ctx)
	if err != nil {
		return Sample{}, fail(OpGetResults, err)
	}
	return Sample{Index: i, Snapshot: tagged, Record: rec}, nil
}

func (s *Sweep) markNotRun(report *Report, rest []variable.Snapshot, offset int) {
	for j, snap := range rest {
		report.Outcomes = append(report.Outcomes, Outcome{Index: offset + j, Snapshot: snap, Status: StatusNotRun})
	}
}

func (s *Sweep) notify(o Outcome) {
	for _, obs := range s.observers {
		obs.ObserveStep(o)
	}
}

package models

import (
	"time"
)

// RunStatus represents the status of a sweep run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether a run in this status can no longer change.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// Run represents a sweep run
type Run struct {
	ID              string            `json:"id"`
	Name            string            `json:"name,omitempty"`
	Status          RunStatus         `json:"status"`
	Strategy        string            `json:"strategy"`
	Policy          string            `json:"on_failure"`
	Steps           int               `json:"steps"`
	CreatedAtUnixMs int64             `json:"created_at_unix_ms"`
	StartedAtUnixMs int64             `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64             `json:"ended_at_unix_ms,omitempty"`
	Error           string            `json:"error,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Duration returns the wall time between start and end, or zero when the
// run has not finished.
func (r *Run) Duration() time.Duration {
	if r.StartedAtUnixMs == 0 || r.EndedAtUnixMs == 0 {
		return 0
	}
	return time.Duration(r.EndedAtUnixMs-r.StartedAtUnixMs) * time.Millisecond
}

// RunMetrics contains aggregated step telemetry for a sweep run
type RunMetrics struct {
	TotalSteps     int64   `json:"total_steps"`
	CompletedSteps int64   `json:"completed_steps"`
	SkippedSteps   int64   `json:"skipped_steps"`
	FailedSteps    int64   `json:"failed_steps"`
	NotRunSteps    int64   `json:"not_run_steps"`
	StepP50Ms      float64 `json:"step_p50_ms"`
	StepP95Ms      float64 `json:"step_p95_ms"`
	StepP99Ms      float64 `json:"step_p99_ms"`
	StepMeanMs     float64 `json:"step_mean_ms"`
	StepsPerMinute float64 `json:"steps_per_minute"`
	// FailuresByOp counts failed or skipped steps per failing operation.
	FailuresByOp map[string]int64 `json:"failures_by_op,omitempty"`
}

// MetricPoint represents a single metric data point
type MetricPoint struct {
	Timestamp time.Time         `json:"timestamp"`
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// MetricsSummary represents a summary of collected metrics
type MetricsSummary struct {
	StartTime    time.Time               `json:"start_time"`
	EndTime      time.Time               `json:"end_time"`
	Duration     time.Duration           `json:"duration"`
	Metrics      map[string][]float64    `json:"metrics"` // metric name -> values
	Aggregations map[string]*Aggregation `json:"aggregations,omitempty"`
}

// Aggregation represents aggregated statistics for a metric
type Aggregation struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

package metrics

import (
	"time"

	"github.com/GoSim-25-26J-441/sweep-core/internal/sweep"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/models"
)

// Common metric names
const (
	MetricStepDuration = "step_duration_ms"
	MetricStepCount    = "step_count"
	MetricStepFailure  = "step_failure_count"
)

// Label keys
const (
	LabelStatus = "status"
	LabelOp     = "op"
)

// StepObserver records sweep step outcomes into a Collector.
type StepObserver struct {
	collector *Collector
}

// NewStepObserver returns an observer that feeds c.
func NewStepObserver(c *Collector) *StepObserver {
	return &StepObserver{collector: c}
}

// ObserveStep implements sweep.Observer.
func (o *StepObserver) ObserveStep(out sweep.Outcome) {
	RecordStep(o.collector, out, time.Now())
}

// RecordStep records one outcome.
func RecordStep(c *Collector, out sweep.Outcome, timestamp time.Time) {
	labels := map[string]string{LabelStatus: string(out.Status)}
	c.Record(MetricStepCount, 1, timestamp, labels)
	if out.Status != sweep.StatusNotRun {
		c.Record(MetricStepDuration, float64(out.Duration)/float64(time.Millisecond), timestamp, labels)
	}
	if out.Op != "" {
		c.Record(MetricStepFailure, 1, timestamp, map[string]string{LabelStatus: string(out.Status), LabelOp: out.Op})
	}
}

// RecordReport records every outcome of a finished report.
func RecordReport(c *Collector, report *sweep.Report) {
	now := time.Now()
	for _, out := range report.Outcomes {
		RecordStep(c, out, now)
	}
}

// ConvertToRunMetrics converts collector metrics to RunMetrics format
func ConvertToRunMetrics(c *Collector) *models.RunMetrics {
	count := func(status sweep.Status) int64 {
		return int64(len(c.Values(MetricStepCount, map[string]string{LabelStatus: string(status)})))
	}

	rm := &models.RunMetrics{
		TotalSteps:     int64(len(c.Values(MetricStepCount, nil))),
		CompletedSteps: count(sweep.StatusCompleted),
		SkippedSteps:   count(sweep.StatusSkipped),
		FailedSteps:    count(sweep.StatusFailed),
		NotRunSteps:    count(sweep.StatusNotRun),
	}

	if agg := c.GetAggregation(MetricStepDuration, nil); agg != nil {
		rm.StepP50Ms = agg.P50
		rm.StepP95Ms = agg.P95
		rm.StepP99Ms = agg.P99
		rm.StepMeanMs = agg.Mean
	}

	summary := c.GetSummary()
	if minutes := summary.Duration.Minutes(); minutes > 0 {
		rm.StepsPerMinute = float64(rm.CompletedSteps) / minutes
	}

	for _, p := range failurePoints(c) {
		if rm.FailuresByOp == nil {
			rm.FailuresByOp = make(map[string]int64)
		}
		rm.FailuresByOp[p.Labels[LabelOp]]++
	}
	return rm
}

func failurePoints(c *Collector) []*models.MetricPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*models.MetricPoint
	for _, points := range c.timeSeries[MetricStepFailure] {
		out = append(out, points...)
	}
	return out
}

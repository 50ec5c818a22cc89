package metrics

import (
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/sweep-core/internal/sweep"
)

func TestConvertToRunMetrics(t *testing.T) {
	c := NewCollector()
	c.Start()

	obs := NewStepObserver(c)
	obs.ObserveStep(sweep.Outcome{Index: 0, Status: sweep.StatusCompleted, Duration: 10 * time.Millisecond})
	obs.ObserveStep(sweep.Outcome{Index: 1, Status: sweep.StatusSkipped, Op: sweep.OpRunAnalysis, Error: "boom", Duration: 30 * time.Millisecond})
	obs.ObserveStep(sweep.Outcome{Index: 2, Status: sweep.StatusFailed, Op: sweep.OpSetVariable, Duration: 20 * time.Millisecond})
	obs.ObserveStep(sweep.Outcome{Index: 3, Status: sweep.StatusNotRun})
	c.Stop()

	rm := ConvertToRunMetrics(c)
	if rm.TotalSteps != 4 || rm.CompletedSteps != 1 || rm.SkippedSteps != 1 || rm.FailedSteps != 1 || rm.NotRunSteps != 1 {
		t.Errorf("unexpected counts %+v", rm)
	}
	if rm.StepMeanMs != 20 {
		t.Errorf("expected mean step 20ms (not-run steps excluded), got %v", rm.StepMeanMs)
	}
	if rm.StepP99Ms != 30 {
		t.Errorf("expected p99 30ms, got %v", rm.StepP99Ms)
	}
	if rm.FailuresByOp[sweep.OpRunAnalysis] != 1 || rm.FailuresByOp[sweep.OpSetVariable] != 1 {
		t.Errorf("unexpected failures by op %v", rm.FailuresByOp)
	}
}

func TestRecordReport(t *testing.T) {
	c := NewCollector()
	RecordReport(c, &sweep.Report{Outcomes: []sweep.Outcome{
		{Status: sweep.StatusCompleted, Duration: time.Millisecond},
		{Status: sweep.StatusCompleted, Duration: 3 * time.Millisecond},
	}})

	rm := ConvertToRunMetrics(c)
	if rm.CompletedSteps != 2 || rm.StepMeanMs != 2 {
		t.Errorf("unexpected metrics %+v", rm)
	}
	if rm.FailuresByOp != nil {
		t.Errorf("expected no failures, got %v", rm.FailuresByOp)
	}
}

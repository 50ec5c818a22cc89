package metrics

import (
	"testing"
	"time"
)

func TestCollectorRecordAndGetTimeSeries(t *testing.T) {
	c := NewCollector()
	c.Start()

	now := time.Now()
	c.Record("step_duration_ms", 10.0, now, nil)
	c.Record("step_duration_ms", 20.0, now.Add(time.Second), nil)
	c.Record("step_duration_ms", 30.0, now.Add(2*time.Second), nil)

	points := c.GetTimeSeries("step_duration_ms", nil)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	for i, want := range []float64{10, 20, 30} {
		if points[i].Value != want {
			t.Errorf("point %d: expected %v, got %v", i, want, points[i].Value)
		}
	}

	// copies are returned
	points[0].Value = 99
	if again := c.GetTimeSeries("step_duration_ms", nil); again[0].Value != 10 {
		t.Errorf("expected stored value to be unchanged, got %v", again[0].Value)
	}
}

func TestCollectorLabels(t *testing.T) {
	c := NewCollector()
	now := time.Now()
	c.Record("step_count", 1, now, map[string]string{"status": "completed"})
	c.Record("step_count", 1, now, map[string]string{"status": "skipped", "op": "run_analysis"})
	c.Record("step_count", 1, now, map[string]string{"op": "run_analysis", "status": "skipped"})

	if got := c.GetTimeSeries("step_count", map[string]string{"status": "completed"}); len(got) != 1 {
		t.Fatalf("expected 1 completed point, got %d", len(got))
	}
	if got := c.GetTimeSeries("step_count", map[string]string{"status": "skipped", "op": "run_analysis"}); len(got) != 2 {
		t.Fatalf("label order should not matter, got %d points", len(got))
	}
	if got := c.Values("step_count", map[string]string{"status": "skipped"}); len(got) != 2 {
		t.Errorf("expected 2 values matching status=skipped, got %d", len(got))
	}
	if got := c.Values("step_count", nil); len(got) != 3 {
		t.Errorf("expected 3 values overall, got %d", len(got))
	}
	if got := c.GetTimeSeries("missing", nil); got != nil {
		t.Errorf("expected nil for unknown metric, got %v", got)
	}
}

func TestCollectorAggregation(t *testing.T) {
	c := NewCollector()
	for _, v := range []float64{40, 10, 30, 20} {
		c.RecordNow("d", v, nil)
	}

	agg := c.GetAggregation("d", nil)
	if agg == nil {
		t.Fatal("expected aggregation")
	}
	if agg.Count != 4 || agg.Sum != 100 || agg.Min != 10 || agg.Max != 40 || agg.Mean != 25 {
		t.Errorf("unexpected aggregation %+v", agg)
	}
	if agg.P50 < agg.Min || agg.P50 > agg.Max || agg.P99 != 40 {
		t.Errorf("unexpected quantiles %+v", agg)
	}

	if c.GetAggregation("missing", nil) != nil {
		t.Error("expected nil aggregation for unknown metric")
	}

	single := NewCollector()
	single.RecordNow("d", 7, nil)
	if agg := single.GetAggregation("d", nil); agg.P50 != 7 || agg.P95 != 7 {
		t.Errorf("single value quantiles should equal the value, got %+v", agg)
	}
}

func TestCollectorSummaryAndClear(t *testing.T) {
	c := NewCollector()
	c.Start()
	c.RecordNow("b", 1, nil)
	c.RecordNow("a", 2, map[string]string{"x": "y"})
	c.Stop()

	names := c.GetMetricNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("expected sorted names [a b], got %v", names)
	}

	summary := c.GetSummary()
	if summary.Duration < 0 {
		t.Errorf("negative duration %v", summary.Duration)
	}
	if len(summary.Metrics["a"]) != 1 || summary.Aggregations["b"] == nil {
		t.Errorf("unexpected summary %+v", summary)
	}

	c.Clear()
	if len(c.GetMetricNames()) != 0 {
		t.Error("expected no metrics after Clear")
	}
}

package sweep

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/sweep-core/internal/project"
	"github.com/GoSim-25-26J-441/sweep-core/internal/strategy"
	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/logger"
)

// fakeProject logs every call and fails analyses at chosen call numbers.
// failSet fails SetVariable for a "name=value" assignment.
type fakeProject struct {
	mu       sync.Mutex
	calls    []string
	state    map[string]variable.ValuedVariable
	order    []string
	analyses int
	failAt   map[int]error
	failSet  map[string]error
	onRun    func(n int)
}

func newFakeProject(initial ...variable.ValuedVariable) *fakeProject {
	p := &fakeProject{
		state:   make(map[string]variable.ValuedVariable),
		failAt:  make(map[int]error),
		failSet: make(map[string]error),
	}
	for _, v := range initial {
		p.order = append(p.order, v.Name)
		p.state[v.Name] = v
	}
	return p
}

func (p *fakeProject) SetVariable(_ context.Context, name string, value float64, units string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	assignment := fmt.Sprintf("%s=%g%s", name, value, units)
	p.calls = append(p.calls, "set "+assignment)
	if err := p.failSet[assignment]; err != nil {
		return err
	}
	if _, ok := p.state[name]; !ok {
		p.order = append(p.order, name)
	}
	p.state[name] = variable.NewValued(name, value, units)
	return nil
}

func (p *fakeProject) RunAnalysis(context.Context) error {
	p.mu.Lock()
	n := p.analyses
	p.analyses++
	p.calls = append(p.calls, "run")
	err := p.failAt[n]
	hook := p.onRun
	p.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return err
}

func (p *fakeProject) Results(context.Context) (project.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "results")
	sum := 0.0
	for _, v := range p.state {
		sum += v.Value
	}
	return project.Record{Modes: map[string][]float64{project.ColumnFrequency: {sum}}}, nil
}

func (p *fakeProject) Variables(context.Context) (variable.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	vars := make([]variable.ValuedVariable, 0, len(p.order))
	for _, name := range p.order {
		vars = append(vars, p.state[name])
	}
	return variable.NewSnapshot(vars...)
}

// bareProject hides the optional capabilities of fakeProject.
type bareProject struct{ project.Project }

func vars(t *testing.T) []variable.Variable {
	t.Helper()
	a, err := variable.New("a", "mm", 1, 2)
	require.NoError(t, err)
	b, err := variable.New("b", "", 3, 4)
	require.NoError(t, err)
	return []variable.Variable{a, b}
}

func newSweep(t *testing.T, p project.Project, s strategy.Strategy, opts ...Option) *Sweep {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	sw, err := New(p, vars(t), s, opts...)
	require.NoError(t, err)
	return sw
}

func TestRunCallOrder(t *testing.T) {
	p := newFakeProject()
	report, err := newSweep(t, p, strategy.Zip{}).Run(context.Background())
	require.NoError(t, err)

	want := []string{
		"set a=1mm", "set b=3", "run", "results",
		"set a=2mm", "set b=4", "run", "results",
	}
	if diff := cmp.Diff(want, p.calls); diff != "" {
		t.Errorf("call log mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, report.Samples, 2)
	assert.Equal(t, 4.0, report.Samples[0].Record.Modes[project.ColumnFrequency][0])
	assert.Equal(t, 6.0, report.Samples[1].Record.Modes[project.ColumnFrequency][0])
	assert.Equal(t, "zip", report.Strategy)
	assert.Equal(t, 2, report.Count(StatusCompleted))
}

func TestRunProductTagsSnapshots(t *testing.T) {
	report, err := newSweep(t, newFakeProject(), nil).Run(context.Background())
	require.NoError(t, err)

	got := report.Snapshots()
	require.Len(t, got, 4)
	want := [][2]float64{{1, 3}, {1, 4}, {2, 3}, {2, 4}}
	for i, s := range got {
		assert.Equal(t, want[i][0], s.At(0).Value)
		assert.Equal(t, want[i][1], s.At(1).Value)
		assert.Equal(t, i, report.Samples[i].Index)
	}
}

func TestRunAbortPolicy(t *testing.T) {
	p := newFakeProject()
	p.failAt[1] = errors.New("mesh failed")

	report, err := newSweep(t, p, strategy.Product{}).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepFailed)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 1, stepErr.Index)
	assert.Equal(t, OpRunAnalysis, stepErr.Op)
	assert.Equal(t, "(a=1mm, b=4)", stepErr.Snapshot.String())
	assert.Contains(t, err.Error(), "mesh failed")

	require.Len(t, report.Samples, 1)
	require.Len(t, report.Outcomes, 4, "every snapshot has an outcome")
	assert.Equal(t, StatusFailed, report.Outcomes[1].Status)
	assert.Equal(t, StatusNotRun, report.Outcomes[2].Status)
	assert.Equal(t, StatusNotRun, report.Outcomes[3].Status)
	assert.Equal(t, 2, p.analyses, "no steps after the failure")
}

func TestRunSkipPolicy(t *testing.T) {
	p := newFakeProject()
	p.failAt[0] = errors.New("boom")
	p.failAt[2] = errors.New("boom")

	var seen []Outcome
	sw := newSweep(t, p, strategy.Product{}, WithPolicy(PolicySkip), WithObserver(ObserverFunc(func(o Outcome) {
		seen = append(seen, o)
	})))
	report, err := sw.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, report.Samples, 2, "snapshots minus skipped failures")
	assert.Equal(t, 2, report.Count(StatusSkipped))
	assert.Equal(t, OpRunAnalysis, report.Outcomes[0].Op)
	assert.Equal(t, "boom", report.Outcomes[0].Error)
	assert.Len(t, seen, 4)
	assert.Equal(t, 1, report.Samples[0].Index)
	assert.Equal(t, 3, report.Samples[1].Index)
}

func TestRunSetVariableFailureAborts(t *testing.T) {
	p := newFakeProject()
	p.failSet["b=4"] = errors.New("locked")

	report, err := newSweep(t, p, strategy.Product{}).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepFailed)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 1, stepErr.Index)
	assert.Equal(t, OpSetVariable, stepErr.Op)
	assert.Equal(t, "b: locked", stepErr.Err.Error())

	want := []string{
		"set a=1mm", "set b=3", "run", "results",
		"set a=1mm", "set b=4",
	}
	if diff := cmp.Diff(want, p.calls); diff != "" {
		t.Errorf("call log mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, p.analyses, "no analysis after a failed set")
	require.Len(t, report.Outcomes, 4)
	assert.Equal(t, StatusFailed, report.Outcomes[1].Status)
	assert.Equal(t, OpSetVariable, report.Outcomes[1].Op)
	assert.Equal(t, StatusNotRun, report.Outcomes[3].Status)
}

func TestRunSetVariableFailureSkips(t *testing.T) {
	p := newFakeProject()
	p.failSet["a=2mm"] = errors.New("out of bounds")

	report, err := newSweep(t, p, strategy.Product{}, WithPolicy(PolicySkip)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, p.analyses, "failed sets never reach the solver")
	assert.Equal(t, 2, report.Count(StatusCompleted))
	assert.Equal(t, 2, report.Count(StatusSkipped))
	for _, o := range report.Outcomes[2:] {
		assert.Equal(t, StatusSkipped, o.Status)
		assert.Equal(t, OpSetVariable, o.Op)
		assert.Equal(t, "a: out of bounds", o.Error)
	}
	want := []string{
		"set a=1mm", "set b=3", "run", "results",
		"set a=1mm", "set b=4", "run", "results",
		"set a=2mm",
		"set a=2mm",
	}
	if diff := cmp.Diff(want, p.calls); diff != "" {
		t.Errorf("call log mismatch (-want +got):\n%s", diff)
	}
}

func TestRunIncludeProjectState(t *testing.T) {
	p := newFakeProject(variable.NewValued("$hole", 1.5, "mm"), variable.NewValued("a", 9, "mm"))
	report, err := newSweep(t, p, strategy.Zip{}, WithProjectState(true)).Run(context.Background())
	require.NoError(t, err)

	first := report.Samples[0].Snapshot
	want := variable.MustSnapshot(
		variable.NewValued("$hole", 1.5, "mm"),
		variable.NewValued("a", 1, "mm"),
		variable.NewValued("b", 3, ""),
	)
	assert.True(t, first.Equal(want), "got %s", first)
}

func TestRunIncludeProjectStateUnsupported(t *testing.T) {
	p := bareProject{newFakeProject()}
	_, err := newSweep(t, p, strategy.Zip{}, WithProjectState(true)).Run(context.Background())

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, OpGetState, stepErr.Op)
}

func TestRunStopsAfterCurrentStep(t *testing.T) {
	p := newFakeProject()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.onRun = func(n int) {
		if n == 1 {
			cancel()
		}
	}

	report, err := newSweep(t, p, strategy.Product{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.True(t, report.Stopped)
	assert.Len(t, report.Samples, 2, "the step in flight completes")
	assert.Equal(t, 2, report.Count(StatusNotRun))
	assert.Equal(t, "results", p.calls[len(p.calls)-1])
}

func TestRunValidatesBeforeSideEffects(t *testing.T) {
	p := newFakeProject()
	a, _ := variable.New("a", "", 1, 2)
	b, _ := variable.New("b", "", 3)
	sw, err := New(p, []variable.Variable{a, b}, strategy.Zip{}, WithLogger(logger.Discard()))
	require.NoError(t, err)

	report, err := sw.Run(context.Background())
	assert.ErrorIs(t, err, strategy.ErrLengthMismatch)
	assert.Nil(t, report)
	assert.Empty(t, p.calls)

	n, err := sw.Len()
	assert.Zero(t, n)
	assert.ErrorIs(t, err, strategy.ErrLengthMismatch)
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoProject)

	_, err = New(newFakeProject(), nil, nil, WithPolicy("retry"))
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyAbort, false},
		{"abort", PolicyAbort, false},
		{" Skip ", PolicySkip, false},
		{"ignore", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParsePolicy(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStepErrorMessage(t *testing.T) {
	err := &StepError{Index: 2, Snapshot: variable.MustSnapshot(variable.NewValued("x", 1, "mm")), Op: OpSetVariable, Err: errors.New("locked")}
	assert.True(t, strings.HasPrefix(err.Error(), "sweep step 2 set_variable at (x=1mm)"))
	assert.ErrorIs(t, err, ErrStepFailed)
}

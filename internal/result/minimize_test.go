package result

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

func TestMinimize(t *testing.T) {
	results := []Result{
		New(snap("x", 1.0, "y", 5.0), Metrics{"m": 0.1}),
		New(snap("x", 2.0, "y", 5.0), Metrics{"m": 0.2}),
	}

	m, err := Minimize(results)
	require.NoError(t, err)
	assert.True(t, m.Constants.Equal(snap("y", 5.0)))
	assert.Equal(t, []string{"x"}, m.Variants)
	require.Len(t, m.Rows, 2)
	assert.True(t, m.Rows[0].Variant.Equal(snap("x", 1.0)))
	assert.True(t, m.Rows[1].Variant.Equal(snap("x", 2.0)))
	assert.Equal(t, Metrics{"m": 0.2}, m.Rows[1].Metrics)
}

func TestMinimizeRoundTrip(t *testing.T) {
	results := []Result{
		New(snap("a", 1.0, "b", 2.0, "c", 3.0), Metrics{"m": 1}),
		New(snap("a", 1.0, "b", 4.0, "c", 3.0), Metrics{"m": 2}),
		New(snap("a", 1.0, "b", 2.0, "c", 6.0), Metrics{"m": 3}),
	}

	m, err := Minimize(results)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, m.Constants.Names())
	assert.Equal(t, []string{"b", "c"}, m.Variants)

	back, err := m.Reconstruct()
	require.NoError(t, err)
	require.Len(t, back, len(results))
	for i := range results {
		assert.True(t, back[i].Snapshot.Equal(results[i].Snapshot), "row %d: %s", i, back[i].Snapshot)
		assert.Equal(t, results[i].Metrics, back[i].Metrics)
	}
}

func TestMinimizeRejectsMixedUnits(t *testing.T) {
	results := []Result{
		New(variable.MustSnapshot(variable.NewValued("x", 1, "mm"), variable.NewValued("y", 5, "mm")), Metrics{}),
		New(variable.MustSnapshot(variable.NewValued("x", 2, "mm"), variable.NewValued("y", 5, "mm")), Metrics{}),
		New(variable.MustSnapshot(variable.NewValued("x", 1000, "um"), variable.NewValued("y", 5, "mm")), Metrics{}),
	}
	_, err := Minimize(results)
	require.ErrorIs(t, err, ErrMixedUnits)

	var unitsErr *UnitsError
	require.ErrorAs(t, err, &unitsErr)
	assert.Equal(t, 2, unitsErr.Index)
	assert.Equal(t, "x", unitsErr.Name)
	assert.Equal(t, "mm", unitsErr.Want)
	assert.Equal(t, "um", unitsErr.Got)
}

func TestMinimizeAllConstant(t *testing.T) {
	m, err := Minimize([]Result{New(snap("x", 1.0), Metrics{"m": 1})})
	require.NoError(t, err)
	assert.True(t, m.Constants.Equal(snap("x", 1.0)))
	assert.Empty(t, m.Variants)
	assert.True(t, m.Rows[0].Variant.IsEmpty())
}

func TestMinimizeEmpty(t *testing.T) {
	m, err := Minimize(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Header())
}

func TestMinimizeShapeMismatch(t *testing.T) {
	_, err := Minimize([]Result{
		New(snap("x", 1.0), Metrics{}),
		New(snap("x", 2.0, "y", 1.0), Metrics{}),
	})
	assert.ErrorIs(t, err, ErrSnapshotShapeMismatch)

	var shape *ShapeError
	require.True(t, errors.As(err, &shape))
	assert.Equal(t, 1, shape.Index)
	assert.Equal(t, []string{"x"}, shape.Want)
	assert.Equal(t, []string{"x", "y"}, shape.Got)
}

func TestMinimizedTable(t *testing.T) {
	results := []Result{
		New(variable.MustSnapshot(variable.NewValued("length", 8, "mm"), variable.NewValued("$hole", 1.5, "mm")), Metrics{"b": 1, "a": 0.25}),
		New(variable.MustSnapshot(variable.NewValued("length", 9, "mm"), variable.NewValued("$hole", 1.5, "mm")), Metrics{"a": 0.5}),
	}
	m, err := Minimize(results)
	require.NoError(t, err)

	assert.Equal(t, []string{"length (mm)", "a", "b"}, m.Header())
	assert.Equal(t, [][]string{{"8", "0.25", "1"}, {"9", "0.5", ""}}, m.Table())
	assert.Equal(t, map[string]float64{"$hole (mm)": 1.5}, m.ConstantColumns())
}

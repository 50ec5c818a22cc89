package variable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotEqualityIgnoresOrder(t *testing.T) {
	a := MustSnapshot(NewValued("a", 1, ""), NewValued("b", 2, ""))
	b := MustSnapshot(NewValued("b", 2, ""), NewValued("a", 1, ""))

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	// display order is retained
	assert.Equal(t, "a", a.At(0).Name)
	assert.Equal(t, "b", b.At(0).Name)
}

func TestSnapshotInequality(t *testing.T) {
	base := MustSnapshot(NewValued("a", 1, "mm"))
	assert.False(t, base.Equal(MustSnapshot(NewValued("a", 2, "mm"))))
	assert.False(t, base.Equal(MustSnapshot(NewValued("a", 1, "um"))))
	assert.False(t, base.Equal(MustSnapshot(NewValued("a", 1, "mm"), NewValued("b", 1, "mm"))))
}

func TestSnapshotDuplicateNames(t *testing.T) {
	_, err := NewSnapshot(NewValued("a", 1, ""), NewValued("a", 2, ""))
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = NewSnapshot(ValuedVariable{Value: 1})
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestSnapshotIsolation(t *testing.T) {
	vars := []ValuedVariable{NewValued("a", 1, "")}
	s := MustSnapshot(vars...)
	vars[0].Value = 5
	assert.Equal(t, 1.0, s.At(0).Value)

	out := s.Vars()
	out[0].Value = 7
	assert.Equal(t, 1.0, s.At(0).Value)
}

func TestSnapshotSelectAndUnion(t *testing.T) {
	full := MustSnapshot(NewValued("x", 1, ""), NewValued("y", 5, ""), NewValued("z", 3, ""))

	constants := full.Select(map[string]bool{"y": true})
	variant := full.Select(map[string]bool{"x": true, "z": true})
	assert.Equal(t, []string{"y"}, constants.Names())
	assert.Equal(t, []string{"x", "z"}, variant.Names())

	rebuilt, err := constants.Union(variant)
	require.NoError(t, err)
	assert.True(t, rebuilt.Equal(full))

	// agreeing overlap is fine
	_, err = full.Union(constants)
	require.NoError(t, err)

	_, err = full.Union(MustSnapshot(NewValued("y", 6, "")))
	assert.ErrorIs(t, err, ErrConflictingValue)
}

func TestSnapshotOverride(t *testing.T) {
	state := MustSnapshot(NewValued("a", 1, "mm"), NewValued("b", 2, "mm"))
	swept := MustSnapshot(NewValued("b", 9, "mm"), NewValued("c", 3, ""))

	got := state.Override(swept)
	want := MustSnapshot(NewValued("a", 1, "mm"), NewValued("b", 9, "mm"), NewValued("c", 3, ""))
	assert.True(t, got.Equal(want), "got %s", got)
	assert.Equal(t, "a", got.At(0).Name)
}

func TestSnapshotGetAndColumns(t *testing.T) {
	s := MustSnapshot(NewValued("length", 8, "mm"), NewValued("n", 2, ""))

	v, ok := s.Get("length")
	require.True(t, ok)
	assert.Equal(t, 8.0, v.Value)
	_, ok = s.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, map[string]float64{"length (mm)": 8, "n": 2}, s.Columns())
	assert.Equal(t, "(length=8mm, n=2)", s.String())
}

func TestSnapshotSorted(t *testing.T) {
	s := MustSnapshot(NewValued("b", 1, ""), NewValued("a", 1, ""))
	sorted := s.Sorted()
	assert.Equal(t, "a", sorted.At(0).Name)
	assert.True(t, sorted.Equal(s))
}

func TestEmptySnapshots(t *testing.T) {
	var zero Snapshot
	assert.True(t, zero.Equal(MustSnapshot()))
	assert.True(t, zero.IsEmpty())
}

func TestSnapshotJSON(t *testing.T) {
	s := MustSnapshot(NewValued("length", 8, "mm"), NewValued("$hole", 1.5, "mm"))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"length","value":8,"units":"mm"},{"name":"$hole","value":1.5,"units":"mm"}]`, string(data))

	var back Snapshot
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equal(s))

	err = json.Unmarshal([]byte(`[{"name":"a","value":1},{"name":"a","value":2}]`), &back)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

package variable

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVariable(t *testing.T) {
	v, err := New("length", "mm", 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "length", v.Name())
	assert.Equal(t, "mm", v.Units())
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, []float64{1, 2, 3}, v.Values())

	// Values returns a copy
	vals := v.Values()
	vals[0] = 99
	assert.Equal(t, 1.0, v.Values()[0])
}

func TestNewVariableErrors(t *testing.T) {
	_, err := New("", "mm", 1)
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = New("x", "mm", 1, math.NaN())
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = New("x", "mm", math.Inf(1))
	assert.ErrorIs(t, err, ErrInvalidValue)

	empty, err := New("x", "mm")
	require.NoError(t, err, "empty value lists are rejected at enumeration, not construction")
	assert.Equal(t, 0, empty.Len())
}

func TestGenerateRounds(t *testing.T) {
	v, err := Fixed("$hole", "mm", 11.015000000000001)
	require.NoError(t, err)

	got := v.At(0)
	assert.Equal(t, ValuedVariable{Name: "$hole", Value: 11.015, Units: "mm"}, got)
	assert.Equal(t, got, v.Generate(11.015))
	assert.True(t, got.IsProjectLevel())
}

func TestValuedVariableEquality(t *testing.T) {
	a := NewValued("x", 1, "mm")
	assert.Equal(t, a, NewValued("x", 1, "mm"))
	assert.NotEqual(t, a, NewValued("x", 1, "um"))
	assert.NotEqual(t, a, NewValued("x", 2, "mm"))
	assert.NotEqual(t, a, NewValued("y", 1, "mm"))
}

func TestValuedVariableDisplay(t *testing.T) {
	tests := []struct {
		v       ValuedVariable
		display string
		value   string
	}{
		{NewValued("length", 8, "mm"), "length (mm)", "8mm"},
		{NewValued("hiho", 8, ""), "hiho", "8"},
		{NewValued("gap", 0.5, "um"), "gap (um)", "0.5um"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.display, tt.v.DisplayName())
		assert.Equal(t, tt.value, tt.v.FormattedValue())
	}
}

func TestValued(t *testing.T) {
	v, err := New("x", "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []ValuedVariable{{Name: "x", Value: 1}, {Name: "x", Value: 2}}, v.Valued())
}

func TestErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrEmptyName, ErrInvalidValue))
}

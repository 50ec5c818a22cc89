package project

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

func TestVariationIndex(t *testing.T) {
	idx, err := NewVariationIndex(map[string]string{
		"0":  "length='8mm' $hole='11.015000000000001mm'",
		"1":  "length='9mm' $hole='11.015mm'",
		"10": "length='10mm' $hole='11.015mm'",
		"2":  "length='11mm' $hole='11.015mm'",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())

	snap := variable.MustSnapshot(variable.NewValued("length", 8, "mm"), variable.NewValued("$hole", 11.015, "mm"))
	id, err := idx.Lookup(snap)
	require.NoError(t, err)
	assert.Equal(t, "0", id)

	snaps := idx.Snapshots()
	require.Len(t, snaps, 4)
	lengths := make([]float64, len(snaps))
	for i, s := range snaps {
		v, _ := s.Get("length")
		lengths[i] = v.Value
	}
	assert.Equal(t, []float64{8, 9, 11, 10}, lengths, "ordered by numeric variation id")

	_, err = idx.Lookup(variable.MustSnapshot(variable.NewValued("length", 8, "mm")))
	assert.ErrorIs(t, err, ErrVariationNotFound)
}

func TestVariationIndexCollision(t *testing.T) {
	_, err := NewVariationIndex(map[string]string{
		"0": "a='1mm' b='2mm'",
		"1": "b='2mm' a='1.00000000000001mm'",
	})
	assert.ErrorIs(t, err, ErrVariationCollision)
}

func TestVariationIndexParseError(t *testing.T) {
	_, err := NewVariationIndex(map[string]string{"0": "garbage"})
	assert.ErrorIs(t, err, variable.ErrParseVariation)
}

func TestBuildIndexFromSynthetic(t *testing.T) {
	ctx := context.Background()
	p, err := NewSynthetic(SyntheticOptions{Variables: []variable.ValuedVariable{variable.NewValued("length", 30, "mm")}})
	require.NoError(t, err)

	for _, l := range []float64{30, 32, 30} {
		require.NoError(t, p.SetVariable(ctx, "length", l, "mm"))
		require.NoError(t, p.RunAnalysis(ctx))
	}

	idx, err := BuildIndex(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len(), "re-solving a state replaces its variation")

	id, err := idx.Lookup(variable.MustSnapshot(variable.NewValued("length", 32, "mm")))
	require.NoError(t, err)
	assert.Equal(t, "1", id)
}

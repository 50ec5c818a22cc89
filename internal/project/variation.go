package project

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

// VariationIndex is the inverse of a solver's variation map: it finds the
// variation id holding a given snapshot.
type VariationIndex struct {
	byKey map[string]string
	snaps map[string]variable.Snapshot
	ids   []string
}

// NewVariationIndex parses every variation text. Two ids that parse to the
// same snapshot make the inverse ambiguous and are rejected.
func NewVariationIndex(variations map[string]string) (*VariationIndex, error) {
	idx := &VariationIndex{
		byKey: make(map[string]string, len(variations)),
		snaps: make(map[string]variable.Snapshot, len(variations)),
		ids:   make([]string, 0, len(variations)),
	}
	for id := range variations {
		idx.ids = append(idx.ids, id)
	}
	sortIDs(idx.ids)

	for _, id := range idx.ids {
		snap, err := variable.ParseVariation(variations[id])
		if err != nil {
			return nil, fmt.Errorf("variation %s: %w", id, err)
		}
		if other, dup := idx.byKey[snap.Key()]; dup {
			return nil, fmt.Errorf("%w: variations %s and %s both hold %s", ErrVariationCollision, other, id, snap)
		}
		idx.byKey[snap.Key()] = id
		idx.snaps[id] = snap
	}
	return idx, nil
}

// BuildIndex reads the variations of src and indexes them.
func BuildIndex(ctx context.Context, src VariationSource) (*VariationIndex, error) {
	variations, err := src.Variations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list variations: %w", err)
	}
	return NewVariationIndex(variations)
}

// Lookup returns the variation id of s.
func (idx *VariationIndex) Lookup(s variable.Snapshot) (string, error) {
	id, ok := idx.byKey[s.Key()]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrVariationNotFound, s)
	}
	return id, nil
}

// Snapshot returns the snapshot stored under id.
func (idx *VariationIndex) Snapshot(id string) (variable.Snapshot, bool) {
	s, ok := idx.snaps[id]
	return s, ok
}

// Snapshots lists all indexed snapshots ordered by variation id.
func (idx *VariationIndex) Snapshots() []variable.Snapshot {
	out := make([]variable.Snapshot, len(idx.ids))
	for i, id := range idx.ids {
		out[i] = idx.snaps[id]
	}
	return out
}

func (idx *VariationIndex) Len() int { return len(idx.ids) }

// sortIDs orders numeric ids numerically and everything else lexically after them.
func sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
}

package strategy

import (
	"errors"
	"testing"

	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

func mustVar(t *testing.T, name string, values ...float64) variable.Variable {
	t.Helper()
	v, err := variable.New(name, "", values...)
	if err != nil {
		t.Fatalf("variable.New(%s): %v", name, err)
	}
	return v
}

func pairs(snaps []variable.Snapshot) [][2]float64 {
	out := make([][2]float64, len(snaps))
	for i, s := range snaps {
		out[i] = [2]float64{s.At(0).Value, s.At(1).Value}
	}
	return out
}

func TestProduct(t *testing.T) {
	vars := []variable.Variable{mustVar(t, "a", 1, 2), mustVar(t, "b", 3, 4)}
	snaps, err := Product{}.Snapshots(vars)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}

	want := [][2]float64{{1, 3}, {1, 4}, {2, 3}, {2, 4}}
	got := pairs(snaps)
	if len(got) != len(want) {
		t.Fatalf("expected %d snapshots, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("snapshot %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	for _, s := range snaps {
		if s.At(0).Name != "a" || s.At(1).Name != "b" {
			t.Errorf("declared order not preserved: %s", s)
		}
	}
}

func TestProductCardinality(t *testing.T) {
	vars := []variable.Variable{
		mustVar(t, "a", 1, 2, 3),
		mustVar(t, "b", 1),
		mustVar(t, "c", 1, 2),
		mustVar(t, "d", 1, 2, 3, 4),
	}
	snaps, err := Product{}.Snapshots(vars)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(snaps) != 24 {
		t.Fatalf("expected 24 snapshots, got %d", len(snaps))
	}
	seen := make(map[string]bool)
	for _, s := range snaps {
		if seen[s.Key()] {
			t.Fatalf("duplicate snapshot %s", s)
		}
		seen[s.Key()] = true
	}
	n, err := Count(Product{}, vars)
	if err != nil || n != 24 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestZip(t *testing.T) {
	vars := []variable.Variable{mustVar(t, "a", 1, 2), mustVar(t, "b", 3, 4)}
	snaps, err := Zip{}.Snapshots(vars)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	want := [][2]float64{{1, 3}, {2, 4}}
	got := pairs(snaps)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		vars     []variable.Variable
		want     error
	}{
		{"zip length mismatch", Zip{}, []variable.Variable{mustVar(t, "a", 1, 2), mustVar(t, "b", 3)}, ErrLengthMismatch},
		{"product empty set", Product{}, nil, ErrEmptyVariableSet},
		{"zip empty set", Zip{}, []variable.Variable{}, ErrEmptyVariableSet},
		{"product empty iterable", Product{}, []variable.Variable{mustVar(t, "a", 1), mustVar(t, "b")}, ErrEmptyIterable},
		{"zip empty iterable", Zip{}, []variable.Variable{mustVar(t, "a")}, ErrEmptyIterable},
		{"duplicate", Product{}, []variable.Variable{mustVar(t, "a", 1), mustVar(t, "a", 2)}, ErrDuplicateVariable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snaps, err := tt.strategy.Snapshots(tt.vars)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if snaps != nil {
				t.Errorf("expected no snapshots on error, got %d", len(snaps))
			}
			if _, err := Count(tt.strategy, tt.vars); !errors.Is(err, tt.want) {
				t.Errorf("Count: expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDeterministic(t *testing.T) {
	vars := []variable.Variable{mustVar(t, "x", 0.1, 0.2, 0.3), mustVar(t, "y", 5, 6)}
	for _, s := range []Strategy{Product{}, Zip{}} {
		if s.Name() == NameZip {
			vars = []variable.Variable{mustVar(t, "x", 0.1, 0.2), mustVar(t, "y", 5, 6)}
		}
		first, err := s.Snapshots(vars)
		if err != nil {
			t.Fatalf("%s: %v", s.Name(), err)
		}
		second, _ := s.Snapshots(vars)
		for i := range first {
			if !first[i].Equal(second[i]) {
				t.Errorf("%s: snapshot %d differs between runs", s.Name(), i)
			}
		}
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", NameProduct},
		{"product", NameProduct},
		{"ZIP", NameZip},
	}
	for _, tt := range tests {
		s, err := ByName(tt.in)
		if err != nil {
			t.Fatalf("ByName(%q): %v", tt.in, err)
		}
		if s.Name() != tt.want {
			t.Errorf("ByName(%q) = %s, want %s", tt.in, s.Name(), tt.want)
		}
	}

	if _, err := ByName("random"); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestProductCountOverflow(t *testing.T) {
	seq := func(n int) []float64 {
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = float64(i)
		}
		return vals
	}
	tests := []struct {
		name string
		lens []int
	}{
		{"wraps negative", []int{8192, 8192, 8192, 8192, 2048}},
		{"wraps to zero", []int{8192, 8192, 8192, 8192, 4096}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := make([]variable.Variable, len(tt.lens))
			for i, n := range tt.lens {
				vars[i] = mustVar(t, string(rune('a'+i)), seq(n)...)
			}
			if n, err := Count(Product{}, vars); !errors.Is(err, ErrTooManySnapshots) {
				t.Fatalf("Count: expected ErrTooManySnapshots, got n=%d err=%v", n, err)
			}
			if _, err := (Product{}).Snapshots(vars); !errors.Is(err, ErrTooManySnapshots) {
				t.Fatalf("Snapshots: expected ErrTooManySnapshots, got %v", err)
			}
		})
	}
}

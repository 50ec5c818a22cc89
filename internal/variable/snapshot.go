package variable

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Snapshot is the full parameter state behind one simulation result. It
// behaves as a value: equality ignores ordering, while the declared order is
// kept for display. Snapshots are never mutated after construction.
type Snapshot struct {
	vars []ValuedVariable
	key  string
}

// NewSnapshot builds a Snapshot, rejecting duplicate names.
func NewSnapshot(vars ...ValuedVariable) (Snapshot, error) {
	seen := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		if v.Name == "" {
			return Snapshot{}, ErrEmptyName
		}
		if _, dup := seen[v.Name]; dup {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrDuplicateName, v.Name)
		}
		seen[v.Name] = struct{}{}
	}
	own := make([]ValuedVariable, len(vars))
	copy(own, vars)
	return Snapshot{vars: own, key: canonicalKey(own)}, nil
}

// MustSnapshot is NewSnapshot for literals known to be valid.
func MustSnapshot(vars ...ValuedVariable) Snapshot {
	s, err := NewSnapshot(vars...)
	if err != nil {
		panic(err)
	}
	return s
}

func canonicalKey(vars []ValuedVariable) string {
	sorted := make([]ValuedVariable, len(vars))
	copy(sorted, vars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	for i, v := range sorted {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(v.Name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(v.Value, 'g', -1, 64))
		b.WriteByte('[')
		b.WriteString(v.Units)
		b.WriteByte(']')
	}
	return b.String()
}

// Key is the content-addressed identity of the snapshot: its variables
// sorted by name. Equal snapshots have equal keys.
func (s Snapshot) Key() string { return s.key }

// Equal reports set equality of the two snapshots.
func (s Snapshot) Equal(o Snapshot) bool { return s.key == o.key }

func (s Snapshot) Len() int { return len(s.vars) }

func (s Snapshot) IsEmpty() bool { return len(s.vars) == 0 }

// At returns the i-th variable in declared order.
func (s Snapshot) At(i int) ValuedVariable { return s.vars[i] }

// Vars returns a copy of the variables in declared order.
func (s Snapshot) Vars() []ValuedVariable {
	out := make([]ValuedVariable, len(s.vars))
	copy(out, s.vars)
	return out
}

// Get looks a variable up by name.
func (s Snapshot) Get(name string) (ValuedVariable, bool) {
	for _, v := range s.vars {
		if v.Name == name {
			return v, true
		}
	}
	return ValuedVariable{}, false
}

// Names returns the variable names, sorted.
func (s Snapshot) Names() []string {
	names := make([]string, len(s.vars))
	for i, v := range s.vars {
		names[i] = v.Name
	}
	sort.Strings(names)
	return names
}

// Sorted returns a copy ordered by name.
func (s Snapshot) Sorted() Snapshot {
	vars := s.Vars()
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return Snapshot{vars: vars, key: s.key}
}

// Select keeps only the named variables, preserving order.
func (s Snapshot) Select(names map[string]bool) Snapshot {
	out := make([]ValuedVariable, 0, len(s.vars))
	for _, v := range s.vars {
		if names[v.Name] {
			out = append(out, v)
		}
	}
	return Snapshot{vars: out, key: canonicalKey(out)}
}

// Union combines two disjoint-or-agreeing snapshots. A name present in both
// with different values or units is an error.
func (s Snapshot) Union(o Snapshot) (Snapshot, error) {
	out := s.Vars()
	for _, v := range o.vars {
		existing, ok := s.Get(v.Name)
		if !ok {
			out = append(out, v)
			continue
		}
		if existing != v {
			return Snapshot{}, fmt.Errorf("%w: %s (%s vs %s)", ErrConflictingValue, v.Name, existing.FormattedValue(), v.FormattedValue())
		}
	}
	return Snapshot{vars: out, key: canonicalKey(out)}, nil
}

// Override returns s with every variable of o applied on top: names in o
// replace those in s, new names are appended.
func (s Snapshot) Override(o Snapshot) Snapshot {
	out := s.Vars()
	for _, v := range o.vars {
		replaced := false
		for i := range out {
			if out[i].Name == v.Name {
				out[i] = v
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, v)
		}
	}
	return Snapshot{vars: out, key: canonicalKey(out)}
}

// Columns maps display names ("name (units)") to values.
func (s Snapshot) Columns() map[string]float64 {
	out := make(map[string]float64, len(s.vars))
	for _, v := range s.vars {
		out[v.DisplayName()] = v.Value
	}
	return out
}

func (s Snapshot) String() string {
	parts := make([]string, len(s.vars))
	for i, v := range s.vars {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.vars == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.vars)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var vars []ValuedVariable
	if err := json.Unmarshal(data, &vars); err != nil {
		return err
	}
	parsed, err := NewSnapshot(vars...)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

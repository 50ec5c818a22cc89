// Package strategy enumerates the snapshots a sweep visits.
//
// Strategies are pure: the same variables always yield the same snapshots in
// the same order, and all validation happens before anything is emitted.
package strategy

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

var (
	ErrEmptyVariableSet  = errors.New("strategy requires at least one variable")
	ErrEmptyIterable     = errors.New("variable has no values")
	ErrLengthMismatch    = errors.New("variables have different numbers of values")
	ErrDuplicateVariable = errors.New("duplicate variable name")
	ErrUnknownStrategy   = errors.New("unknown strategy")
	ErrTooManySnapshots  = errors.New("snapshot count overflows int")
)

// Strategy turns an ordered list of variables into an ordered list of snapshots.
type Strategy interface {
	// Snapshots enumerates every parameter state, each snapshot keeping the
	// declared variable order.
	Snapshots(vars []variable.Variable) ([]variable.Snapshot, error)
	// Name returns the name of the strategy
	Name() string
}

const (
	NameProduct = "product"
	NameZip     = "zip"
)

// ByName returns the strategy registered under name. An empty name selects
// the product strategy.
func ByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameProduct:
		return Product{}, nil
	case NameZip:
		return Zip{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownStrategy, name, strings.Join(Names(), ", "))
	}
}

// Names lists the available strategies.
func Names() []string {
	names := []string{NameProduct, NameZip}
	sort.Strings(names)
	return names
}

// validate checks the preconditions shared by every strategy.
func validate(vars []variable.Variable) error {
	if len(vars) == 0 {
		return ErrEmptyVariableSet
	}
	seen := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		if _, dup := seen[v.Name()]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateVariable, v.Name())
		}
		seen[v.Name()] = struct{}{}
		if v.Len() == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyIterable, v.Name())
		}
	}
	return nil
}

// Count returns the number of snapshots s would emit for vars without
// building them.
func Count(s Strategy, vars []variable.Variable) (int, error) {
	if err := validate(vars); err != nil {
		return 0, err
	}
	switch s.(type) {
	case Product:
		return productCount(vars)
	case Zip:
		if err := sameLength(vars); err != nil {
			return 0, err
		}
		return vars[0].Len(), nil
	default:
		snaps, err := s.Snapshots(vars)
		return len(snaps), err
	}
}

// productCount multiplies the value counts of vars. Callers must validate
// vars first so every count is positive.
func productCount(vars []variable.Variable) (int, error) {
	n := 1
	for _, v := range vars {
		if n > math.MaxInt/v.Len() {
			return 0, fmt.Errorf("%w: at variable %s", ErrTooManySnapshots, v.Name())
		}
		n *= v.Len()
	}
	return n, nil
}

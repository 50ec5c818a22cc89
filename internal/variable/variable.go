package variable

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/sweep-core/pkg/utils"
)

// RoundingDigits is the number of decimals every ValuedVariable value is
// rounded to. Solver text such as 11.015000000000001mm and a sweep value of
// 11.015 must land on the same snapshot key.
const RoundingDigits = 10

// ProjectPrefix marks project-level (as opposed to design-level) variables.
const ProjectPrefix = "$"

var (
	ErrEmptyName        = errors.New("variable name cannot be empty")
	ErrInvalidValue     = errors.New("variable value must be finite")
	ErrDuplicateName    = errors.New("duplicate variable name in snapshot")
	ErrConflictingValue = errors.New("conflicting values for variable")
	ErrParseVariation   = errors.New("cannot parse variation")
)

// ValuedVariable is a design parameter pinned to exactly one value. Two
// ValuedVariables are equal iff name, units and value are equal, so the
// struct is directly comparable.
type ValuedVariable struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Units string  `json:"units,omitempty"`
}

// NewValued returns a ValuedVariable with its value rounded to RoundingDigits.
func NewValued(name string, value float64, units string) ValuedVariable {
	return ValuedVariable{
		Name:  name,
		Value: utils.RoundDecimals(value, RoundingDigits),
		Units: units,
	}
}

// DisplayName is the column label used in exports, e.g. "length (mm)".
func (v ValuedVariable) DisplayName() string {
	if v.Units == "" {
		return v.Name
	}
	return fmt.Sprintf("%s (%s)", v.Name, v.Units)
}

// FormattedValue renders the value the way the external tool expects it,
// e.g. "8mm".
func (v ValuedVariable) FormattedValue() string {
	return FormatValue(v.Value, v.Units)
}

// IsProjectLevel reports whether the variable lives at project scope.
func (v ValuedVariable) IsProjectLevel() bool {
	return IsProjectLevel(v.Name)
}

func (v ValuedVariable) String() string {
	return v.Name + "=" + v.FormattedValue()
}

// FormatValue appends units to a numeric value.
func FormatValue(value float64, units string) string {
	return strconv.FormatFloat(value, 'g', -1, 64) + units
}

// IsProjectLevel reports whether name refers to a project-level variable.
func IsProjectLevel(name string) bool {
	return strings.HasPrefix(name, ProjectPrefix)
}

// Variable is a sweepable design parameter: a name, its units and the
// ordered values it takes. It is immutable once created.
type Variable struct {
	name   string
	units  string
	values []float64
}

// New creates a Variable. An empty value list is accepted here and rejected
// by the strategies at enumeration time.
func New(name, units string, values ...float64) (Variable, error) {
	if strings.TrimSpace(name) == "" {
		return Variable{}, ErrEmptyName
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Variable{}, fmt.Errorf("%w: %s[%d] = %v", ErrInvalidValue, name, i, v)
		}
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	return Variable{name: name, units: units, values: vals}, nil
}

// Fixed creates a single-valued Variable.
func Fixed(name, units string, value float64) (Variable, error) {
	return New(name, units, value)
}

func (v Variable) Name() string  { return v.name }
func (v Variable) Units() string { return v.units }
func (v Variable) Len() int      { return len(v.values) }

// Values returns a copy of the variable's values.
func (v Variable) Values() []float64 {
	out := make([]float64, len(v.values))
	copy(out, v.values)
	return out
}

// At returns the i-th value pinned as a ValuedVariable.
func (v Variable) At(i int) ValuedVariable {
	return v.Generate(v.values[i])
}

// Generate pins value to this variable's name and units.
func (v Variable) Generate(value float64) ValuedVariable {
	return NewValued(v.name, value, v.units)
}

// Valued returns one ValuedVariable per value, in declared order.
func (v Variable) Valued() []ValuedVariable {
	out := make([]ValuedVariable, len(v.values))
	for i, value := range v.values {
		out[i] = v.Generate(value)
	}
	return out
}

func (v Variable) String() string {
	return fmt.Sprintf("%s%v%s", v.name, v.values, v.units)
}

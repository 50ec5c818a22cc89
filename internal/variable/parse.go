package variable

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	namePattern  = `[\w$]+`
	valuePattern = `[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?`
	unitPattern  = `\w*`
)

var (
	// name='<value><unit>' as printed in the solver's variation strings.
	variationPattern = regexp.MustCompile(`(` + namePattern + `)='(` + valuePattern + `)(` + unitPattern + `)'`)
	quantityPattern  = regexp.MustCompile(`^\s*(` + valuePattern + `)\s*(` + unitPattern + `)\s*$`)
)

// ParseQuantity splits "11.015mm" into 11.015 and "mm".
func ParseQuantity(text string) (float64, string, error) {
	m := quantityPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, "", fmt.Errorf("%w: quantity %q", ErrParseVariation, text)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: quantity %q: %v", ErrParseVariation, text, err)
	}
	return value, m[2], nil
}

// ParseVariation turns a solver variation string such as
//
//	length='8mm' $hole='11.015000000000001mm'
//
// into a name-sorted Snapshot with rounded values.
func ParseVariation(text string) (Snapshot, error) {
	spans := variationPattern.FindAllStringSubmatchIndex(text, -1)
	vars := make([]ValuedVariable, 0, len(spans))
	end := 0
	for _, sp := range spans {
		// only whitespace may separate assignments
		if gap := text[end:sp[0]]; strings.TrimSpace(gap) != "" {
			return Snapshot{}, fmt.Errorf("%w: unexpected %q in %q", ErrParseVariation, strings.TrimSpace(gap), text)
		}
		end = sp[1]
		name, number, units := text[sp[2]:sp[3]], text[sp[4]:sp[5]], text[sp[6]:sp[7]]
		value, err := strconv.ParseFloat(number, 64)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrParseVariation, name, err)
		}
		vars = append(vars, NewValued(name, value, units))
	}
	if rest := strings.TrimSpace(text[end:]); rest != "" {
		return Snapshot{}, fmt.Errorf("%w: unexpected %q in %q", ErrParseVariation, rest, text)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return NewSnapshot(vars...)
}

// FromQuantities builds a name-sorted Snapshot from name -> "value+units"
// pairs, the form in which the solver reports its current variables.
func FromQuantities(quantities map[string]string) (Snapshot, error) {
	vars := make([]ValuedVariable, 0, len(quantities))
	for name, text := range quantities {
		value, units, err := ParseQuantity(text)
		if err != nil {
			return Snapshot{}, fmt.Errorf("variable %s: %w", name, err)
		}
		vars = append(vars, NewValued(name, value, units))
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return NewSnapshot(vars...)
}

// FormatVariation is the inverse of ParseVariation.
func FormatVariation(s Snapshot) string {
	sorted := s.Sorted()
	parts := make([]string, sorted.Len())
	for i := 0; i < sorted.Len(); i++ {
		v := sorted.At(i)
		parts[i] = fmt.Sprintf("%s='%s'", v.Name, v.FormattedValue())
	}
	return strings.Join(parts, " ")
}

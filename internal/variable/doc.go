// Package variable provides the parameter model used to identify simulation results.
//
// The external solver numbers its solved variations itself, and those numbers
// shift as solutions are added or deleted. Results are therefore keyed by the
// exact parameter state that produced them instead.
//
// Main Types:
//   - Variable: a named, unit-tagged parameter with an ordered list of values to sweep
//   - ValuedVariable: a parameter pinned to one value; comparable by name, units and value
//   - Snapshot: an immutable set of ValuedVariables with a content-addressed Key
//
// Usage:
//
//	length, _ := variable.New("length", "mm", 10, 12, 14)
//	snap := variable.MustSnapshot(length.At(0), variable.NewValued("$hole", 1.5, "mm"))
//
//	// Snapshots parsed back from the solver compare equal regardless of order
//	parsed, _ := variable.ParseVariation("$hole='1.5mm' length='10mm'")
//	parsed.Equal(snap) // true
package variable

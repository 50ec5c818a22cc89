package utils

import (
	"fmt"
	"math"
	"strconv"
)

// MaxRangeValues bounds Range and Linspace output.
const MaxRangeValues = 10000

// MinInt returns the minimum of two integers
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// RoundDecimals rounds value to the given number of decimal places.
// The result goes through the decimal text form so that values such as
// 11.015000000000001 collapse onto 11.015. Negative zero becomes zero.
func RoundDecimals(value float64, decimals int) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(value, 'f', decimals, 64), 64)
	if err != nil {
		return value
	}
	if rounded == 0 {
		return 0
	}
	return rounded
}

// Range generates values from start to end (inclusive) stepping by step.
// Each value is computed from its index to avoid accumulating error.
func Range(start, end, step float64) ([]float64, error) {
	if step <= 0 || math.IsNaN(step) {
		return nil, fmt.Errorf("step must be positive, got %v", step)
	}
	if start > end {
		return nil, fmt.Errorf("start %v is greater than end %v", start, end)
	}
	count := math.Floor((end-start)/step+1e-9) + 1
	if count > MaxRangeValues {
		return nil, fmt.Errorf("range would generate %.0f values (max %d)", count, MaxRangeValues)
	}
	out := make([]float64, 0, int(count))
	for i := 0; i < int(count); i++ {
		out = append(out, RoundDecimals(start+float64(i)*step, 10))
	}
	return out, nil
}

// Linspace generates num evenly spaced values over [start, end].
func Linspace(start, end float64, num int) ([]float64, error) {
	if num <= 0 {
		return nil, fmt.Errorf("num must be positive, got %d", num)
	}
	if num > MaxRangeValues {
		return nil, fmt.Errorf("linspace would generate %d values (max %d)", num, MaxRangeValues)
	}
	if num == 1 {
		return []float64{start}, nil
	}
	out := make([]float64, num)
	delta := (end - start) / float64(num-1)
	for i := 0; i < num-1; i++ {
		out[i] = RoundDecimals(start+float64(i)*delta, 10)
	}
	out[num-1] = end
	return out, nil
}

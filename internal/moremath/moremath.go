// Package moremath holds the float min/max semantics the standard library's
// math.Min/math.Max do not give: NaN must propagate through either operand,
// even when the other operand is an infinity (spec.md §4.2 "min, max" under
// Float f32/f64; Go's math.Min/math.Max return the infinity on this exact
// edge, while IEEE-754-2019 minimum/maximum return NaN, as these do).
package moremath

import "math"

// MinPropagateNaN returns the smaller of x and y, except that NaN in either
// operand makes the result NaN even when the other operand is -Inf.
func MinPropagateNaN(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, -1) || math.IsInf(y, -1):
		return math.Inf(-1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return x
		}
		return y
	}
	if x < y {
		return x
	}
	return y
}

// MaxPropagateNaN returns the larger of x and y, except that NaN in either
// operand makes the result NaN even when the other operand is +Inf.
func MaxPropagateNaN(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, 1) || math.IsInf(y, 1):
		return math.Inf(1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return y
		}
		return x
	}
	if x > y {
		return x
	}
	return y
}

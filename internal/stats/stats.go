// Package stats holds small numeric helpers shared by the readiness engine.
package stats

import "math"

// Average returns the arithmetic mean of xs. ok is false for an empty slice.
func Average(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs)), true
}

// StdDev returns the population standard deviation of xs.
// Fewer than two values is insufficient data, not zero variance.
func StdDev(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	mean, _ := Average(xs)
	sumSq := 0.0
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs))), true
}

// Min returns the smallest value of xs.
func Min(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m, true
}

// Max returns the largest value of xs.
func Max(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m, true
}

// Present drops nil and non-finite entries.
func Present(ptrs []*float64) []float64 {
	out := make([]float64, 0, len(ptrs))
	for _, p := range ptrs {
		if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
			continue
		}
		out = append(out, *p)
	}
	return out
}

// Positive drops nil, non-finite and non-positive entries.
func Positive(ptrs []*float64) []float64 {
	out := make([]float64, 0, len(ptrs))
	for _, v := range Present(ptrs) {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}

// Ptr returns a pointer to v when ok, nil otherwise.
func Ptr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

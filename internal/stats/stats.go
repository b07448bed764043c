// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Median returns the middle value of the sorted input (average of the two
// middle values for even counts), or 0 for an empty slice. The input slice
// is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// TrimmedMean returns the mean after discarding fraction of the values from
// each end of the sorted input. A trim that would discard everything falls
// back to the plain mean. The input slice is not modified.
func TrimmedMean(values []float64, fraction float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	trim := int(float64(n) * fraction)
	if 2*trim >= n {
		return Mean(values)
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Mean(sorted[trim:n-trim], nil)
}

// StdDev returns the sample standard deviation (n−1 divisor), or 0 with
// fewer than two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// RMS returns the root mean square of values, or 0 for an empty slice.
func RMS(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(values)))
}

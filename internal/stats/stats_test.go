package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)
}

func TestMedian(t *testing.T) {
	t.Parallel()

	t.Run("odd count", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 12.0, Median([]float64{14, 10, 12}))
	})

	t.Run("even count averages the middle pair", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 2.5, Median([]float64{4, 1, 3, 2}), 1e-12)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, Median(nil))
	})

	t.Run("input not mutated", func(t *testing.T) {
		t.Parallel()
		in := []float64{3, 1, 2}
		Median(in)
		assert.Equal(t, []float64{3, 1, 2}, in)
	})
}

func TestTrimmedMean(t *testing.T) {
	t.Parallel()

	t.Run("discards the tails", func(t *testing.T) {
		t.Parallel()
		// 10 values, 10% trim drops one from each end.
		values := []float64{100, 1, 5, 5, 5, 5, 5, 5, 5, -50}
		assert.InDelta(t, Mean([]float64{1, 5, 5, 5, 5, 5, 5, 5}), TrimmedMean(values, 0.10), 1e-12)
	})

	t.Run("small input falls back to plain mean", func(t *testing.T) {
		t.Parallel()
		values := []float64{1, 2}
		assert.InDelta(t, 1.5, TrimmedMean(values, 0.5), 1e-12)
	})
}

func TestStdDev(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, StdDev([]float64{5}))
	assert.InDelta(t, 1.0, StdDev([]float64{11, 12, 13}), 1e-12)
}

func TestRMS(t *testing.T) {
	t.Parallel()

	t.Run("empty returns exactly zero", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, RMS(nil))
		assert.Equal(t, 0.0, RMS([]float64{}))
	})

	t.Run("mixed signs", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 2.0, RMS([]float64{2, -2}), 1e-12)
		assert.InDelta(t, math.Sqrt(14.0/3.0), RMS([]float64{1, 2, 3}), 1e-12)
	})
}

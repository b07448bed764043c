package session

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTareAdd(t *testing.T) {
	t.Parallel()

	t.Run("rejects NaN", func(t *testing.T) {
		t.Parallel()
		tare := NewTare()
		assert.Error(t, tare.Add(math.NaN(), 0))
		assert.Equal(t, 0, tare.Count())
	})

	t.Run("rejects negative readings", func(t *testing.T) {
		t.Parallel()
		tare := NewTare()
		assert.Error(t, tare.Add(-0.5, 0))
		assert.Equal(t, 0, tare.Count())
	})

	t.Run("accepts zero", func(t *testing.T) {
		t.Parallel()
		tare := NewTare()
		require.NoError(t, tare.Add(0, 0))
		assert.Equal(t, 1, tare.Count())
	})
}

func TestTareEstimate(t *testing.T) {
	t.Parallel()

	t.Run("no samples yields a zero estimate", func(t *testing.T) {
		t.Parallel()
		tare := NewTare()
		est := tare.Estimate()
		assert.Equal(t, 0, est.Count)
		assert.Equal(t, 0.0, est.BiasMedian)
		assert.Equal(t, 0.0, est.Uncertainty95)
	})

	t.Run("single sample has zero uncertainty", func(t *testing.T) {
		t.Parallel()
		tare := NewTare()
		require.NoError(t, tare.Add(10, 0))

		est := tare.Estimate()
		assert.Equal(t, 1, est.Count)
		assert.Equal(t, 10.0, est.BiasMedian)
		assert.Equal(t, 0.0, est.Uncertainty95)
		assert.False(t, math.IsNaN(est.Sigma))
	})

	t.Run("half-range estimator", func(t *testing.T) {
		t.Parallel()
		tare := NewTare()
		for i, v := range []float64{10, 12, 14} {
			require.NoError(t, tare.Add(v, int64(i)))
		}

		est := tare.Estimate()
		assert.Equal(t, 3, est.Count)
		assert.Equal(t, 12.0, est.BiasMedian)
		assert.Equal(t, 2.0, est.Uncertainty95) // (14−10)/2
		assert.Equal(t, 1.0, est.Sigma)
		assert.Equal(t, "samples", est.Source)
	})

	t.Run("reset clears the sample set", func(t *testing.T) {
		t.Parallel()
		tare := NewTare()
		require.NoError(t, tare.Add(5, 0))
		tare.Reset()
		assert.Equal(t, 0, tare.Estimate().Count)
	})
}

func TestUserTare(t *testing.T) {
	t.Parallel()

	est := UserTare(7, 3)
	assert.Equal(t, "user", est.Source)
	assert.Equal(t, 7.0, est.BiasMedian)
	assert.Equal(t, 3.0, est.Uncertainty95)
	assert.Equal(t, 1.5, est.Sigma)
}

package session

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("idle session rejects measurements", func(t *testing.T) {
		t.Parallel()
		m := NewManual()
		_, err := m.AddMeasurement(100, 0)
		assert.Error(t, err)
		assert.Empty(t, m.Measurements())
	})

	t.Run("bias is frozen at start", func(t *testing.T) {
		t.Parallel()
		m := NewManual()
		m.Start(5, 2)
		require.True(t, m.Active())

		meas, err := m.AddMeasurement(100, 1000)
		require.NoError(t, err)
		assert.Equal(t, 95.0, meas.Corrected)
		assert.Equal(t, 5.0, meas.Bias)
		assert.Equal(t, 2.0, meas.TareUncertainty95)
	})

	t.Run("restart clears previous measurements", func(t *testing.T) {
		t.Parallel()
		m := NewManual()
		m.Start(0, 0)
		_, err := m.AddMeasurement(50, 0)
		require.NoError(t, err)
		m.Stop()

		m.Start(1, 0)
		assert.Empty(t, m.Measurements())
		assert.Equal(t, 1.0, m.Bias())
	})

	t.Run("measurements survive stop", func(t *testing.T) {
		t.Parallel()
		m := NewManual()
		m.Start(0, 0)
		_, err := m.AddMeasurement(50, 0)
		require.NoError(t, err)
		m.Stop()

		assert.False(t, m.Active())
		assert.Len(t, m.Measurements(), 1)
	})
}

func TestManualAddMeasurementValidation(t *testing.T) {
	t.Parallel()

	m := NewManual()
	m.Start(0, 0)

	_, err := m.AddMeasurement(math.NaN(), 0)
	assert.Error(t, err)
	_, err = m.AddMeasurement(0, 0)
	assert.Error(t, err)
	_, err = m.AddMeasurement(-3, 0)
	assert.Error(t, err)
	assert.Empty(t, m.Measurements())
}

func TestManualRemoveMeasurement(t *testing.T) {
	t.Parallel()

	m := NewManual()
	m.Start(0, 0)
	for _, r := range []float64{10, 20, 30} {
		_, err := m.AddMeasurement(r, 0)
		require.NoError(t, err)
	}

	m.RemoveMeasurement(1)
	got := m.Measurements()
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[0].Reading)
	assert.Equal(t, 30.0, got[1].Reading)

	// Out of bounds is a no-op.
	m.RemoveMeasurement(-1)
	m.RemoveMeasurement(5)
	assert.Len(t, m.Measurements(), 2)
}

func TestManualMeasurementsReturnsCopy(t *testing.T) {
	t.Parallel()

	m := NewManual()
	m.Start(0, 0)
	_, err := m.AddMeasurement(10, 0)
	require.NoError(t, err)

	got := m.Measurements()
	got[0].Reading = 999
	assert.Equal(t, 10.0, m.Measurements()[0].Reading)
}

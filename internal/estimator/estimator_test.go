package estimator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/marine_scale/internal/imu"
	"github.com/relabs-tech/marine_scale/internal/vecmath"
)

func sampleAt(tsMillis int64, accel vecmath.Vector3) imu.RawSample {
	return imu.RawSample{
		Accel:          &accel,
		IntervalMillis: 10,
		TimestampMS:    tsMillis,
	}
}

func TestWindowCapacitySizing(t *testing.T) {
	t.Parallel()

	// Capacity covers the window duration at the assumed rate ceiling,
	// including fractional and sub-second windows.
	cfg := DefaultConfig()
	cfg.LiveWindowMillis = 7500
	assert.Equal(t, 1500, New(cfg).azWin.Cap())

	cfg.LiveWindowMillis = 500
	assert.Equal(t, 100, New(cfg).azWin.Cap())
}

func TestProcessSilentSensor(t *testing.T) {
	t.Parallel()

	e := New(DefaultConfig())
	_, _, ok := e.Process(imu.RawSample{TimestampMS: 100})
	assert.False(t, ok, "nil accel must be a no-op")

	// The silent sample must not have consumed first-sample seeding.
	_, _, ok = e.Process(sampleAt(110, vecmath.Vector3{Z: 9.8}))
	assert.False(t, ok, "first valid sample only seeds gravity")
	_, _, ok = e.Process(sampleAt(120, vecmath.Vector3{Z: 9.8}))
	assert.True(t, ok)
}

func TestFirstSampleSeedsGravity(t *testing.T) {
	t.Parallel()

	e := New(DefaultConfig())
	_, _, ok := e.Process(sampleAt(0, vecmath.Vector3{X: 1, Y: 2, Z: 9}))
	require.False(t, ok)

	// Second sample equal to the seed: gravity already equals the input,
	// so the linear acceleration is zero.
	ps, _, ok := e.Process(sampleAt(10, vecmath.Vector3{X: 1, Y: 2, Z: 9}))
	require.True(t, ok)
	assert.InDelta(t, 0, ps.AZ, 1e-12)
	assert.InDelta(t, 0, vecmath.Magnitude(ps.LinearAccel), 1e-12)
}

func TestGravityConvergesToConstantInput(t *testing.T) {
	t.Parallel()

	e := New(DefaultConfig())
	// Seed away from the target direction, then hold the input constant.
	_, _, ok := e.Process(sampleAt(0, vecmath.Vector3{Z: 8.0}))
	require.False(t, ok)

	target := 9.81
	prevErr := math.Inf(1)
	var lastPS ProcessedSample
	for i := 1; i <= 400; i++ {
		ps, _, ok := e.Process(sampleAt(int64(i*10), vecmath.Vector3{Z: target}))
		require.True(t, ok)
		err := math.Abs(ps.Gravity.Z - target)
		assert.Less(t, err, prevErr, "gravity error must shrink monotonically (step %d)", i)
		prevErr = err
		lastPS = ps
	}

	assert.InDelta(t, target, lastPS.Gravity.Z, 1e-3)
	assert.InDelta(t, 0, lastPS.AZ, 1e-3, "a_z approaches 0 once converged")
}

func TestRollPitchFromGravity(t *testing.T) {
	t.Parallel()

	t.Run("level platform", func(t *testing.T) {
		t.Parallel()
		e := New(DefaultConfig())
		e.Process(sampleAt(0, vecmath.Vector3{Z: 9.81}))
		ps, _, ok := e.Process(sampleAt(10, vecmath.Vector3{Z: 9.81}))
		require.True(t, ok)
		assert.InDelta(t, 0, ps.Roll, 1e-9)
		assert.InDelta(t, 0, ps.Pitch, 1e-9)
	})

	t.Run("gravity along +Y reads 90 degrees roll", func(t *testing.T) {
		t.Parallel()
		e := New(DefaultConfig())
		e.Process(sampleAt(0, vecmath.Vector3{Y: 9.81}))
		ps, _, ok := e.Process(sampleAt(10, vecmath.Vector3{Y: 9.81}))
		require.True(t, ok)
		assert.InDelta(t, 90, ps.Roll, 1e-9)
		assert.InDelta(t, 0, ps.Pitch, 1e-9)
	})

	t.Run("gravity along -X reads 90 degrees pitch", func(t *testing.T) {
		t.Parallel()
		e := New(DefaultConfig())
		e.Process(sampleAt(0, vecmath.Vector3{X: -9.81}))
		ps, _, ok := e.Process(sampleAt(10, vecmath.Vector3{X: -9.81}))
		require.True(t, ok)
		assert.InDelta(t, 90, ps.Pitch, 1e-9)
	})
}

func TestStabilityGate(t *testing.T) {
	t.Parallel()

	t.Run("still platform is stable with high confidence", func(t *testing.T) {
		t.Parallel()
		e := New(DefaultConfig())
		e.Process(sampleAt(0, vecmath.Vector3{Z: 9.81}))
		var lm LiveMetrics
		for i := 1; i <= 50; i++ {
			_, lm, _ = e.Process(sampleAt(int64(i*10), vecmath.Vector3{Z: 9.81}))
		}
		assert.True(t, lm.Stable)
		assert.Greater(t, lm.Confidence, 0.9)
	})

	t.Run("heave breaks the gate", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		e := New(cfg)
		e.Process(sampleAt(0, vecmath.Vector3{Z: 9.81}))
		var lm LiveMetrics
		for i := 1; i <= 200; i++ {
			// Strong vertical oscillation well above the a_z threshold.
			z := 9.81 + 3.0*math.Sin(float64(i)*0.8)
			_, lm, _ = e.Process(sampleAt(int64(i*10), vecmath.Vector3{Z: z}))
		}
		assert.False(t, lm.Stable)
		assert.Less(t, lm.Confidence, 0.9)
	})
}

func TestSampleRateEstimate(t *testing.T) {
	t.Parallel()

	e := New(DefaultConfig())
	assert.Equal(t, 0.0, e.SampleRateHz(), "rate undefined before any interval")

	e.Process(sampleAt(0, vecmath.Vector3{Z: 9.81}))
	for i := 1; i <= 20; i++ {
		e.Process(sampleAt(int64(i*10), vecmath.Vector3{Z: 9.81}))
	}
	assert.InDelta(t, 100.0, e.SampleRateHz(), 1e-9, "10ms intervals are 100 Hz")
}

func TestReset(t *testing.T) {
	t.Parallel()

	e := New(DefaultConfig())
	e.Process(sampleAt(0, vecmath.Vector3{Z: 9.81}))
	_, _, ok := e.Process(sampleAt(10, vecmath.Vector3{Z: 9.81}))
	require.True(t, ok)

	e.Reset()
	assert.Equal(t, 0.0, e.SampleRateHz())

	// First sample after reset seeds again instead of emitting.
	_, _, ok = e.Process(sampleAt(20, vecmath.Vector3{Z: 9.81}))
	assert.False(t, ok)
}

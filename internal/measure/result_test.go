package measure

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/marine_scale/internal/session"
)

func manualSet(tareUnc95 float64, corrected ...float64) []session.Measurement {
	out := make([]session.Measurement, len(corrected))
	for i, v := range corrected {
		out[i] = session.Measurement{
			TimestampMS:       int64(i) * 1000,
			Reading:           v,
			Corrected:         v,
			TareUncertainty95: tareUnc95,
		}
	}
	return out
}

func continuousData(azRMS, percentGood float64, samples ...session.Sample) session.Data {
	return session.Data{
		StartMS:     0,
		StopMS:      int64(len(samples)) * 200,
		Samples:     samples,
		AZRMS:       azRMS,
		PercentGood: percentGood,
	}
}

func TestManualAggregate(t *testing.T) {
	t.Parallel()

	t.Run("empty session", func(t *testing.T) {
		t.Parallel()
		res := NewAggregator(DefaultConfig()).Manual(nil)
		assert.Equal(t, 0, res.Count)
		assert.Equal(t, 2.0, res.KFactor)
		assert.False(t, res.Reliable)
		assert.NotEmpty(t, res.Notes)
	})

	t.Run("single measurement is tare-bounded", func(t *testing.T) {
		t.Parallel()
		res := NewAggregator(DefaultConfig()).Manual(manualSet(2, 100))

		assert.Equal(t, 1, res.CountUsed)
		assert.Equal(t, 100.0, res.FixedValue)
		assert.Equal(t, 0.0, res.StdErr)
		assert.Equal(t, 1.0, res.TareSigma)
		assert.Equal(t, 1.0, res.SigmaTotal)
		assert.Equal(t, 2.0, res.KFactor)
		assert.Equal(t, 2.0, res.Band95)
		assert.Equal(t, 0.3, res.Confidence)
		assert.False(t, res.Reliable)
	})

	t.Run("gross outlier falls back to the median", func(t *testing.T) {
		t.Parallel()
		res := NewAggregator(DefaultConfig()).Manual(manualSet(0, 95, 96, 94, 97, 999))

		// Five values do not reach the 10% trim depth, so the trimmed mean
		// still carries the outlier and disagrees with the median by far
		// more than 10%.
		assert.Equal(t, 96.0, res.FixedValue)
		assert.Contains(t, res.Notes, "trimmed mean disagreed with median; using median")
		assert.InDelta(t, 276.2, res.Mean, 1e-9)
		assert.Equal(t, 5, res.CountUsed)
		assert.InDelta(t, 2.776, res.KFactor, 1e-9)
	})

	t.Run("ten clean measurements", func(t *testing.T) {
		t.Parallel()
		values := []float64{500, 501, 499, 502, 498, 500, 501, 499, 500, 500}
		res := NewAggregator(DefaultConfig()).Manual(manualSet(1, values...))

		// 10% trim drops one value from each end.
		assert.Equal(t, 10, res.Count)
		assert.Equal(t, 8, res.CountUsed)
		assert.InDelta(t, 500.0, res.FixedValue, 0.5)
		assert.InDelta(t, 2.365, res.KFactor, 1e-9) // df = 7
		assert.Equal(t, 0.85, res.Confidence)
		assert.True(t, res.Reliable)
		assert.Equal(t, 0.5, res.TareSigma)
		assert.InDelta(t, res.KFactor*res.SigmaTotal, res.Band95, 1e-12)
		assert.True(t, res.SigmaTotal >= res.TareSigma)
	})

	t.Run("tare sigma floors the band", func(t *testing.T) {
		t.Parallel()
		// Identical readings: StdErr is zero, so the whole band comes from
		// the locked tare uncertainty.
		res := NewAggregator(DefaultConfig()).Manual(manualSet(4, 100, 100, 100))
		assert.Equal(t, 0.0, res.StdErr)
		assert.Equal(t, 2.0, res.TareSigma)
		assert.Equal(t, 2.0, res.SigmaTotal)
	})
}

func TestContinuousAggregate(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(DefaultConfig())

	goodSample := func(ts int64, reading, az float64) session.Sample {
		return session.Sample{TimestampMS: ts, ScaleReading: reading, AZ: az, Good: true}
	}

	t.Run("empty session", func(t *testing.T) {
		t.Parallel()
		res := agg.Continuous(session.Data{}, 0, false)
		assert.Equal(t, 0, res.Count)
		assert.False(t, res.Reliable)
		assert.Contains(t, res.Notes, "no usable scale readings in session")
		assert.False(t, math.IsNaN(res.FixedValue))
	})

	t.Run("steady platform", func(t *testing.T) {
		t.Parallel()
		var samples []session.Sample
		for i := 0; i < 10; i++ {
			samples = append(samples, goodSample(int64(i)*200, 505, 0))
		}
		res := agg.Continuous(continuousData(0.05, 100, samples...), 5, true)

		assert.Equal(t, 10, res.Count)
		assert.InDelta(t, 500.0, res.FixedValue, 1e-9)
		assert.Equal(t, 2.0, res.KFactor)
		assert.Less(t, res.Band95, 0.1*res.FixedValue)
		assert.True(t, res.Reliable)
		assert.Greater(t, res.Confidence, 0.8)
	})

	t.Run("motion correction deperturbs upward acceleration", func(t *testing.T) {
		t.Parallel()
		g := DefaultConfig().GStandard
		var samples []session.Sample
		for i := 0; i < 5; i++ {
			// Reading doubled by a sustained a_z equal to g.
			samples = append(samples, goodSample(int64(i)*200, 1000, g))
		}
		res := agg.Continuous(continuousData(0.1, 100, samples...), 0, true)
		assert.InDelta(t, 500.0, res.FixedValue, 1e-9)

		uncorrected := agg.Continuous(continuousData(0.1, 100, samples...), 0, false)
		assert.InDelta(t, 1000.0, uncorrected.FixedValue, 1e-9)
	})

	t.Run("implausible readings are dropped", func(t *testing.T) {
		t.Parallel()
		samples := []session.Sample{
			goodSample(0, 0, 0),        // at the floor, dropped
			goodSample(200, 200000, 0), // above the ceiling, dropped
			goodSample(400, 500, 0),
			goodSample(600, 500, 0),
			goodSample(800, 500, 0),
		}
		res := agg.Continuous(continuousData(0, 100, samples...), 0, false)
		assert.Equal(t, 3, res.Count)
		assert.InDelta(t, 500.0, res.FixedValue, 1e-9)
	})

	t.Run("too few gated samples falls back to all", func(t *testing.T) {
		t.Parallel()
		samples := []session.Sample{
			{TimestampMS: 0, ScaleReading: 500, Good: true},
			{TimestampMS: 200, ScaleReading: 502, Good: false},
			{TimestampMS: 400, ScaleReading: 498, Good: false},
			{TimestampMS: 600, ScaleReading: 501, Good: false},
		}
		res := agg.Continuous(continuousData(0.3, 25, samples...), 0, false)
		assert.Equal(t, 4, res.Count)
		assert.Contains(t, res.Notes, "fewer than 3 motion-gated samples; using all samples")
		assert.False(t, res.Reliable)
	})

	t.Run("heavy motion is flagged unreliable", func(t *testing.T) {
		t.Parallel()
		var samples []session.Sample
		for i := 0; i < 10; i++ {
			samples = append(samples, goodSample(int64(i)*200, 500, 0))
		}
		// AZRMS at 0.5 m/s² exceeds twice the 0.2 limit.
		res := agg.Continuous(continuousData(0.5, 100, samples...), 0, false)
		assert.False(t, res.Reliable)
		assert.Contains(t, res.Notes, "result flagged unreliable; verify motion conditions and repeat")
	})

	t.Run("deterministic apart from the result id", func(t *testing.T) {
		t.Parallel()
		var samples []session.Sample
		for i := 0; i < 6; i++ {
			samples = append(samples, goodSample(int64(i)*200, 500+float64(i%2), 0.01))
		}
		data := continuousData(0.1, 100, samples...)

		a := agg.Continuous(data, 1, true)
		b := agg.Continuous(data, 1, true)

		assert.NotEqual(t, a.ID, b.ID)
		a.ID, b.ID = "", ""
		assert.Equal(t, a, b)
	})
}

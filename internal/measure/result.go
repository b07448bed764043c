// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package measure

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/relabs-tech/marine_scale/internal/session"
	"github.com/relabs-tech/marine_scale/internal/stats"
)

// Readings outside this range are physically implausible for the bench
// scale and are dropped before any statistics run.
const (
	minPlausibleGrams = 0.0
	maxPlausibleGrams = 100000.0
)

const trimFraction = 0.10

// Config is the aggregation tuning snapshot.
type Config struct {
	UncertaintyK float64 // motion-error scale factor; worst-case excursion, not a σ
	GStandard    float64 // m/s²
	AzRMSLimit   float64 // reliability verdict compares session RMS against 2× this
}

// DefaultConfig returns the documented aggregation defaults.
func DefaultConfig() Config {
	return Config{
		UncertaintyK: 2.0,
		GStandard:    9.80665,
		AzRMSLimit:   0.2,
	}
}

// Result is the aggregate of one completed session: a point estimate with
// a 95% uncertainty band, a confidence score, and advisory notes.
// Constructed once per session stop; immutable thereafter. A result is
// always structurally valid, even when flagged unreliable.
type Result struct {
	ID   string `json:"id"`
	Mode string `json:"mode"` // "continuous" or "manual"

	Count     int `json:"count"`      // readings considered
	CountUsed int `json:"count_used"` // after selection and trim

	Mean        float64 `json:"mean"`
	Median      float64 `json:"median"`
	TrimmedMean float64 `json:"trimmed_mean"`
	FixedValue  float64 `json:"fixed_value"` // chosen point estimate, grams

	StdDev     float64 `json:"std_dev"`
	StdErr     float64 `json:"std_err"`
	TareSigma  float64 `json:"tare_sigma"`
	SigmaTotal float64 `json:"sigma_total"` // 1σ
	Band95     float64 `json:"band_95"`
	KFactor    float64 `json:"k_factor"`

	Confidence float64  `json:"confidence"`
	Reliable   bool     `json:"reliable"`
	Notes      []string `json:"notes,omitempty"`
}

// Aggregator turns completed sessions into results.
type Aggregator struct {
	cfg Config
}

// NewAggregator returns an aggregator with the given tuning snapshot.
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Continuous aggregates a continuous-session snapshot. bias is subtracted
// from every reading; when motionCorrection is set, each reading is
// deperturbed by the vertical acceleration recorded alongside it using the
// single-pole model corrected = r·g/(g+a_z): a platform accelerating
// upward reads heavier than the true mass.
func (a *Aggregator) Continuous(data session.Data, bias float64, motionCorrection bool) Result {
	res := Result{ID: uuid.NewString(), Mode: "continuous"}

	type reading struct {
		value float64
		good  bool
	}

	var all []reading
	for _, s := range data.Samples {
		if s.ScaleReading <= minPlausibleGrams || s.ScaleReading >= maxPlausibleGrams {
			continue
		}
		v := s.ScaleReading - bias
		if motionCorrection {
			denom := a.cfg.GStandard + s.AZ
			if denom != 0 {
				v = v * a.cfg.GStandard / denom
			}
			// denom == 0: keep the uncorrected value rather than
			// propagate infinity.
		}
		all = append(all, reading{value: v, good: s.Good})
	}
	res.Count = len(all)

	if len(all) == 0 {
		res.KFactor = stats.KFromN(0)
		res.Notes = append(res.Notes, "no usable scale readings in session")
		return res
	}

	// Prefer instantaneous-gated samples when enough exist; otherwise use
	// everything (small-sample escape hatch).
	var used []float64
	goodCount := 0
	for _, r := range all {
		if r.good {
			goodCount++
		}
	}
	if goodCount >= 3 {
		for _, r := range all {
			if r.good {
				used = append(used, r.value)
			}
		}
	} else {
		for _, r := range all {
			used = append(used, r.value)
		}
		if goodCount < len(all) {
			res.Notes = append(res.Notes, "fewer than 3 motion-gated samples; using all samples")
		}
	}

	ce := centralEstimate(used)
	res.Mean = ce.mean
	res.Median = ce.median
	res.TrimmedMean = ce.trimmedMean
	res.FixedValue = ce.fixed
	res.CountUsed = ce.countUsed
	res.StdDev = stats.StdDev(used)
	if ce.medianFallback {
		res.Notes = append(res.Notes, "trimmed mean disagreed with median; using median")
	}

	// Motion term: worst-case excursion of the vertical acceleration,
	// scaled into a relative error on the fixed value. Scale-noise term:
	// sample scatter of the corrected readings.
	sigmaMotion := res.FixedValue * (a.cfg.UncertaintyK * data.AZRMS) / a.cfg.GStandard
	sigmaScale := res.StdDev
	res.SigmaTotal = math.Sqrt(sigmaMotion*sigmaMotion + sigmaScale*sigmaScale)
	res.KFactor = 2.0 // fixed multiplier in continuous mode
	res.Band95 = res.KFactor * res.SigmaTotal

	res.Confidence = a.continuousConfidence(data.PercentGood, res)
	res.Reliable = res.Confidence > 0.3 &&
		goodCount >= 3 &&
		res.FixedValue > 0 && res.Band95 < 0.1*res.FixedValue &&
		data.AZRMS < 2*a.cfg.AzRMSLimit
	if !res.Reliable {
		res.Notes = append(res.Notes, "result flagged unreliable; verify motion conditions and repeat")
	}

	return res
}

// continuousConfidence blends percent-of-good-samples, inverse coefficient
// of variation, and sample-count sufficiency at 0.4/0.4/0.2.
func (a *Aggregator) continuousConfidence(percentGood float64, res Result) float64 {
	goodScore := clamp01(percentGood / 100)

	cvScore := 0.0
	if res.FixedValue > 0 {
		cv := res.StdDev / res.FixedValue
		cvScore = clamp01(1 - cv/0.10) // zero credit at 10% relative scatter
	}

	countScore := clamp01(float64(res.CountUsed) / 10)

	return 0.4*goodScore + 0.4*cvScore + 0.2*countScore
}

// Manual aggregates the measurements of a completed manual session. The
// uncertainty combines the standard error of the trimmed set with the
// session's locked tare σ, and the 95% band uses the interpolated
// Student-t k-factor: manual sessions are small-n, and a fixed normal
// multiplier would understate their uncertainty.
func (a *Aggregator) Manual(measurements []session.Measurement) Result {
	res := Result{ID: uuid.NewString(), Mode: "manual"}
	res.Count = len(measurements)

	if len(measurements) == 0 {
		res.KFactor = stats.KFromN(0)
		res.Notes = append(res.Notes, "no measurements in session")
		return res
	}

	corrected := make([]float64, len(measurements))
	for i, m := range measurements {
		corrected[i] = m.Corrected
	}
	// Tare is locked per session, so every measurement carries the same
	// uncertainty.
	res.TareSigma = measurements[0].TareUncertainty95 / 2

	ce := centralEstimate(corrected)
	res.Mean = ce.mean
	res.Median = ce.median
	res.TrimmedMean = ce.trimmedMean
	res.FixedValue = ce.fixed
	res.CountUsed = ce.countUsed
	res.StdDev = stats.StdDev(ce.trimmedSet)
	if ce.medianFallback {
		res.Notes = append(res.Notes, "trimmed mean disagreed with median; using median")
	}

	if res.CountUsed > 0 {
		res.StdErr = res.StdDev / math.Sqrt(float64(res.CountUsed))
	}
	res.SigmaTotal = math.Sqrt(res.StdErr*res.StdErr + res.TareSigma*res.TareSigma)
	res.KFactor = stats.KFromN(res.CountUsed)
	res.Band95 = res.KFactor * res.SigmaTotal

	res.Confidence = manualConfidence(res.CountUsed)
	res.Reliable = res.CountUsed >= 3
	if res.CountUsed < 3 {
		res.Notes = append(res.Notes, fmt.Sprintf("only %d measurements; add more for a defensible band", res.CountUsed))
	}

	return res
}

// manualConfidence is a step function of the trimmed count.
func manualConfidence(n int) float64 {
	switch {
	case n >= 10:
		return 0.95
	case n >= 6:
		return 0.85
	case n >= 3:
		return 0.7
	case n == 2:
		return 0.5
	case n == 1:
		return 0.3
	default:
		return 0
	}
}

type central struct {
	mean           float64
	median         float64
	trimmedMean    float64
	fixed          float64
	countUsed      int
	trimmedSet     []float64
	medianFallback bool
}

// centralEstimate picks the point estimate: the 10%-trimmed mean when at
// least 3 values survive the trim, otherwise the median. If the trimmed
// mean and the median disagree by more than 10% of the median, the trim
// window likely still holds an outlier cluster and the median wins.
func centralEstimate(values []float64) central {
	c := central{
		mean:        stats.Mean(values),
		median:      stats.Median(values),
		trimmedMean: stats.TrimmedMean(values, trimFraction),
	}

	trim := int(float64(len(values)) * trimFraction)
	afterTrim := len(values) - 2*trim
	c.countUsed = afterTrim
	c.trimmedSet = trimmedSubset(values, trim)

	if afterTrim >= 3 {
		c.fixed = c.trimmedMean
		if c.median != 0 && math.Abs(c.trimmedMean-c.median) > 0.10*math.Abs(c.median) {
			c.fixed = c.median
			c.medianFallback = true
		}
	} else {
		c.fixed = c.median
		c.countUsed = len(values)
		c.trimmedSet = values
	}
	return c
}

func trimmedSubset(values []float64, trim int) []float64 {
	if trim <= 0 || 2*trim >= len(values) {
		return values
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted[trim : len(sorted)-trim]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package session

import (
	"fmt"
	"math"

	"github.com/relabs-tech/marine_scale/internal/stats"
)

// TareSample is one zero-load scale reading.
type TareSample struct {
	TimestampMS int64   `json:"ts_ms"`
	Reading     float64 `json:"reading"` // grams
}

// TareEstimate is derived on demand from the current tare sample set.
type TareEstimate struct {
	Count         int     `json:"count"`
	BiasMedian    float64 `json:"bias_median"`
	Uncertainty95 float64 `json:"uncertainty_95"` // half-range, grams
	Sigma         float64 `json:"sigma"`          // 1σ equivalent = Uncertainty95/2
	Source        string  `json:"source"`         // "samples" or "user"
}

// Tare collects zero-load readings and estimates the scale bias. Readings
// are append-only; the estimate is recomputed from scratch on each call.
type Tare struct {
	samples []TareSample
}

// NewTare returns an empty tare collector.
func NewTare() *Tare {
	return &Tare{}
}

// Add records a zero-load reading. NaN and negative values are rejected.
func (t *Tare) Add(reading float64, nowMS int64) error {
	if math.IsNaN(reading) {
		return fmt.Errorf("tare reading is NaN")
	}
	if reading < 0 {
		return fmt.Errorf("tare reading %v is negative", reading)
	}
	t.samples = append(t.samples, TareSample{TimestampMS: nowMS, Reading: reading})
	return nil
}

// Count returns how many tare readings have been collected.
func (t *Tare) Count() int {
	return len(t.samples)
}

// Reset drops all collected readings.
func (t *Tare) Reset() {
	t.samples = nil
}

// Estimate computes the bias from the current readings. With no readings
// it returns a zero estimate; with exactly one the reading becomes the
// bias with zero uncertainty, since a single point cannot bound a range.
// With two or more, bias is the median and the 95% uncertainty is the
// half-range (max−min)/2, a conservative distribution-free choice for
// small sample counts.
func (t *Tare) Estimate() TareEstimate {
	n := len(t.samples)
	if n == 0 {
		return TareEstimate{Source: "samples"}
	}

	readings := make([]float64, n)
	for i, s := range t.samples {
		readings[i] = s.Reading
	}

	if n == 1 {
		return TareEstimate{Count: 1, BiasMedian: readings[0], Source: "samples"}
	}

	min, max := readings[0], readings[0]
	for _, r := range readings[1:] {
		if r < min {
			min = r
		}
		if r > max {
			max = r
		}
	}
	unc95 := (max - min) / 2

	return TareEstimate{
		Count:         n,
		BiasMedian:    stats.Median(readings),
		Uncertainty95: unc95,
		Sigma:         unc95 / 2,
		Source:        "samples",
	}
}

// UserTare wraps a user-entered bias and uncertainty in the same estimate
// shape as Estimate, tagged with its provenance.
func UserTare(bias, uncertainty95 float64) TareEstimate {
	return TareEstimate{
		Count:         0,
		BiasMedian:    bias,
		Uncertainty95: uncertainty95,
		Sigma:         uncertainty95 / 2,
		Source:        "user",
	}
}

package session

import (
	"fmt"
	"math"
)

// Measurement is one discrete, user-triggered scale reading taken under a
// locked tare. Bias and tare uncertainty are frozen at session start, so a
// tare re-estimate mid-session never retroactively changes collected
// measurements.
type Measurement struct {
	TimestampMS       int64   `json:"ts_ms"`
	Reading           float64 `json:"reading"` // grams, as entered
	Bias              float64 `json:"bias"`
	TareUncertainty95 float64 `json:"tare_uncertainty_95"`
	Corrected         float64 `json:"corrected"` // Reading − Bias
}

// Manual collects discrete scale readings under a tare locked at session
// start. Idle → Active → Idle; no continuous stream.
type Manual struct {
	active    bool
	bias      float64
	tareUnc95 float64

	measurements []Measurement
}

// NewManual returns an idle manual session.
func NewManual() *Manual {
	return &Manual{}
}

// Active reports whether the session accepts measurements.
func (m *Manual) Active() bool {
	return m.active
}

// Bias returns the locked bias for the current activation.
func (m *Manual) Bias() float64 {
	return m.bias
}

// TareUncertainty95 returns the locked tare uncertainty for the current
// activation.
func (m *Manual) TareUncertainty95() float64 {
	return m.tareUnc95
}

// Start locks bias and tare uncertainty for every measurement added during
// this activation and clears previously collected measurements.
func (m *Manual) Start(bias, tareUncertainty95 float64) {
	m.active = true
	m.bias = bias
	m.tareUnc95 = tareUncertainty95
	m.measurements = nil
}

// Stop transitions back to idle. Collected measurements remain available.
func (m *Manual) Stop() {
	m.active = false
}

// AddMeasurement appends a reading corrected by the locked bias. It
// rejects NaN and non-positive readings, and any reading while idle.
func (m *Manual) AddMeasurement(reading float64, nowMS int64) (Measurement, error) {
	if !m.active {
		return Measurement{}, fmt.Errorf("manual session is not active")
	}
	if math.IsNaN(reading) {
		return Measurement{}, fmt.Errorf("scale reading is NaN")
	}
	if reading <= 0 {
		return Measurement{}, fmt.Errorf("scale reading %v must be positive", reading)
	}

	meas := Measurement{
		TimestampMS:       nowMS,
		Reading:           reading,
		Bias:              m.bias,
		TareUncertainty95: m.tareUnc95,
		Corrected:         reading - m.bias,
	}
	m.measurements = append(m.measurements, meas)
	return meas, nil
}

// RemoveMeasurement drops the measurement at index i. Out-of-bounds
// indexes are a no-op, not an error.
func (m *Manual) RemoveMeasurement(i int) {
	if i < 0 || i >= len(m.measurements) {
		return
	}
	m.measurements = append(m.measurements[:i], m.measurements[i+1:]...)
}

// Measurements returns a copy of the collected measurements in insertion
// order.
func (m *Manual) Measurements() []Measurement {
	out := make([]Measurement, len(m.measurements))
	copy(out, m.measurements)
	return out
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"math"

	"github.com/relabs-tech/marine_scale/internal/estimator"
	"github.com/relabs-tech/marine_scale/internal/stats"
)

// Config is the per-session tuning snapshot. A session keeps the snapshot
// it was started with for every per-sample decision; swapping configuration
// mid-session never rewrites history.
type Config struct {
	// Instantaneous gating thresholds. These are deliberately independent
	// of (and typically looser than) the RMS stability thresholds: a
	// session may keep momentarily noisy samples that the live "ready to
	// measure" gate would reject.
	AzInstantThreshold    float64 // m/s²
	RollInstantThreshold  float64 // degrees
	PitchInstantThreshold float64 // degrees

	ScaleSampleRateHz float64 // cadence for polling the scale reading
}

// DefaultConfig returns the documented session defaults.
func DefaultConfig() Config {
	return Config{
		AzInstantThreshold:    0.5,
		RollInstantThreshold:  5.0,
		PitchInstantThreshold: 5.0,
		ScaleSampleRateHz:     5,
	}
}

// Sample is one time-synchronized row of a continuous session: motion from
// the estimator plus the scale reading held at the session's polling
// cadence. Immutable once appended.
type Sample struct {
	TimestampMS  int64   `json:"ts_ms"`
	AZ           float64 `json:"az"`
	Roll         float64 `json:"roll"`
	Pitch        float64 `json:"pitch"`
	ScaleReading float64 `json:"scale_reading"` // grams
	Good         bool    `json:"good"`
}

// Data is the immutable snapshot a continuous session produces at stop
// time.
type Data struct {
	StartMS     int64    `json:"start_ms"`
	StopMS      int64    `json:"stop_ms"`
	Samples     []Sample `json:"samples"`
	AZRMS       float64  `json:"az_rms"`
	RollRMS     float64  `json:"roll_rms"`
	PitchRMS    float64  `json:"pitch_rms"`
	PercentGood float64  `json:"percent_good"`
}

// Continuous collects a stream of processed samples plus periodically
// sampled scale readings during a live measurement window. One-shot:
// Idle → Active → Idle, no pause. Confined to the goroutine that delivers
// samples.
type Continuous struct {
	cfg Config

	// scaleReading returns the current externally entered scale value in
	// grams. It is polled at the configured cadence; between cadence ticks
	// the last polled value is carried forward (zero-order hold) so scale
	// input latency never couples to the inertial sample rate.
	scaleReading func() float64

	active      bool
	startMS     int64
	samples     []Sample
	lastScaleMS int64
	heldScale   float64
	haveHeld    bool
}

// NewContinuous returns an idle session. scaleReading must be non-nil.
func NewContinuous(cfg Config, scaleReading func() float64) *Continuous {
	return &Continuous{cfg: cfg, scaleReading: scaleReading}
}

// Active reports whether a measurement window is open.
func (s *Continuous) Active() bool {
	return s.active
}

// Start clears accumulated samples and opens the measurement window.
// Starting an already active session is a no-op and returns false.
func (s *Continuous) Start(nowMS int64) bool {
	if s.active {
		return false
	}
	s.active = true
	s.startMS = nowMS
	s.samples = nil
	s.lastScaleMS = 0
	s.heldScale = 0
	s.haveHeld = false
	return true
}

// AddSample appends one processed sample while the session is active.
// Samples arriving while idle are dropped.
func (s *Continuous) AddSample(ps estimator.ProcessedSample) {
	if !s.active {
		return
	}

	periodMS := int64(1000 / s.cfg.ScaleSampleRateHz)
	if !s.haveHeld || ps.TimestampMS-s.lastScaleMS >= periodMS {
		s.heldScale = s.scaleReading()
		s.lastScaleMS = ps.TimestampMS
		s.haveHeld = true
	}

	good := math.Abs(ps.AZ) < s.cfg.AzInstantThreshold &&
		math.Abs(ps.Roll) < s.cfg.RollInstantThreshold &&
		math.Abs(ps.Pitch) < s.cfg.PitchInstantThreshold

	s.samples = append(s.samples, Sample{
		TimestampMS:  ps.TimestampMS,
		AZ:           ps.AZ,
		Roll:         ps.Roll,
		Pitch:        ps.Pitch,
		ScaleReading: s.heldScale,
		Good:         good,
	})
}

// Stop closes the window and returns the session snapshot with RMS
// summaries over the full collected set. Stopping an idle session returns
// an empty, all-zero snapshot.
func (s *Continuous) Stop(nowMS int64) Data {
	if !s.active {
		return Data{}
	}
	s.active = false

	az := make([]float64, len(s.samples))
	roll := make([]float64, len(s.samples))
	pitch := make([]float64, len(s.samples))
	good := 0
	for i, sm := range s.samples {
		az[i] = sm.AZ
		roll[i] = sm.Roll
		pitch[i] = sm.Pitch
		if sm.Good {
			good++
		}
	}

	percentGood := 0.0
	if len(s.samples) > 0 {
		percentGood = 100 * float64(good) / float64(len(s.samples))
	}

	return Data{
		StartMS:     s.startMS,
		StopMS:      nowMS,
		Samples:     s.samples,
		AZRMS:       stats.RMS(az),
		RollRMS:     stats.RMS(roll),
		PitchRMS:    stats.RMS(pitch),
		PercentGood: percentGood,
	}
}

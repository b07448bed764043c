// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import (
	"math"

	"github.com/relabs-tech/marine_scale/internal/imu"
	"github.com/relabs-tech/marine_scale/internal/vecmath"
	"github.com/relabs-tech/marine_scale/internal/window"
)

// rateWindow is how many inter-sample intervals the sampling-rate estimate
// averages over.
const rateWindow = 100

// rateCeilingHz sizes the trailing windows. If the device delivers faster
// than this the windows hold a shorter wall-clock span than configured,
// which is an accepted degradation.
const rateCeilingHz = 200

// Config is the tuning snapshot the estimator is constructed with. A
// running estimator never consults any other configuration source.
type Config struct {
	GravityFilterAlpha float64 // recommended 0.90–0.98
	AzRMSThreshold     float64 // m/s²
	RollRMSThreshold   float64 // degrees
	PitchRMSThreshold  float64 // degrees
	LiveWindowMillis   int64
}

// DefaultConfig returns the documented tuning defaults.
func DefaultConfig() Config {
	return Config{
		GravityFilterAlpha: 0.95,
		AzRMSThreshold:     0.2,
		RollRMSThreshold:   2.0,
		PitchRMSThreshold:  2.0,
		LiveWindowMillis:   5000,
	}
}

// ProcessedSample is the per-sample output of the estimator: motion with
// gravity removed, plus the tilt derived from the gravity direction.
type ProcessedSample struct {
	AZ          float64         `json:"az"`    // m/s², along current gravity
	Roll        float64         `json:"roll"`  // degrees
	Pitch       float64         `json:"pitch"` // degrees
	Gravity     vecmath.Vector3 `json:"gravity"`
	UnitGravity vecmath.Vector3 `json:"unit_gravity"`
	LinearAccel vecmath.Vector3 `json:"linear_accel"`
	TimestampMS int64           `json:"ts_ms"`
}

// LiveMetrics is an ephemeral snapshot recomputed on every processed
// sample, used for "ready to measure" guidance.
type LiveMetrics struct {
	AZ           float64 `json:"az"`
	Roll         float64 `json:"roll"`
	Pitch        float64 `json:"pitch"`
	AZRMS        float64 `json:"az_rms"`
	RollRMS      float64 `json:"roll_rms"`
	PitchRMS     float64 `json:"pitch_rms"`
	SampleRateHz float64 `json:"sample_rate_hz"`
	Stable       bool    `json:"stable"`
	Confidence   float64 `json:"confidence"` // [0,1], soft companion to Stable
}

// Estimator maintains a low-pass gravity estimate from raw accelerometer
// samples and derives vertical acceleration and roll/pitch from it. It is
// not safe for concurrent use; one goroutine owns it and feeds it samples
// in order.
type Estimator struct {
	cfg Config

	gravity     vecmath.Vector3
	initialized bool

	lastTS    int64
	intervals [rateWindow]float64
	intervalN int // total intervals seen, capped at rateWindow for averaging
	intervalI int

	azWin    *window.Ring
	rollWin  *window.Ring
	pitchWin *window.Ring
}

// New returns an estimator using the given tuning snapshot.
func New(cfg Config) *Estimator {
	// Multiply before dividing so sub-second and fractional-second windows
	// size correctly.
	capacity := int(cfg.LiveWindowMillis * rateCeilingHz / 1000)
	if capacity < 1 {
		capacity = 1
	}
	return &Estimator{
		cfg:      cfg,
		azWin:    window.NewRing(capacity),
		rollWin:  window.NewRing(capacity),
		pitchWin: window.NewRing(capacity),
	}
}

// Process consumes one raw sample. It returns ok=false with zero outputs
// when nothing was emitted: either the sensor was silent (nil accel, no
// state change) or this was the first valid sample, which only seeds the
// gravity estimate.
func (e *Estimator) Process(s imu.RawSample) (ProcessedSample, LiveMetrics, bool) {
	if s.Accel == nil {
		return ProcessedSample{}, LiveMetrics{}, false
	}

	if !e.initialized {
		// Seed directly from the first reading; filtering from a zero
		// state would bias the estimate during startup.
		e.gravity = *s.Accel
		e.initialized = true
		e.lastTS = s.TimestampMS
		return ProcessedSample{}, LiveMetrics{}, false
	}

	e.recordInterval(s)
	e.lastTS = s.TimestampMS

	alpha := e.cfg.GravityFilterAlpha
	e.gravity = vecmath.Vector3{
		X: alpha*e.gravity.X + (1-alpha)*s.Accel.X,
		Y: alpha*e.gravity.Y + (1-alpha)*s.Accel.Y,
		Z: alpha*e.gravity.Z + (1-alpha)*s.Accel.Z,
	}

	linear := vecmath.Sub(*s.Accel, e.gravity)
	unit := vecmath.Normalize(e.gravity)
	az := vecmath.Dot(linear, unit)

	// Accelerometer-only tilt:
	//	roll  = atan2(gy, gz)
	//	pitch = atan2(-gx, sqrt(gy² + gz²))
	roll := vecmath.Degrees(math.Atan2(unit.Y, unit.Z))
	pitch := vecmath.Degrees(math.Atan2(-unit.X, math.Hypot(unit.Y, unit.Z)))

	e.azWin.Push(az, s.TimestampMS)
	e.rollWin.Push(roll, s.TimestampMS)
	e.pitchWin.Push(pitch, s.TimestampMS)

	ps := ProcessedSample{
		AZ:          az,
		Roll:        roll,
		Pitch:       pitch,
		Gravity:     e.gravity,
		UnitGravity: unit,
		LinearAccel: linear,
		TimestampMS: s.TimestampMS,
	}
	return ps, e.liveMetrics(ps), true
}

// Reset clears all windows and re-arms first-sample gravity seeding.
func (e *Estimator) Reset() {
	e.gravity = vecmath.Vector3{}
	e.initialized = false
	e.lastTS = 0
	e.intervalN = 0
	e.intervalI = 0
	e.azWin.Clear()
	e.rollWin.Clear()
	e.pitchWin.Clear()
}

func (e *Estimator) recordInterval(s imu.RawSample) {
	interval := s.IntervalMillis
	if interval <= 0 {
		interval = float64(s.TimestampMS - e.lastTS)
	}
	if interval <= 0 {
		return
	}
	e.intervals[e.intervalI] = interval
	e.intervalI = (e.intervalI + 1) % rateWindow
	if e.intervalN < rateWindow {
		e.intervalN++
	}
}

// SampleRateHz returns the estimated sampling rate from the running
// average of recent inter-sample intervals, or 0 before any interval has
// been observed.
func (e *Estimator) SampleRateHz() float64 {
	if e.intervalN == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < e.intervalN; i++ {
		sum += e.intervals[i]
	}
	mean := sum / float64(e.intervalN)
	if mean <= 0 {
		return 0
	}
	return 1000.0 / mean
}

func (e *Estimator) liveMetrics(ps ProcessedSample) LiveMetrics {
	azRMS := e.azWin.RMSInWindow(e.cfg.LiveWindowMillis)
	rollRMS := e.rollWin.RMSInWindow(e.cfg.LiveWindowMillis)
	pitchRMS := e.pitchWin.RMSInWindow(e.cfg.LiveWindowMillis)

	stable := azRMS < e.cfg.AzRMSThreshold &&
		rollRMS < e.cfg.RollRMSThreshold &&
		pitchRMS < e.cfg.PitchRMSThreshold

	confidence := (channelScore(azRMS, e.cfg.AzRMSThreshold) +
		channelScore(rollRMS, e.cfg.RollRMSThreshold) +
		channelScore(pitchRMS, e.cfg.PitchRMSThreshold)) / 3

	return LiveMetrics{
		AZ:           ps.AZ,
		Roll:         ps.Roll,
		Pitch:        ps.Pitch,
		AZRMS:        azRMS,
		RollRMS:      rollRMS,
		PitchRMS:     pitchRMS,
		SampleRateHz: e.SampleRateHz(),
		Stable:       stable,
		Confidence:   confidence,
	}
}

// channelScore maps an RMS level onto [0,1]: 1 at rest, 0 at twice the
// stability threshold.
func channelScore(rms, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	score := 1 - rms/(2*threshold)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

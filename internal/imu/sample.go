package imu

import "github.com/relabs-tech/marine_scale/internal/vecmath"

// RawSample is a single inertial sample as delivered by the sensor layer.
// Accel includes gravity and is nil when the sensor produced no reading for
// this tick; consumers must handle the nil case rather than treat zero as a
// measurement.
type RawSample struct {
	Accel          *vecmath.Vector3 `json:"accel"`    // m/s², including gravity
	Rotation       vecmath.Vector3  `json:"rotation"` // rad/s, carried for consumers
	IntervalMillis float64          `json:"interval_ms"`
	TimestampMS    int64            `json:"ts_ms"` // monotonic milliseconds
}

// RawSource is anything that can deliver raw inertial samples over time.
type RawSource interface {
	NextRaw() (RawSample, error)
}

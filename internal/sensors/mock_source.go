// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/marine_scale/internal/imu"
	"github.com/relabs-tech/marine_scale/internal/vecmath"
)

type mockSource struct {
	start  time.Time
	lastTS int64
	have   bool
}

// NewMockIMUSource creates a mock inertial source that simulates a gently
// rolling deck: gravity plus a slow heave oscillation. Useful for
// development away from the vessel.
func NewMockIMUSource() imu.RawSource {
	return &mockSource{start: time.Now()}
}

func (m *mockSource) NextRaw() (imu.RawSample, error) {
	elapsed := time.Since(m.start)
	now := elapsed.Milliseconds()
	t := elapsed.Seconds()

	// ~0.1 Hz heave with a small roll component.
	accel := vecmath.Vector3{
		X: 0.3 * math.Sin(t*0.7),
		Y: 0.2 * math.Cos(t*0.5),
		Z: standardGravity + 0.4*math.Sin(t*0.63),
	}

	sample := imu.RawSample{
		Accel:       &accel,
		TimestampMS: now,
	}
	if m.have {
		sample.IntervalMillis = float64(now - m.lastTS)
	}
	m.lastTS = now
	m.have = true
	return sample, nil
}

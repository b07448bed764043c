// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/marine_scale/internal/imu"
	"github.com/relabs-tech/marine_scale/internal/vecmath"
)

// standardGravity converts accelerometer g units to m/s².
const standardGravity = 9.80665

type imuSource struct {
	imu        *mpu9250.MPU9250
	accelScale float64 // m/s² per raw count
	gyroScale  float64 // rad/s per raw count
	start      time.Time
	lastTS     int64
	haveLast   bool
}

// NewIMUSource initializes the MPU9250 over SPI and returns a source of
// raw inertial samples in SI units. accelRange selects the accelerometer
// full-scale range: 0=±2g, 1=±4g, 2=±8g, 3=±16g.
func NewIMUSource(spiDev, csPin string, accelRange byte) (imu.RawSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU initialization: %w", err)
	}

	if _, err := dev.SelfTest(); err != nil {
		log.Printf("Warning: IMU self-test failed: %v", err)
	}
	if err := dev.Calibrate(); err != nil {
		log.Printf("Warning: IMU calibration failed: %v", err)
	}

	scale, err := accelScaleFor(accelRange)
	if err != nil {
		return nil, err
	}
	// The conversion factor assumes the device is actually running at the
	// configured full scale, so program it before trusting the counts.
	if err := dev.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("IMU set accel range: %w", err)
	}
	log.Printf("IMU: accelerometer full scale ±%.0fg", float64(int(2)<<accelRange))

	return &imuSource{
		imu:        dev,
		accelScale: scale,
		gyroScale:  vecmath.Radians(250.0 / 32768.0),
		start:      time.Now(),
	}, nil
}

// accelScaleFor maps the MPU9250 accel range selector (0=±2g, 1=±4g,
// 2=±8g, 3=±16g) to the m/s²-per-count conversion factor for 16-bit
// signed samples.
func accelScaleFor(accelRange byte) (float64, error) {
	if accelRange > 3 {
		return 0, fmt.Errorf("accel range must be 0-3, got %d", accelRange)
	}
	fullScaleG := float64(int(2) << accelRange)
	return fullScaleG * standardGravity / 32768.0, nil
}

// NextRaw reads one accelerometer+gyro sample and stamps it with
// monotonic milliseconds since the source was created. A transient read
// failure is reported as a sensor-silent sample (nil accel) rather than an
// error, so a dropped SPI transaction never stalls the sample loop.
func (s *imuSource) NextRaw() (imu.RawSample, error) {
	now := time.Since(s.start).Milliseconds()

	sample := imu.RawSample{TimestampMS: now}
	if s.haveLast {
		sample.IntervalMillis = float64(now - s.lastTS)
	}
	s.lastTS = now
	s.haveLast = true

	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		log.Printf("IMU accel X read error: %v", err)
		return sample, nil
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		log.Printf("IMU accel Y read error: %v", err)
		return sample, nil
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		log.Printf("IMU accel Z read error: %v", err)
		return sample, nil
	}

	accel := vecmath.Vector3{
		X: float64(ax) * s.accelScale,
		Y: float64(ay) * s.accelScale,
		Z: float64(az) * s.accelScale,
	}
	sample.Accel = &accel

	gx, err := s.imu.GetRotationX()
	if err == nil {
		sample.Rotation.X = float64(gx) * s.gyroScale
	}
	gy, err := s.imu.GetRotationY()
	if err == nil {
		sample.Rotation.Y = float64(gy) * s.gyroScale
	}
	gz, err := s.imu.GetRotationZ()
	if err == nil {
		sample.Rotation.Z = float64(gz) * s.gyroScale
	}

	return sample, nil
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/relabs-tech/marine_scale/internal/estimator"
	"github.com/relabs-tech/marine_scale/internal/measure"
	"github.com/relabs-tech/marine_scale/internal/session"
)

// Config holds all application configuration values. It is loaded once in
// main and passed explicitly to every component that needs it; there is no
// package-level instance.
type Config struct {
	// MQTT
	MQTTBroker            string
	MQTTClientIDEstimator string
	MQTTClientIDScale     string
	MQTTClientIDNav       string
	MQTTClientIDConsole   string
	MQTTClientIDWeb       string
	MQTTClientIDDisplay   string

	// Topics
	TopicLive      string
	TopicProcessed string
	TopicScale     string
	TopicNav       string
	TopicResult    string
	TopicControl   string

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string

	// Accelerometer range: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte

	// Timing
	IMUSampleInterval  int // milliseconds
	ConsoleLogInterval int // milliseconds

	// Scale serial port
	ScaleSerialPort string
	ScaleBaudRate   int

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// Tuning (measurement engine). Defaults are set by Default() and only
	// overridden when the corresponding key appears in the config file.
	TAzRMS             float64 // m/s², RMS stability threshold
	TRollRMS           float64 // degrees
	TPitchRMS          float64 // degrees
	TAzInstant         float64 // m/s², per-sample gating threshold
	TRollInstant       float64 // degrees
	TPitchInstant      float64 // degrees
	GravityFilterAlpha float64 // recommended 0.90–0.98
	SampleMassDefault  float64 // grams
	ScaleSampleRate    float64 // Hz, cadence for scale polling
	LiveWindowDuration float64 // seconds, RMS window
	UncertaintyK       float64 // motion-error scale factor
	GStandard          float64 // m/s²
}

// Default returns a Config with the documented tuning defaults applied and
// everything else zero. Load starts from this so a config file only needs
// to name the keys it wants to change.
func Default() *Config {
	return &Config{
		TAzRMS:             0.2,
		TRollRMS:           2.0,
		TPitchRMS:          2.0,
		TAzInstant:         0.5,
		TRollInstant:       5.0,
		TPitchInstant:      5.0,
		GravityFilterAlpha: 0.95,
		SampleMassDefault:  500,
		ScaleSampleRate:    5,
		LiveWindowDuration: 5,
		UncertaintyK:       2.0,
		GStandard:          9.80665,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_ESTIMATOR":
		c.MQTTClientIDEstimator = value
	case "MQTT_CLIENT_ID_SCALE":
		c.MQTTClientIDScale = value
	case "MQTT_CLIENT_ID_NAV":
		c.MQTTClientIDNav = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_LIVE":
		c.TopicLive = value
	case "TOPIC_PROCESSED":
		c.TopicProcessed = value
	case "TOPIC_SCALE":
		c.TopicScale = value
	case "TOPIC_NAV":
		c.TopicNav = value
	case "TOPIC_RESULT":
		c.TopicResult = value
	case "TOPIC_CONTROL":
		c.TopicControl = value

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)

	// Timing
	case "IMU_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.IMUSampleInterval = interval
	case "CONSOLE_LOG_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CONSOLE_LOG_INTERVAL %q: %w", value, err)
		}
		c.ConsoleLogInterval = interval

	// Scale serial port
	case "SCALE_SERIAL_PORT":
		c.ScaleSerialPort = value
	case "SCALE_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SCALE_BAUD_RATE %q: %w", value, err)
		}
		c.ScaleBaudRate = rate

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// Tuning
	case "T_AZ_RMS":
		return c.setFloat(&c.TAzRMS, key, value)
	case "T_ROLL_RMS":
		return c.setFloat(&c.TRollRMS, key, value)
	case "T_PITCH_RMS":
		return c.setFloat(&c.TPitchRMS, key, value)
	case "T_AZ_INSTANT":
		return c.setFloat(&c.TAzInstant, key, value)
	case "T_ROLL_INSTANT":
		return c.setFloat(&c.TRollInstant, key, value)
	case "T_PITCH_INSTANT":
		return c.setFloat(&c.TPitchInstant, key, value)
	case "GRAVITY_FILTER_ALPHA":
		if err := c.setFloat(&c.GravityFilterAlpha, key, value); err != nil {
			return err
		}
		// Out-of-range values degrade gravity tracking but still work.
		if c.GravityFilterAlpha < 0.90 || c.GravityFilterAlpha > 0.98 {
			log.Printf("Warning: GRAVITY_FILTER_ALPHA %v is outside the recommended [0.90, 0.98]", c.GravityFilterAlpha)
		}
		return nil
	case "SAMPLE_MASS_DEFAULT":
		return c.setFloat(&c.SampleMassDefault, key, value)
	case "SCALE_SAMPLE_RATE":
		return c.setFloat(&c.ScaleSampleRate, key, value)
	case "LIVE_WINDOW_DURATION":
		return c.setFloat(&c.LiveWindowDuration, key, value)
	case "UNCERTAINTY_K":
		return c.setFloat(&c.UncertaintyK, key, value)
	case "G_STANDARD":
		return c.setFloat(&c.GStandard, key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func (c *Config) setFloat(dst *float64, key, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.IMUSampleInterval == 0 {
		return fmt.Errorf("IMU_SAMPLE_INTERVAL is required")
	}
	if c.TAzRMS <= 0 || c.TRollRMS <= 0 || c.TPitchRMS <= 0 {
		return fmt.Errorf("RMS stability thresholds must be positive")
	}
	if c.TAzInstant <= 0 || c.TRollInstant <= 0 || c.TPitchInstant <= 0 {
		return fmt.Errorf("instantaneous gating thresholds must be positive")
	}
	if c.ScaleSampleRate <= 0 {
		return fmt.Errorf("SCALE_SAMPLE_RATE must be positive")
	}
	if c.LiveWindowDuration <= 0 {
		return fmt.Errorf("LIVE_WINDOW_DURATION must be positive")
	}
	return nil
}

// Estimator returns the engine configuration snapshot for the orientation
// estimator.
func (c *Config) Estimator() estimator.Config {
	return estimator.Config{
		GravityFilterAlpha: c.GravityFilterAlpha,
		AzRMSThreshold:     c.TAzRMS,
		RollRMSThreshold:   c.TRollRMS,
		PitchRMSThreshold:  c.TPitchRMS,
		LiveWindowMillis:   int64(c.LiveWindowDuration * 1000),
	}
}

// Session returns the configuration snapshot for continuous sessions.
func (c *Config) Session() session.Config {
	return session.Config{
		AzInstantThreshold:    c.TAzInstant,
		RollInstantThreshold:  c.TRollInstant,
		PitchInstantThreshold: c.TPitchInstant,
		ScaleSampleRateHz:     c.ScaleSampleRate,
	}
}

// Measure returns the configuration snapshot for result aggregation.
func (c *Config) Measure() measure.Config {
	return measure.Config{
		UncertaintyK: c.UncertaintyK,
		GStandard:    c.GStandard,
		AzRMSLimit:   c.TAzRMS,
	}
}

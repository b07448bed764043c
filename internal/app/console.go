package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/marine_scale/internal/config"
	"github.com/relabs-tech/marine_scale/internal/estimator"
	"github.com/relabs-tech/marine_scale/internal/measure"
	"github.com/relabs-tech/marine_scale/internal/nav"
	"github.com/relabs-tech/marine_scale/internal/scale"
)

// RunConsole subscribes to the live topics and pretty-prints everything:
// a poor man's bridge watch for the measurement station.
func RunConsole(cfg *config.Config) error {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to live metrics, throttled to the configured interval so a
	// fast inertial stream doesn't flood the terminal.
	var liveMu sync.Mutex
	var lastLivePrint time.Time
	liveInterval := time.Duration(cfg.ConsoleLogInterval) * time.Millisecond

	liveToken := client.Subscribe(cfg.TopicLive, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var lm estimator.LiveMetrics
		if err := json.Unmarshal(msg.Payload(), &lm); err != nil {
			log.Printf("console: live metrics unmarshal error: %v", err)
			return
		}

		liveMu.Lock()
		if time.Since(lastLivePrint) < liveInterval {
			liveMu.Unlock()
			return
		}
		lastLivePrint = time.Now()
		liveMu.Unlock()

		state := "MOVING"
		if lm.Stable {
			state = "STABLE"
		}
		fmt.Printf(
			"[LIVE]  az=%6.3f  roll=%6.2f  pitch=%6.2f  rms(az)=%5.3f  rate=%5.1fHz  %s  conf=%.2f\n",
			lm.AZ, lm.Roll, lm.Pitch, lm.AZRMS, lm.SampleRateHz, state, lm.Confidence,
		)
	})
	liveToken.Wait()
	if liveToken.Error() != nil {
		return liveToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicLive)

	// Subscribe to scale readings
	scaleToken := client.Subscribe(cfg.TopicScale, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r scale.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("console: scale reading unmarshal error: %v", err)
			return
		}

		flag := " "
		if !r.Stable {
			flag = "~"
		}
		fmt.Printf("[SCALE] %s%9.2f g\n", flag, r.Grams)
	})
	scaleToken.Wait()
	if scaleToken.Error() != nil {
		return scaleToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicScale)

	// Subscribe to vessel fixes
	navToken := client.Subscribe(cfg.TopicNav, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f nav.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: nav unmarshal error: %v", err)
			return
		}

		motion := "MOORED"
		if f.Underway() {
			motion = "UNDERWAY"
		}
		fmt.Printf(
			"[NAV ]  time=%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° %s\n",
			f.Time, f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, motion,
		)
	})
	navToken.Wait()
	if navToken.Error() != nil {
		return navToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicNav)

	// Subscribe to session results
	resultToken := client.Subscribe(cfg.TopicResult, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var res measure.Result
		if err := json.Unmarshal(msg.Payload(), &res); err != nil {
			log.Printf("console: result unmarshal error: %v", err)
			return
		}

		verdict := "UNRELIABLE"
		if res.Reliable {
			verdict = "OK"
		}
		fmt.Printf(
			"[RSLT]  %s  %8.2f g ± %6.2f g (95%%)  n=%d/%d  k=%.3f  conf=%.2f  %s\n",
			res.Mode, res.FixedValue, res.Band95, res.CountUsed, res.Count, res.KFactor, res.Confidence, verdict,
		)
		for _, note := range res.Notes {
			fmt.Printf("        note: %s\n", note)
		}
	})
	resultToken.Wait()
	if resultToken.Error() != nil {
		return resultToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicResult)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

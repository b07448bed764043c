package app

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/marine_scale/internal/config"
	"github.com/relabs-tech/marine_scale/internal/estimator"
	"github.com/relabs-tech/marine_scale/internal/imu"
	"github.com/relabs-tech/marine_scale/internal/measure"
	"github.com/relabs-tech/marine_scale/internal/scale"
	"github.com/relabs-tech/marine_scale/internal/sensors"
	"github.com/relabs-tech/marine_scale/internal/session"
)

// controlMessage is the JSON payload accepted on the session control
// topic.
type controlMessage struct {
	Cmd              string  `json:"cmd"` // "start" or "stop"
	Bias             float64 `json:"bias"`
	MotionCorrection bool    `json:"motion_correction"`
}

// sharedState is everything the MQTT callbacks touch. The sample loop
// drains pending commands at tick boundaries so the estimator and the
// session stay confined to one goroutine.
type sharedState struct {
	mu           sync.Mutex
	lastScale    float64
	pendingStart *controlMessage
	pendingStop  *controlMessage
}

func (st *sharedState) scaleReading() float64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastScale
}

// RunEstimatorProducer owns the measurement engine: it reads inertial
// samples, publishes live metrics per sample, and runs continuous
// measurement sessions on command, publishing the session result at stop.
func RunEstimatorProducer(cfg *config.Config, useMock bool) error {
	log.Println("starting marine-scale estimator producer")

	// --- inertial source ---
	var src imu.RawSource
	if useMock {
		log.Println("using mock inertial source")
		src = sensors.NewMockIMUSource()
	} else {
		var err error
		src, err = sensors.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange)
		if err != nil {
			return err
		}
	}

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDEstimator)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Println("connected to MQTT, starting sample loop")

	state := &sharedState{}

	// Latest scale reading, zero-order held between session cadence ticks.
	scaleToken := client.Subscribe(cfg.TopicScale, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r scale.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("scale reading unmarshal error: %v", err)
			return
		}
		state.mu.Lock()
		state.lastScale = r.Grams
		state.mu.Unlock()
	})
	scaleToken.Wait()
	if scaleToken.Error() != nil {
		return scaleToken.Error()
	}

	ctrlToken := client.Subscribe(cfg.TopicControl, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var cm controlMessage
		if err := json.Unmarshal(msg.Payload(), &cm); err != nil {
			log.Printf("control message unmarshal error: %v", err)
			return
		}
		state.mu.Lock()
		switch cm.Cmd {
		case "start":
			state.pendingStart = &cm
		case "stop":
			state.pendingStop = &cm
		default:
			log.Printf("unknown control command %q", cm.Cmd)
		}
		state.mu.Unlock()
	})
	ctrlToken.Wait()
	if ctrlToken.Error() != nil {
		return ctrlToken.Error()
	}

	// --- engine, confined to this goroutine ---
	est := estimator.New(cfg.Estimator())
	sess := session.NewContinuous(cfg.Session(), state.scaleReading)
	agg := measure.NewAggregator(cfg.Measure())

	var sessionBias float64
	var motionCorrection bool
	var lastTS int64 // session bookkeeping shares the sensor's monotonic clock

	ticker := time.NewTicker(time.Duration(cfg.IMUSampleInterval) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		// Drain pending session commands at the tick boundary.
		state.mu.Lock()
		start, stop := state.pendingStart, state.pendingStop
		state.pendingStart, state.pendingStop = nil, nil
		state.mu.Unlock()

		if start != nil {
			if sess.Start(lastTS) {
				sessionBias = start.Bias
				motionCorrection = start.MotionCorrection
				log.Printf("continuous session started (bias=%.2fg, motion correction=%v)", sessionBias, motionCorrection)
			} else {
				log.Println("session start ignored: already active")
			}
		}
		if stop != nil {
			if sess.Active() {
				data := sess.Stop(lastTS)
				result := agg.Continuous(data, sessionBias, motionCorrection)
				log.Printf("session stopped: %d samples, fixed=%.2fg ±%.2fg (95%%), confidence=%.2f",
					result.Count, result.FixedValue, result.Band95, result.Confidence)
				publishJSON(client, cfg.TopicResult, result)
			} else {
				log.Println("session stop ignored: not active")
			}
		}

		raw, err := src.NextRaw()
		if err != nil {
			log.Printf("inertial read error: %v", err)
			continue
		}
		lastTS = raw.TimestampMS

		ps, live, ok := est.Process(raw)
		if !ok {
			continue
		}

		if sess.Active() {
			sess.AddSample(ps)
		}

		publishJSON(client, cfg.TopicProcessed, ps)
		publishJSON(client, cfg.TopicLive, live)
	}
	return nil
}

func publishJSON(client mqtt.Client, topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("json marshal error (%s): %v", topic, err)
		return
	}
	if token := client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Printf("MQTT publish error (%s): %v", topic, token.Error())
	}
}

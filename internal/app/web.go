// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/marine_scale/internal/config"
	"github.com/relabs-tech/marine_scale/internal/estimator"
	"github.com/relabs-tech/marine_scale/internal/measure"
	"github.com/relabs-tech/marine_scale/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// webState is everything the HTTP handlers and MQTT callbacks share. The
// manual measurement engine lives here; the mutex is its owning context.
type webState struct {
	mu sync.RWMutex

	lastLive estimator.LiveMetrics
	haveLive bool

	tare   *session.Tare
	manual *session.Manual
	agg    *measure.Aggregator

	baseResult  *measure.Result
	finalResult *measure.Result

	history []measure.Result // newest last, in-memory only
}

// RunWeb serves the measurement UI: a live-metrics stream over websocket,
// the manual tare/session workflow, and control of continuous sessions via
// the MQTT control topic.
func RunWeb(cfg *config.Config) error {
	state := &webState{
		tare:   session.NewTare(),
		manual: session.NewManual(),
		agg:    measure.NewAggregator(cfg.Measure()),
	}

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Track latest live metrics and completed continuous results
	liveToken := client.Subscribe(cfg.TopicLive, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var lm estimator.LiveMetrics
		if err := json.Unmarshal(msg.Payload(), &lm); err != nil {
			log.Printf("web: live metrics unmarshal error: %v", err)
			return
		}
		state.mu.Lock()
		state.lastLive = lm
		state.haveLive = true
		state.mu.Unlock()
	})
	liveToken.Wait()
	if liveToken.Error() != nil {
		return liveToken.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicLive)

	resultToken := client.Subscribe(cfg.TopicResult, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var res measure.Result
		if err := json.Unmarshal(msg.Payload(), &res); err != nil {
			log.Printf("web: result unmarshal error: %v", err)
			return
		}
		state.mu.Lock()
		state.history = append(state.history, res)
		state.mu.Unlock()
	})
	resultToken.Wait()
	if resultToken.Error() != nil {
		return resultToken.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicResult)

	// 3) Live metrics: JSON snapshot and websocket stream
	http.HandleFunc("/api/live", func(w http.ResponseWriter, r *http.Request) {
		state.mu.RLock()
		defer state.mu.RUnlock()

		if !state.haveLive {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, state.lastLive)
	})

	http.HandleFunc("/ws/live", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()

		for range ticker.C {
			state.mu.RLock()
			lm, have := state.lastLive, state.haveLive
			state.mu.RUnlock()
			if !have {
				continue
			}
			if err := conn.WriteJSON(lm); err != nil {
				return
			}
		}
	})

	// 4) Continuous session control, relayed over MQTT to the estimator
	http.HandleFunc("/api/continuous/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		state.mu.RLock()
		bias := state.tare.Estimate().BiasMedian
		state.mu.RUnlock()

		motion := r.URL.Query().Get("motion_correction") != "off"
		cm := controlMessage{Cmd: "start", Bias: bias, MotionCorrection: motion}
		publishJSON(client, cfg.TopicControl, cm)
		writeJSON(w, cm)
	})

	http.HandleFunc("/api/continuous/stop", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		cm := controlMessage{Cmd: "stop"}
		publishJSON(client, cfg.TopicControl, cm)
		writeJSON(w, cm)
	})

	// 5) Tare workflow
	http.HandleFunc("/api/tare", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			state.mu.RLock()
			est := state.tare.Estimate()
			state.mu.RUnlock()
			writeJSON(w, est)

		case http.MethodPost:
			var body struct {
				Reading float64 `json:"reading"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
				return
			}
			state.mu.Lock()
			err := state.tare.Add(body.Reading, time.Now().UnixMilli())
			est := state.tare.Estimate()
			state.mu.Unlock()
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			writeJSON(w, est)

		case http.MethodDelete:
			state.mu.Lock()
			state.tare.Reset()
			state.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
		}
	})

	// 6) Manual session workflow (base/final two-session ratio)
	http.HandleFunc("/api/manual/start", state.handleManualStart)

	http.HandleFunc("/api/manual/measurement", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var body struct {
				Reading float64 `json:"reading"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
				return
			}
			state.mu.Lock()
			meas, err := state.manual.AddMeasurement(body.Reading, time.Now().UnixMilli())
			state.mu.Unlock()
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			writeJSON(w, meas)

		case http.MethodDelete:
			idx, err := strconv.Atoi(r.URL.Query().Get("index"))
			if err != nil {
				http.Error(w, "index query parameter required", http.StatusBadRequest)
				return
			}
			state.mu.Lock()
			state.manual.RemoveMeasurement(idx)
			state.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/api/manual/stop", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		slot := r.URL.Query().Get("slot")
		if slot != "base" && slot != "final" {
			http.Error(w, "slot must be base or final", http.StatusBadRequest)
			return
		}

		state.mu.Lock()
		state.manual.Stop()
		result := state.agg.Manual(state.manual.Measurements())
		if slot == "base" {
			state.baseResult = &result
		} else {
			state.finalResult = &result
		}
		state.history = append(state.history, result)
		state.mu.Unlock()

		writeJSON(w, result)
	})

	http.HandleFunc("/api/ratio", func(w http.ResponseWriter, r *http.Request) {
		state.mu.RLock()
		base, final := state.baseResult, state.finalResult
		state.mu.RUnlock()

		if base == nil || final == nil {
			http.Error(w, "both base and final sessions must be completed", http.StatusConflict)
			return
		}
		writeJSON(w, measure.Ratio(*base, *final))
	})

	http.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		state.mu.RLock()
		defer state.mu.RUnlock()
		writeJSON(w, state.history)
	})

	// UI form defaults and gating thresholds
	http.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]float64{
			"sample_mass_default": cfg.SampleMassDefault,
			"scale_sample_rate":   cfg.ScaleSampleRate,
			"t_az_rms":            cfg.TAzRMS,
			"t_roll_rms":          cfg.TRollRMS,
			"t_pitch_rms":         cfg.TPitchRMS,
		})
	})

	// 7) Static files from ./web as the root
	http.Handle("/", http.FileServer(http.Dir("web")))

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}

// handleManualStart opens a manual session. By default it locks the
// current sample-based tare estimate; a request body naming a bias locks
// a user-entered tare instead, tagged with its provenance.
func (s *webState) handleManualStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Bias          *float64 `json:"bias"`
		Uncertainty95 float64  `json:"uncertainty_95"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	var est session.TareEstimate
	if body.Bias != nil {
		est = session.UserTare(*body.Bias, body.Uncertainty95)
	} else {
		est = s.tare.Estimate()
	}
	s.manual.Start(est.BiasMedian, est.Uncertainty95)
	s.mu.Unlock()

	writeJSON(w, est)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

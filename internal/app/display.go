package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/marine_scale/internal/config"
	"github.com/relabs-tech/marine_scale/internal/estimator"
	"github.com/relabs-tech/marine_scale/internal/measure"
	"github.com/relabs-tech/marine_scale/internal/scale"
)

// displayData holds the latest data for the station display.
type displayData struct {
	mu sync.RWMutex

	live     estimator.LiveMetrics
	haveLive bool

	reading     scale.Reading
	haveReading bool

	result     measure.Result
	haveResult bool
}

// RunDisplay drives the SSD1306 at the measurement station: current
// weight, motion state, and the last session result.
func RunDisplay(cfg *config.Config) error {
	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := showSplash(dev); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &displayData{}

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{cfg.TopicLive, func(_ mqtt.Client, msg mqtt.Message) {
			var lm estimator.LiveMetrics
			if err := json.Unmarshal(msg.Payload(), &lm); err != nil {
				log.Printf("display: live unmarshal error: %v", err)
				return
			}
			data.mu.Lock()
			data.live = lm
			data.haveLive = true
			data.mu.Unlock()
		}},
		{cfg.TopicScale, func(_ mqtt.Client, msg mqtt.Message) {
			var r scale.Reading
			if err := json.Unmarshal(msg.Payload(), &r); err != nil {
				log.Printf("display: scale unmarshal error: %v", err)
				return
			}
			data.mu.Lock()
			data.reading = r
			data.haveReading = true
			data.mu.Unlock()
		}},
		{cfg.TopicResult, func(_ mqtt.Client, msg mqtt.Message) {
			var res measure.Result
			if err := json.Unmarshal(msg.Payload(), &res); err != nil {
				log.Printf("display: result unmarshal error: %v", err)
				return
			}
			data.mu.Lock()
			data.result = res
			data.haveResult = true
			data.mu.Unlock()
		}},
	}
	for _, s := range subs {
		token := client.Subscribe(s.topic, 0, s.handler)
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("display: subscribed to %s", s.topic)
	}

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		data.mu.RLock()
		snapshot := displayData{
			live:        data.live,
			haveLive:    data.haveLive,
			reading:     data.reading,
			haveReading: data.haveReading,
			result:      data.result,
			haveResult:  data.haveResult,
		}
		data.mu.RUnlock()

		if err := updateStationDisplay(dev, &snapshot); err != nil {
			log.Printf("display: update error: %v", err)
		}
	}

	return nil
}

func newDrawer(img *image1bit.VerticalLSB) *font.Drawer {
	for i := range img.Pix {
		img.Pix[i] = 0
	}
	return &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
}

func updateStationDisplay(dev *ssd1306.Dev, data *displayData) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := newDrawer(img)

	if !data.haveReading && !data.haveLive {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Marine Scale"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
		return dev.Draw(dev.Bounds(), img, image.Point{})
	}

	// Current weight
	drawer.Dot = fixed.P(0, 13)
	if data.haveReading {
		drawer.DrawBytes([]byte(fmt.Sprintf("W:%9.2f g", data.reading.Grams)))
	} else {
		drawer.DrawBytes([]byte("W: ---"))
	}

	// Motion state
	drawer.Dot = fixed.P(0, 26)
	if data.haveLive {
		state := "MOVING"
		if data.live.Stable {
			state = "STABLE"
		}
		drawer.DrawBytes([]byte(fmt.Sprintf("%s  c=%.2f", state, data.live.Confidence)))
	}

	// Last result
	if data.haveResult {
		drawer.Dot = fixed.P(0, 45)
		drawer.DrawBytes([]byte(fmt.Sprintf("R:%8.2f g", data.result.FixedValue)))
		drawer.Dot = fixed.P(0, 58)
		drawer.DrawBytes([]byte(fmt.Sprintf(" +-%6.2f g", data.result.Band95)))
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func showSplash(dev *ssd1306.Dev) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := newDrawer(img)

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Marine Scale"))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Weighing at"))

	drawer.Dot = fixed.P(25, 56)
	drawer.DrawBytes([]byte("sea"))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

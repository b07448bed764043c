package app

import (
	"bufio"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/marine_scale/internal/config"
	"github.com/relabs-tech/marine_scale/internal/scale"
)

// RunScaleProducer opens the bench-scale serial port, parses weight
// frames, and publishes readings as JSON to the scale topic.
func RunScaleProducer(cfg *config.Config) error {
	// ---- 1) Connect to MQTT broker ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDScale)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("scale producer connected to MQTT broker at %s", cfg.MQTTBroker)

	// ---- 2) Open scale serial port ----
	serialOpts := serial.OpenOptions{
		PortName:              cfg.ScaleSerialPort,
		BaudRate:              uint(cfg.ScaleBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("scale serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	reader := bufio.NewReader(port)
	start := time.Now()

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("scale read error: %v", err)
			return err
		}

		reading, err := scale.ParseLine(line)
		if err != nil {
			// Bench scales interleave status lines with weight frames;
			// skip anything that isn't a weight.
			continue
		}
		reading.TimestampMS = time.Since(start).Milliseconds()

		publishJSON(client, cfg.TopicScale, reading)
	}
}

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/marine_scale/internal/app"
	"github.com/relabs-tech/marine_scale/internal/config"
)

func main() {
	configPath := flag.String("config", "./marine_scale.conf", "path to configuration file")
	flag.Parse()

	log.Println("starting marine-scale nav producer (GPS → MQTT)")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunNavProducer(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

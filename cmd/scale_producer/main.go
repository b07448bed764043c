// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

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

	log.Println("starting marine-scale bench-scale producer (serial → MQTT)")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunScaleProducer(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

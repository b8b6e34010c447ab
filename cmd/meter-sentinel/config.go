package main

import (
	"os"

	"github.com/lightbench/meter-sentinel/internal/config"
)

func readConfig() config.Configuration {
	return config.ReadConfig()
}

func listenAddress() string {
	listenAddress := os.Getenv("LISTEN_ADDRESS")
	if listenAddress == "" {
		listenAddress = ":8080"
	}

	return listenAddress
}

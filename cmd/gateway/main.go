package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/openjms/biometric-gateway/pkg/app/gateway"
	"github.com/openjms/biometric-gateway/pkg/config"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := gateway.NewServer(cfg).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Gateway exited with error: %v\n", err)
		os.Exit(1)
	}
}

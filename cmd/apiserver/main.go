// apiserver runs the citekeep API with configuration taken from the
// environment and an optional config file, for container deployments where
// the full CLI is unnecessary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/citekeep/citekeep/internal/config"
	"github.com/citekeep/citekeep/internal/interfaces/cli"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	if err := cli.RunServer(context.Background(), cfg, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, "server error:", err)
		os.Exit(1)
	}
}

// Package main implements the entry point for the Hunyuan3D bridge daemon,
// which submits text-to-3D generations, tracks them to completion and
// materializes the resulting models and previews into the in-memory
// document behind a local HTTP control API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default ./config.yaml if present)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the environment is read")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *envFile); err != nil {
		log.Fatalf("h3dbridge: %v", err)
	}
}

// run loads configuration, builds the application and blocks until ctx is
// cancelled or a component fails
func run(ctx context.Context, configPath, envFile string) error {
	if err := loadDotEnv(envFile); err != nil {
		return err
	}

	cfg, err := loadAppConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := setupAppLogger(cfg)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}

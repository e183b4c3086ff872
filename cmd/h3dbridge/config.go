package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/config"
)

// loadDotEnv loads a dotenv file into the environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadAppConfig loads the application configuration from the environment
// and the optional config file.
func loadAppConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("bridge configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"cache_backend", cfg.Cache.Backend,
		"save_dir", cfg.Storage.SaveDir)

	if cfg.Remote.Token != "" {
		slog.Debug("remote configuration", "token_present", true)
	}

	return cfg, nil
}

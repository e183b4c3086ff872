package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. H3D_SERVER_PORT.
const EnvPrefix = "H3D"

// defaults are applied before the config file and the environment.
// Every key is listed so AutomaticEnv can resolve it during Unmarshal.
var defaults = map[string]any{
	"server.port":       8765,
	"server.log_level":  "info",
	"server.log_format": "json",

	"remote.base_url": "https://3d.hunyuan.tencent.com",
	"remote.token":    "",
	"remote.user_id":  "",
	"remote.timeout":  "30s",

	"storage.save_dir": "hunyuan3d",
	"storage.temp_dir": "",

	"cache.backend":        "memory",
	"cache.redis_addr":     "",
	"cache.redis_password": "",
	"cache.redis_db":       0,
	"cache.key_prefix":     "h3d:asset:",

	"generation.capacity":          3,
	"generation.poll_interval":     "4s",
	"generation.first_delay":       "1s",
	"generation.call_timeout":      "10s",
	"generation.max_poll_failures": 0,

	"download.attempts":       3,
	"download.pacing":         "500ms",
	"download.timeout":        "30s",
	"download.relay_interval": "500ms",

	"image.margin":         5,
	"image.pacing":         "150ms",
	"image.timeout":        "30s",
	"image.drain_first":    "100ms",
	"image.drain_interval": "500ms",
}

// Load reads configuration from defaults, an optional config file and
// environment variables, in increasing order of precedence.
// With an empty path, config.yaml is looked up in the working directory
// and its absence is not an error. Returns the validated Config.
func Load(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

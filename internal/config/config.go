package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups, one per component.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Remote     RemoteConfig     `mapstructure:"remote"     validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage"    validate:"required"`
	Cache      CacheConfig      `mapstructure:"cache"      validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Download   DownloadConfig   `mapstructure:"download"   validate:"required"`
	Image      ImageConfig      `mapstructure:"image"      validate:"required"`
}

// ServerConfig contains the local control API settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port"       validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level"  validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json text"`
}

// RemoteConfig contains the Hunyuan3D web API settings. Token and UserID
// are the values of the hy_token and hy_user session cookies.
type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Token   string        `mapstructure:"token"`
	UserID  string        `mapstructure:"user_id"`
	Timeout time.Duration `mapstructure:"timeout"  validate:"gt=0"`
}

// StorageConfig contains filesystem locations.
type StorageConfig struct {
	// SaveDir receives saved results as <save_dir>/<job_id>/<asset_id>.glb
	SaveDir string `mapstructure:"save_dir" validate:"required"`
	// TempDir receives downloads that are imported without saving.
	// Empty means the OS temp dir.
	TempDir string `mapstructure:"temp_dir"`
}

// CacheConfig selects the asset cache backend.
type CacheConfig struct {
	Backend       string `mapstructure:"backend"        validate:"required,oneof=memory redis"`
	RedisAddr     string `mapstructure:"redis_addr"     validate:"required_if=Backend redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"       validate:"gte=0"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

// GenerationConfig contains dispatcher settings.
type GenerationConfig struct {
	Capacity        int           `mapstructure:"capacity"          validate:"gte=1"`
	PollInterval    time.Duration `mapstructure:"poll_interval"     validate:"gt=0"`
	FirstDelay      time.Duration `mapstructure:"first_delay"       validate:"gte=0"`
	CallTimeout     time.Duration `mapstructure:"call_timeout"      validate:"gt=0"`
	MaxPollFailures int           `mapstructure:"max_poll_failures" validate:"gte=0"`
}

// DownloadConfig contains download worker and import relay settings.
type DownloadConfig struct {
	Attempts      int           `mapstructure:"attempts"       validate:"gte=1"`
	Pacing        time.Duration `mapstructure:"pacing"         validate:"gte=0"`
	Timeout       time.Duration `mapstructure:"timeout"        validate:"gt=0"`
	RelayInterval time.Duration `mapstructure:"relay_interval" validate:"gt=0"`
}

// ImageConfig contains preview loader settings.
type ImageConfig struct {
	Margin        int           `mapstructure:"margin"         validate:"gte=0"`
	Pacing        time.Duration `mapstructure:"pacing"         validate:"gte=0"`
	Timeout       time.Duration `mapstructure:"timeout"        validate:"gt=0"`
	DrainFirst    time.Duration `mapstructure:"drain_first"    validate:"gte=0"`
	DrainInterval time.Duration `mapstructure:"drain_interval" validate:"gt=0"`
}

// Package config resolves environment-driven runtime settings. A local .env
// file, when present, is loaded into the process environment before parsing;
// real environment variables always win over .env entries.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting that is not part of the entity
// configuration files (networks, monitors, triggers).
type Config struct {
	// LogLevel is the minimum level emitted by the global logger.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// ConfigDir is the root of the entity configuration tree
	// (networks/, monitors/, triggers/).
	ConfigDir string `envconfig:"MONITOR_CONFIG_DIR" default:"./config"`

	// DataDir holds durable state: the block cursor file and, when a
	// network enables it, stored block payloads.
	DataDir string `envconfig:"MONITOR_DATA_DIR" default:"./data"`

	// TelemetryEnabled turns on OTLP log/metric/trace export.
	TelemetryEnabled bool `envconfig:"TELEMETRY_ENABLED" default:"false"`

	// CursorBackend selects where block cursors persist: "file" or "redis".
	CursorBackend string `envconfig:"CURSOR_BACKEND" default:"file"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisUsername string `envconfig:"REDIS_USERNAME"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// RPCTimeout bounds a single JSON-RPC exchange.
	RPCTimeout time.Duration `envconfig:"RPC_TIMEOUT" default:"15s"`

	// NotifierTimeout bounds a single webhook-family delivery attempt.
	NotifierTimeout time.Duration `envconfig:"NOTIFIER_TIMEOUT" default:"10s"`

	// EmailTimeout bounds one SMTP session, which is slower than a webhook
	// POST by nature.
	EmailTimeout time.Duration `envconfig:"EMAIL_TIMEOUT" default:"30s"`

	// DispatchFanOut caps how many monitor matches are dispatched
	// concurrently within one block.
	DispatchFanOut int `envconfig:"DISPATCH_FAN_OUT" default:"32"`
}

// Load reads the optional .env file and parses the environment into a Config.
func Load() (Config, error) {
	// Missing .env is not an error; the environment alone is a valid source.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

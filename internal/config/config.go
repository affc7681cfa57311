// Package config loads the demo binary's runtime configuration,
// mirroring the teacher's viper-based Load() with a godotenv pre-load
// for local development.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the demo's cmd/hostessd needs to wire a
// Master together.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
	Events  EventsConfig  `mapstructure:"events"`
}

// ServerConfig controls the game WebSocket listener and the demo's
// static file server.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	Path              string        `mapstructure:"path"`
	PublicDir         string        `mapstructure:"public_dir"`
	AllowCreate       bool          `mapstructure:"allow_create"`
	AdmissionRate     float64       `mapstructure:"admission_rate"`
	AdmissionBurst    int           `mapstructure:"admission_burst"`
	InstanceQueueSize int           `mapstructure:"instance_queue_size"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig controls the Prometheus/health listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig controls zap logger level/encoding.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// EventsConfig controls the optional NATS lifecycle telemetry bus.
type EventsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// Load reads configuration from defaults, an optional
// hostess.{yaml,json,toml} config file, and HOSTESS_-prefixed
// environment variables, in that order of increasing precedence. An
// optional .env file is loaded into the process environment first
// (without overriding variables already set), so its entries count as
// environment variables.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.path", "/ws")
	v.SetDefault("server.public_dir", "./public")
	v.SetDefault("server.allow_create", true)
	v.SetDefault("server.admission_rate", 50.0)
	v.SetDefault("server.admission_burst", 100)
	v.SetDefault("server.instance_queue_size", 1024)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9095")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.url", "nats://127.0.0.1:4222")

	v.SetConfigName("hostess")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("HOSTESS")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

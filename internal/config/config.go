// Package config loads the service configuration from defaults, an optional
// config file and TASKS_* environment variables.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr" validate:"required"`
	LogLevel       string        `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

// DatabaseConfig selects the task store. Path is only used by the sqlite driver.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite memory"`
	Path   string `mapstructure:"path" validate:"required_if=Driver sqlite"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" validate:"min=1,dive,required"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// RateLimitConfig is a global token bucket. RPS of 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps" validate:"gte=0"`
	Burst int     `mapstructure:"burst" validate:"gte=1"`
}

type AuthConfig struct {
	Mode        string `mapstructure:"mode" validate:"oneof=none apikey bearer"`
	APIKey      string `mapstructure:"api_key" validate:"required_if=Mode apikey"`
	BearerToken string `mapstructure:"bearer_token" validate:"required_if=Mode bearer"`
}

type TracingConfig struct {
	Exporter string `mapstructure:"exporter" validate:"oneof=none stdout otlp"`
	// Endpoint is the OTLP/HTTP collector host:port; empty uses the exporter default.
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

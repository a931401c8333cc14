package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TASKS_SERVER_ADDR.
const EnvPrefix = "TASKS"

// DevOrigin is the local frontend allowed by the default CORS policy.
const DevOrigin = "http://localhost:5173"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.request_timeout", 15*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/tasks.db")

	v.SetDefault("cors.allowed_origins", []string{DevOrigin})
	v.SetDefault("cors.allow_credentials", true)

	v.SetDefault("ratelimit.rps", 0)
	v.SetDefault("ratelimit.burst", 20)

	v.SetDefault("auth.mode", "none")
	v.SetDefault("auth.api_key", "")
	v.SetDefault("auth.bearer_token", "")

	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", true)

	v.SetDefault("metrics.enabled", true)
}

// Load reads configuration. Environment variables take precedence over the
// config file, which takes precedence over defaults. configFile may be empty.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(vErrs))
	for _, fe := range vErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.ActualTag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

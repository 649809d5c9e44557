package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix shared by every configuration environment variable.
const EnvPrefix = "RECIPE"

// setDefaults registers every key so that environment variables are picked up
// by Unmarshal even when no config file mentions them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.service_name", "recipe-api")

	v.SetDefault("middleware.timeout", "25s")
	v.SetDefault("middleware.expose_internal_details", false)
	v.SetDefault("middleware.include_stack_trace", false)
	v.SetDefault("middleware.log_request_start", true)
	v.SetDefault("middleware.log_response_summary", true)
	v.SetDefault("middleware.enable_metrics", false)
	v.SetDefault("middleware.enable_tracing", false)

	v.SetDefault("auth.require_authentication", true)
	v.SetDefault("auth.allowed_roles", []string{})
	v.SetDefault("auth.caller_context", "")
	v.SetDefault("auth.cache_strategy", "request")
	v.SetDefault("auth.dev_token_secret", "")

	v.SetDefault("database.url", "")
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Middleware MiddlewareConfig `mapstructure:"middleware" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

// ServerConfig contains process-level settings.
type ServerConfig struct {
	Port        int    `mapstructure:"port"        validate:"required,gt=0,lt=65536"`
	LogLevel    string `mapstructure:"log_level"   validate:"required,oneof=debug info warn error"`
	Environment string `mapstructure:"environment" validate:"required,oneof=development staging production"`
	ServiceName string `mapstructure:"service_name" validate:"required"`
}

// IsProduction reports whether the process runs in the production environment.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// MiddlewareConfig controls the composed middleware chain.
type MiddlewareConfig struct {
	// Timeout bounds the whole composed chain; zero disables the guard.
	Timeout               time.Duration `mapstructure:"timeout"                 validate:"gte=0"`
	ExposeInternalDetails bool          `mapstructure:"expose_internal_details"`
	IncludeStackTrace     bool          `mapstructure:"include_stack_trace"`
	LogRequestStart       bool          `mapstructure:"log_request_start"`
	LogResponseSummary    bool          `mapstructure:"log_response_summary"`
	EnableMetrics         bool          `mapstructure:"enable_metrics"`
	EnableTracing         bool          `mapstructure:"enable_tracing"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	RequireAuthentication bool     `mapstructure:"require_authentication"`
	AllowedRoles          []string `mapstructure:"allowed_roles"`
	CallerContext         string   `mapstructure:"caller_context"`
	CacheStrategy         string   `mapstructure:"cache_strategy"         validate:"required,oneof=request container"`
	// DevTokenSecret signs local development tokens minted by cmd/tokengen.
	DevTokenSecret string `mapstructure:"dev_token_secret" validate:"omitempty,min=32"`
}

// DatabaseConfig contains the identity database settings. An empty URL
// disables identity hydration.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

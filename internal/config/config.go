// Package config loads and validates the service configuration.
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the main service configuration
type Config struct {
	// Server holds the HTTP server settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Session holds session store settings
	Session SessionConfig `json:"session" mapstructure:"session"`

	// AI holds the LLM provider settings
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Gateway holds the websocket event hub settings
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host               string `json:"host" mapstructure:"host"`
	Port               int    `json:"port" mapstructure:"port"`
	MaxUploadMB        int    `json:"max_upload_mb" mapstructure:"max_upload_mb"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
}

// SessionConfig holds session store configuration
type SessionConfig struct {
	TimeoutMinutes       int    `json:"timeout_minutes" mapstructure:"timeout_minutes"`
	SweepIntervalSeconds int    `json:"sweep_interval_seconds" mapstructure:"sweep_interval_seconds"`
	UploadsDir           string `json:"uploads_dir" mapstructure:"uploads_dir"` // empty: keep uploads in memory only
}

// AIConfig holds LLM provider configuration
type AIConfig struct {
	Provider string `json:"provider" mapstructure:"provider"` // gemini, anthropic, openai
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	Model    string `json:"model" mapstructure:"model"`
}

// GatewayConfig holds websocket event hub configuration
type GatewayConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	SharedSecret string `json:"shared_secret" mapstructure:"shared_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               5000,
			MaxUploadMB:        16,
			RateLimitPerMinute: 100,
		},
		Session: SessionConfig{
			TimeoutMinutes:       30,
			SweepIntervalSeconds: 60,
		},
		AI: AIConfig{
			Provider: "gemini",
			Model:    "gemini-1.5-flash",
		},
		Gateway: GatewayConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			Redaction: true,
		},
	}
}

// SessionTimeout returns the session timeout as a duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Session.TimeoutMinutes) * time.Minute
}

// SweepInterval returns the sweep interval as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Session.SweepIntervalSeconds) * time.Second
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	if c.Session.TimeoutMinutes <= 0 {
		return fmt.Errorf("session timeout must be positive")
	}
	if c.Session.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}

	switch c.AI.Provider {
	case "gemini", "anthropic", "openai":
	case "":
		return fmt.Errorf("AI provider is required")
	default:
		return fmt.Errorf("invalid AI provider %s (must be: gemini, anthropic, openai)", c.AI.Provider)
	}

	if c.AI.APIKey == "" {
		return fmt.Errorf("AI API key is required (set %s)", apiKeyEnvVar(c.AI.Provider))
	}
	if err := NewValidator().ValidateAPIKey(c.AI.APIKey, c.AI.Provider); err != nil {
		return err
	}

	if c.Gateway.Enabled && c.Gateway.SharedSecret == "" {
		return fmt.Errorf("gateway shared secret is required when the gateway is enabled (set SECRET_KEY)")
	}

	return nil
}

func apiKeyEnvVar(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return "GEMINI_API_KEY"
	}
}

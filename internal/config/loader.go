package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/xeipuuv/gojsonschema"
)

// DefaultConfigFile is the config file looked up when no path is given.
const DefaultConfigFile = "labreport.json"

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file and environment.
//
// Precedence, lowest to highest: defaults, config file, environment
// variables. A .env file in the working directory is read first so both
// the file path and the variables can come from it.
func (l *Loader) Load() (*Config, error) {
	// Best effort; a missing .env file is fine.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	configPath := l.configPath
	if configPath == "" {
		configPath = DefaultConfigFile
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := validateSchema(data); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}

		v := viper.New()
		v.SetConfigFile(configPath)
		v.SetConfigType("json")

		v.SetEnvPrefix("LABREPORT")
		v.AutomaticEnv()

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	} else if l.configPath != "" {
		// An explicitly requested file must exist.
		return nil, fmt.Errorf("config file not found: %s", l.configPath)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Path returns the file Load and Save operate on.
func (l *Loader) Path() string {
	if l.configPath == "" {
		return DefaultConfigFile
	}
	return l.configPath
}

// Save writes the configuration to the loader's path.
func (l *Loader) Save(cfg *Config) error {
	configPath := l.Path()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("server", cfg.Server)
	v.Set("session", cfg.Session)
	v.Set("ai", cfg.AI)
	v.Set("gateway", cfg.Gateway)
	v.Set("logging", cfg.Logging)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func validateSchema(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		msg := "config does not match schema:"
		for _, desc := range result.Errors() {
			msg += fmt.Sprintf("\n  - %s", desc)
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

// applyEnvOverrides applies well-known environment variables on top of
// whatever the config file provided.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		cfg.Gateway.SharedSecret = v
	}

	if cfg.AI.APIKey == "" {
		switch cfg.AI.Provider {
		case "anthropic":
			cfg.AI.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			// Config file is optional, don't fail if it doesn't exist
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	loadFromEnv(cfg)

	return cfg, nil
}

// LoadFrom loads configuration from an explicit file path plus env overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, err
		}
	}
	loadFromEnv(cfg)
	return cfg, nil
}

// getConfigPath returns the path to the config file.
func getConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "appforge", "config.yaml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(homeDir, ".config", "appforge", "config.yaml")
}

// GetConfigPath returns the path to the config file (exported for external use).
func GetConfigPath() string {
	return getConfigPath()
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Expand environment variables in the config file
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func loadFromEnv(cfg *Config) {
	if key := os.Getenv("APPFORGE_API_KEY"); key != "" {
		switch cfg.API.Provider {
		case "gemini":
			cfg.API.GeminiKey = key
		case "ollama":
			cfg.API.OllamaKey = key
		default:
			cfg.API.AnthropicKey = key
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.API.AnthropicKey == "" {
		cfg.API.AnthropicKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && cfg.API.GeminiKey == "" {
		cfg.API.GeminiKey = key
	}

	if provider := os.Getenv("APPFORGE_PROVIDER"); provider != "" {
		cfg.API.Provider = provider
	}
	if model := os.Getenv("APPFORGE_MODEL"); model != "" {
		cfg.Models.Intent.Model = model
		cfg.Models.Plan.Model = model
		cfg.Models.Edit.Model = model
	}
	if addr := os.Getenv("APPFORGE_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := os.Getenv("APPFORGE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// Error types for configuration validation.
type ConfigError string

func (e ConfigError) Error() string {
	return string(e)
}

const (
	ErrMissingAuth ConfigError = "missing authentication: set APPFORGE_API_KEY or the provider-specific key in config.yaml"
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Ollama runs without a key; the hosted providers require one.
	if c.API.Provider != "ollama" && c.API.ActiveKey() == "" {
		return ErrMissingAuth
	}
	if c.Pipeline.MaxRetries < 0 {
		return ConfigError("pipeline.max_retries cannot be negative")
	}
	if c.Session.MessageCap <= 0 || c.Session.EditCap <= 0 {
		return ConfigError("session caps must be positive")
	}
	return nil
}

// Save saves the configuration to the config file.
func (c *Config) Save() error {
	configPath := getConfigPath()
	if configPath == "" {
		return fmt.Errorf("could not determine config path")
	}

	// 0700: config may contain API keys
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to temp file then rename (atomic on POSIX systems)
	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		if err := os.WriteFile(configPath, data, 0600); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	return nil
}

// Package config provides configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// defaultDataDir returns the default directory for storing app data.
// Uses ~/.dripmax/ so data is in a fixed location regardless of CWD.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./store"
	}
	return filepath.Join(home, ".dripmax")
}

// Config holds all configuration for the application core.
type Config struct {
	// Paths
	StorePath string `mapstructure:"store_path"`

	// Launch
	SafetyTimeout   time.Duration `mapstructure:"safety_timeout"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`

	// Navigation
	NavigationDebounce time.Duration `mapstructure:"navigation_debounce"`

	// Entitlement re-check
	RecheckBaseDelay  time.Duration `mapstructure:"recheck_base_delay"`
	RecheckMaxDelay   time.Duration `mapstructure:"recheck_max_delay"`
	RecheckMaxRetries int           `mapstructure:"recheck_max_retries"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		StorePath:          filepath.Join(defaultDataDir(), "dripmax.db"),
		SafetyTimeout:      30 * time.Second,
		ProviderTimeout:    10 * time.Second,
		NavigationDebounce: 300 * time.Millisecond,
		RecheckBaseDelay:   1 * time.Second,
		RecheckMaxDelay:    30 * time.Second,
		RecheckMaxRetries:  5,
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// LoadConfig loads configuration from file, environment, and defaults.
// Priority: CLI flags > Environment > Config file > Defaults
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("store_path", defaults.StorePath)
	v.SetDefault("safety_timeout", defaults.SafetyTimeout)
	v.SetDefault("provider_timeout", defaults.ProviderTimeout)
	v.SetDefault("navigation_debounce", defaults.NavigationDebounce)
	v.SetDefault("recheck_base_delay", defaults.RecheckBaseDelay)
	v.SetDefault("recheck_max_delay", defaults.RecheckMaxDelay)
	v.SetDefault("recheck_max_retries", defaults.RecheckMaxRetries)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)

	// Environment variables with DRIPMAX_ prefix
	v.SetEnvPrefix("DRIPMAX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Ignore if the default config.yaml simply doesn't exist — use
			// built-in defaults. Only fail if the user explicitly provided a
			// path that can't be read.
			isNotFound := errors.Is(err, os.ErrNotExist)
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotFound {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	// The watchdog ceiling must be generous enough to not race a normal
	// launch, but bounded so the user is never stuck on the loading screen.
	if c.SafetyTimeout < 10*time.Second || c.SafetyTimeout > 30*time.Second {
		return fmt.Errorf("safety timeout must be between 10s and 30s, got %s", c.SafetyTimeout)
	}

	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("provider timeout must be positive")
	}

	if c.NavigationDebounce <= 0 {
		return fmt.Errorf("navigation debounce must be positive")
	}

	if c.RecheckMaxRetries < 0 {
		return fmt.Errorf("recheck max retries must be non-negative")
	}

	if c.RecheckBaseDelay <= 0 {
		return fmt.Errorf("recheck base delay must be positive")
	}

	if c.RecheckMaxDelay <= 0 {
		return fmt.Errorf("recheck max delay must be positive")
	}

	if c.RecheckBaseDelay > c.RecheckMaxDelay {
		return fmt.Errorf("recheck base delay must be less than or equal to max delay")
	}

	return nil
}

// Package common provides shared utilities for Hearth
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Hearth
type Config struct {
	Environment string            `toml:"environment"`
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	SmartThings SmartThingsConfig `toml:"smartthings"`
	Auth        AuthConfig        `toml:"auth"`
	CORS        CORSConfig        `toml:"cors"`
	Logging     LoggingConfig     `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the credential store location.
type StorageConfig struct {
	Path string `toml:"path"`
}

// SmartThingsConfig holds the upstream SmartThings API and OAuth settings.
type SmartThingsConfig struct {
	BaseURL      string `toml:"base_url"`
	AuthorizeURL string `toml:"authorize_url"`
	TokenURL     string `toml:"token_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	Scope        string `toml:"scope"`
	// PAT is an optional long-lived personal access token used as a
	// server-wide fallback binding when a user has no OAuth tokens.
	PAT       string `toml:"pat"`
	Timeout   string `toml:"timeout"`
	RateLimit int    `toml:"rate_limit"`
}

// GetTimeout parses and returns the timeout duration
func (c *SmartThingsConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// OAuthConfigured reports whether the OAuth client credentials are set.
func (c *SmartThingsConfig) OAuthConfigured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != ""
}

// AuthConfig holds the secrets used to protect API keys and OAuth state.
type AuthConfig struct {
	// APIKeyPepper is combined with raw API keys before hashing. Rotating
	// the pepper invalidates every issued key.
	APIKeyPepper string `toml:"api_key_pepper"`
	StateSecret  string `toml:"state_secret"`
	StateTTL     string `toml:"state_ttl"`
}

// GetStateTTL parses and returns the OAuth state expiry window.
func (c *AuthConfig) GetStateTTL() time.Duration {
	d, err := time.ParseDuration(c.StateTTL)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// CORSConfig holds the browser origin allow-list. A single "*" entry
// allows any origin.
type CORSConfig struct {
	AllowOrigins []string `toml:"allow_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Path: "data/credstore",
		},
		SmartThings: SmartThingsConfig{
			BaseURL:      "https://api.smartthings.com/v1",
			AuthorizeURL: "https://api.smartthings.com/oauth/authorize",
			TokenURL:     "https://api.smartthings.com/oauth/token",
			Scope:        "r:devices:* x:devices:* r:locations:*",
			Timeout:      "15s",
			RateLimit:    10,
		},
		Auth: AuthConfig{
			APIKeyPepper: "dev-pepper-change-in-production",
			StateSecret:  "dev-state-secret-change-in-production",
			StateTTL:     "15m",
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("HEARTH_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("HEARTH_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("HEARTH_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if path := os.Getenv("HEARTH_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if level := os.Getenv("HEARTH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Secrets
	if v := os.Getenv("HEARTH_API_KEY_PEPPER"); v != "" {
		config.Auth.APIKeyPepper = v
	}
	if v := os.Getenv("HEARTH_STATE_SECRET"); v != "" {
		config.Auth.StateSecret = v
	}

	// SmartThings overrides
	if v := os.Getenv("HEARTH_ST_BASE_URL"); v != "" {
		config.SmartThings.BaseURL = v
	}
	if v := os.Getenv("HEARTH_ST_CLIENT_ID"); v != "" {
		config.SmartThings.ClientID = v
	}
	if v := os.Getenv("HEARTH_ST_CLIENT_SECRET"); v != "" {
		config.SmartThings.ClientSecret = v
	}
	if v := os.Getenv("HEARTH_ST_REDIRECT_URI"); v != "" {
		config.SmartThings.RedirectURI = v
	}
	if v := os.Getenv("HEARTH_ST_SCOPE"); v != "" {
		config.SmartThings.Scope = v
	}
	if v := os.Getenv("HEARTH_ST_PAT"); v != "" {
		config.SmartThings.PAT = v
	}

	if v := os.Getenv("HEARTH_CORS_ALLOW_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		config.CORS.AllowOrigins = parts
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// Package config loads service configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Zoho struct {
		AccountsURL     string `yaml:"accounts_url"`
		APIBaseURL      string `yaml:"api_base_url"`
		ClientID        string `yaml:"client_id"`
		ClientSecret    string `yaml:"client_secret"`
		DefaultPortalID string `yaml:"default_portal_id"`
	} `yaml:"zoho"`

	RateLimit struct {
		MinSpacingMS      int `yaml:"min_spacing_ms"`
		MaxCallsPerWindow int `yaml:"max_calls_per_window"`
		WindowMS          int `yaml:"window_ms"`
	} `yaml:"rate_limit"`
}

// Load reads the config file when present, then applies environment
// overrides and validates. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Database.Path = "zohobridge.db"
	cfg.Zoho.AccountsURL = "https://accounts.zoho.com/oauth/v2/token"
	cfg.Zoho.APIBaseURL = "https://projectsapi.zoho.com/restapi"
	cfg.RateLimit.MinSpacingMS = 1000
	cfg.RateLimit.MaxCallsPerWindow = 90
	cfg.RateLimit.WindowMS = 120000
	return cfg
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "ZB_ADDR")
	setString(&cfg.Database.Path, "ZB_DB_PATH")
	setString(&cfg.Zoho.AccountsURL, "ZOHO_ACCOUNTS_URL")
	setString(&cfg.Zoho.APIBaseURL, "ZOHO_API_BASE_URL")
	setString(&cfg.Zoho.ClientID, "ZOHO_CLIENT_ID")
	setString(&cfg.Zoho.ClientSecret, "ZOHO_CLIENT_SECRET")
	setString(&cfg.Zoho.DefaultPortalID, "ZOHO_PORTAL_ID")
	setInt(&cfg.RateLimit.MinSpacingMS, "ZB_RATE_MIN_SPACING_MS")
	setInt(&cfg.RateLimit.MaxCallsPerWindow, "ZB_RATE_MAX_CALLS")
	setInt(&cfg.RateLimit.WindowMS, "ZB_RATE_WINDOW_MS")
}

func (c *Config) validate() error {
	if c.Zoho.ClientID == "" || c.Zoho.ClientSecret == "" {
		return fmt.Errorf("zoho client_id and client_secret are required")
	}
	if c.RateLimit.MaxCallsPerWindow <= 0 || c.RateLimit.WindowMS <= 0 {
		return fmt.Errorf("rate limit window settings must be positive")
	}
	return nil
}

// MinSpacing returns the rate limit spacing as a duration.
func (c *Config) MinSpacing() time.Duration {
	return time.Duration(c.RateLimit.MinSpacingMS) * time.Millisecond
}

// Window returns the rate limit window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.RateLimit.WindowMS) * time.Millisecond
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

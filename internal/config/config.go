// Package config loads client settings: defaults, then an optional YAML file,
// then DINE_* environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks the environment variables read by Load.
const EnvPrefix = "DINE_"

type Config struct {
	API      APIConfig      `koanf:"api"`
	Checkout CheckoutConfig `koanf:"checkout"`
	Session  SessionConfig  `koanf:"session"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Log      LogConfig      `koanf:"log"`
}

type APIConfig struct {
	BaseURL   string        `koanf:"base_url"`
	Timeout   time.Duration `koanf:"timeout"`
	UserAgent string        `koanf:"user_agent"`
}

type CheckoutConfig struct {
	RedirectDelay time.Duration `koanf:"redirect_delay"`
	HomeRoute     string        `koanf:"home_route"`
}

type SessionConfig struct {
	// Dir holds session.json; empty means the per-user config dir.
	Dir        string `koanf:"dir"`
	Passphrase string `koanf:"passphrase"`
}

type CatalogConfig struct {
	FeaturedCategory string `koanf:"featured_category"`
	FeaturedLimit    int    `koanf:"featured_limit"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load builds a Config. configPath may be empty.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"api.base_url":   "https://restaurant-backend-tawny.vercel.app",
		"api.timeout":    "15s",
		"api.user_agent": "dine-cli",

		"checkout.redirect_delay": "3s",
		"checkout.home_route":     "/",

		"catalog.featured_category": "Special Dishes",
		"catalog.featured_limit":    4,

		"log.level":  "warn",
		"log.format": "console",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}
	return nil
}

var envKeyMap = map[string]string{
	"DINE_API_BASE_URL":              "api.base_url",
	"DINE_API_TIMEOUT":               "api.timeout",
	"DINE_API_USER_AGENT":            "api.user_agent",
	"DINE_CHECKOUT_REDIRECT_DELAY":   "checkout.redirect_delay",
	"DINE_CHECKOUT_HOME_ROUTE":       "checkout.home_route",
	"DINE_SESSION_DIR":               "session.dir",
	"DINE_SESSION_PASSPHRASE":        "session.passphrase",
	"DINE_CATALOG_FEATURED_CATEGORY": "catalog.featured_category",
	"DINE_CATALOG_FEATURED_LIMIT":    "catalog.featured_limit",
	"DINE_LOG_LEVEL":                 "log.level",
	"DINE_LOG_FORMAT":                "log.format",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

// Validate checks the settings that would make every request fail.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Checkout.RedirectDelay < 0 {
		return fmt.Errorf("checkout.redirect_delay must not be negative")
	}
	if c.Catalog.FeaturedLimit <= 0 {
		return fmt.Errorf("catalog.featured_limit must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

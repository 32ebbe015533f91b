// Package config builds the process configuration for stepform.
//
// Configuration is resolved once at startup and passed explicitly to every
// collaborator; nothing reads the environment at call time. Values come from
// the environment, optionally overlaid by a YAML file for deployments that
// prefer files over env vars.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultAddr          = ":8080"
	DefaultAppName       = "Stepform"
	DefaultFormID        = "me"
	DefaultCookieMaxAge  = 2 * time.Hour
	DefaultSaveDebounce  = 700 * time.Millisecond
	DefaultClientTimeout = 30 * time.Second
)

// Config holds everything the process needs: where the backend lives, how to
// present itself, and the timing knobs of the autosave loop.
type Config struct {
	// BackendURL is the base URL of the remote form API. Required.
	BackendURL string `yaml:"backend_url"`

	// Addr is the listen address of the HTTP server.
	Addr string `yaml:"addr"`

	// AppName is the display name used in page chrome.
	AppName string `yaml:"app_name"`

	// FormID selects which form definition to fetch from the backend.
	FormID string `yaml:"form_id"`

	// CookieMaxAge bounds the auth cookie lifetime.
	CookieMaxAge time.Duration `yaml:"cookie_max_age"`

	// SaveDebounce is the autosave inactivity window.
	SaveDebounce time.Duration `yaml:"save_debounce"`

	// ClientTimeout is the per-request timeout for backend calls.
	ClientTimeout time.Duration `yaml:"client_timeout"`

	// Debug widens logging.
	Debug bool `yaml:"debug"`
}

// MissingError reports an absent required configuration value.
type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("config: missing required value %s", e.Name)
}

// Default returns a Config with every optional knob at its default and no
// backend URL.
func Default() *Config {
	return &Config{
		Addr:          DefaultAddr,
		AppName:       DefaultAppName,
		FormID:        DefaultFormID,
		CookieMaxAge:  DefaultCookieMaxAge,
		SaveDebounce:  DefaultSaveDebounce,
		ClientTimeout: DefaultClientTimeout,
	}
}

// FromEnv builds a Config from the process environment on top of defaults.
// STEPFORM_CONFIG, when set, names a YAML file applied before the individual
// variables so that env always wins.
func FromEnv() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("STEPFORM_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("STEPFORM_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("STEPFORM_APP_NAME"); v != "" {
		cfg.AppName = v
	}
	if v := os.Getenv("STEPFORM_FORM_ID"); v != "" {
		cfg.FormID = v
	}
	if v := os.Getenv("STEPFORM_DEBUG"); v == "1" || v == "true" {
		cfg.Debug = true
	}
	if v := os.Getenv("STEPFORM_SAVE_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("config: bad STEPFORM_SAVE_DEBOUNCE: %w", err)
		}
		cfg.SaveDebounce = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate checks required values and repairs zero-valued knobs.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return &MissingError{Name: "BACKEND_URL"}
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.FormID == "" {
		c.FormID = DefaultFormID
	}
	if c.CookieMaxAge <= 0 {
		c.CookieMaxAge = DefaultCookieMaxAge
	}
	if c.SaveDebounce <= 0 {
		c.SaveDebounce = DefaultSaveDebounce
	}
	if c.ClientTimeout <= 0 {
		c.ClientTimeout = DefaultClientTimeout
	}
	return nil
}

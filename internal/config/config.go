package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.pushbullet.com"
	DefaultTimeout = 30 * time.Second
)

// Config holds everything the pushbullet client needs. Built once at startup
// and passed around by reference; nothing reads the environment after Load.
type Config struct {
	APIKey   string
	DeviceID string
	BaseURL  string
	Timeout  time.Duration
}

// ConfigError reports which required environment variables are missing.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing configuration: " + strings.Join(e.Missing, ", ")
}

// Load reads the process environment into a Config. It never fails; call
// Validate before using the config for anything that talks to the API.
func Load() *Config {
	cfg := &Config{
		APIKey:   os.Getenv("PUSHBULLET_API_KEY"),
		DeviceID: os.Getenv("PUSHBULLET_DEVICE_ID"),
		BaseURL:  DefaultBaseURL,
		Timeout:  DefaultTimeout,
	}

	if base := os.Getenv("PUSHBULLET_BASE_URL"); base != "" {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}

	if raw := os.Getenv("PUSHBULLET_TIMEOUT"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			log.Printf("ignoring invalid PUSHBULLET_TIMEOUT %q", raw)
		} else {
			cfg.Timeout = time.Duration(secs) * time.Second
		}
	}

	return cfg
}

// Validate checks that both credentials are present.
func (c *Config) Validate() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "PUSHBULLET_API_KEY")
	}
	if c.DeviceID == "" {
		missing = append(missing, "PUSHBULLET_DEVICE_ID")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// Package config loads webpoptimizer settings from an optional TOML file,
// overlaid by WEBPOPT_* environment variables.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Server contains HTTP listener settings.
type Server struct {
	Addr    string `toml:"addr"`
	SiteURL string `toml:"site_url"`
	// AdminRateLimit is the number of admin requests allowed per client IP
	// per minute. Zero disables limiting.
	AdminRateLimit int `toml:"admin_rate_limit"`
	// TrustedProxies is a comma-separated list of CIDR ranges whose
	// X-Forwarded-For headers are honored.
	TrustedProxies string `toml:"trusted_proxies"`
}

// Storage contains on-disk locations.
type Storage struct {
	DatabasePath string `toml:"database_path"`
	DataDir      string `toml:"data_dir"`
	InboxDir     string `toml:"inbox_dir"`
}

// Conversion contains WebP encoder settings.
type Conversion struct {
	Quality      int  `toml:"quality"`
	AutoOrient   bool `toml:"auto_orient"`
	MaxDimension int  `toml:"max_dimension"`
}

// Admin is the account allowed to trigger bulk conversion over HTTP.
type Admin struct {
	User         string `toml:"user"`
	PasswordHash string `toml:"password_hash"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Workers contains background loop timing, in seconds unless noted.
type Workers struct {
	PollInterval       int `toml:"poll_interval"`
	JanitorInterval    int `toml:"janitor_interval"`
	EventRetentionDays int `toml:"event_retention_days"`
}

// Config is the full application configuration.
type Config struct {
	Server     Server     `toml:"server"`
	Storage    Storage    `toml:"storage"`
	Conversion Conversion `toml:"conversion"`
	Admin      Admin      `toml:"admin"`
	Logging    Logging    `toml:"logging"`
	Workers    Workers    `toml:"workers"`
}

// Load reads the TOML file at path when path is not empty, applies
// environment overrides, then normalizes and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return nil, err
		}
		file, err := os.Open(expanded)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PollInterval is the inbox worker fallback scan period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Workers.PollInterval) * time.Second
}

// JanitorInterval is the period between cleanup passes.
func (c *Config) JanitorInterval() time.Duration {
	return time.Duration(c.Workers.JanitorInterval) * time.Second
}

// EventRetention is how long activity events are kept.
func (c *Config) EventRetention() time.Duration {
	return time.Duration(c.Workers.EventRetentionDays) * 24 * time.Hour
}

// TrustedProxyCIDRs parses Server.TrustedProxies.
func (c *Config) TrustedProxyCIDRs() ([]netip.Prefix, error) {
	value := strings.TrimSpace(c.Server.TrustedProxies)
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	prefixes := make([]netip.Prefix, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(trimmed)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", trimmed, err)
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}

// Encode writes cfg as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" || pathValue == ":memory:" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Normalize fills derived defaults, expands paths and clamps numeric ranges.
func (c *Config) Normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.Conversion.Quality = ClampQuality(c.Conversion.Quality)
	if c.Conversion.MaxDimension < 0 {
		c.Conversion.MaxDimension = 0
	}
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	if c.Server.Addr == "" {
		c.Server.Addr = defaultServerAddr
	}
	c.Server.SiteURL = strings.TrimSuffix(strings.TrimSpace(c.Server.SiteURL), "/")
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		c.Storage.DataDir = defaultDataDir
	}
	if c.Storage.DataDir, err = expandPath(c.Storage.DataDir); err != nil {
		return fmt.Errorf("storage.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Storage.DatabasePath) == "" {
		c.Storage.DatabasePath = filepath.Join(c.Storage.DataDir, defaultDatabaseFile)
	}
	if c.Storage.DatabasePath, err = expandPath(c.Storage.DatabasePath); err != nil {
		return fmt.Errorf("storage.database_path: %w", err)
	}
	if strings.TrimSpace(c.Storage.InboxDir) == "" {
		c.Storage.InboxDir = filepath.Join(c.Storage.DataDir, defaultInboxDir)
	}
	if c.Storage.InboxDir, err = expandPath(c.Storage.InboxDir); err != nil {
		return fmt.Errorf("storage.inbox_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// ClampQuality limits q to the encoder range [0, 100].
func ClampQuality(q int) int {
	switch {
	case q < 0:
		return 0
	case q > 100:
		return 100
	default:
		return q
	}
}

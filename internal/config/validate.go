package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateAdmin(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.AdminRateLimit < 0 {
		return errors.New("server.admin_rate_limit must not be negative")
	}
	if _, err := c.TrustedProxyCIDRs(); err != nil {
		return fmt.Errorf("server.trusted_proxies: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.PollInterval <= 0 {
		return errors.New("workers.poll_interval must be positive")
	}
	if c.Workers.JanitorInterval <= 0 {
		return errors.New("workers.janitor_interval must be positive")
	}
	if c.Workers.EventRetentionDays < 0 {
		return errors.New("workers.event_retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateAdmin() error {
	if (c.Admin.User == "") != (c.Admin.PasswordHash == "") {
		return errors.New("admin.user and admin.password_hash must be set together")
	}
	return nil
}

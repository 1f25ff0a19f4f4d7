package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "WEBPOPT_"

func (c *Config) applyEnv() error {
	c.Server.Addr = getEnv("SERVER_ADDR", c.Server.Addr)
	c.Server.SiteURL = getEnv("SITE_URL", c.Server.SiteURL)
	c.Server.TrustedProxies = getEnv("TRUSTED_PROXIES", c.Server.TrustedProxies)
	c.Storage.DatabasePath = getEnv("DATABASE_PATH", c.Storage.DatabasePath)
	c.Storage.DataDir = getEnv("DATA_DIR", c.Storage.DataDir)
	c.Storage.InboxDir = getEnv("INBOX_DIR", c.Storage.InboxDir)
	c.Admin.User = getEnv("ADMIN_USER", c.Admin.User)
	c.Admin.PasswordHash = getEnv("ADMIN_PASSWORD_HASH", c.Admin.PasswordHash)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)

	var err error
	if c.Conversion.Quality, err = getEnvInt("QUALITY", c.Conversion.Quality); err != nil {
		return err
	}
	if c.Conversion.MaxDimension, err = getEnvInt("MAX_DIMENSION", c.Conversion.MaxDimension); err != nil {
		return err
	}
	if c.Conversion.AutoOrient, err = getEnvBool("AUTO_ORIENT", c.Conversion.AutoOrient); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(EnvPrefix + key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return v, nil
}

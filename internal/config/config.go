// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinSecretKeyLength is the minimum required length for the secret key.
const MinSecretKeyLength = 32

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"AMS_DB_PATH" envDefault:"./data/ams.db"`
	SecretKey  string `env:"AMS_SECRET_KEY,required"`
	ServerHost string `env:"AMS_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"AMS_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"AMS_ENV" envDefault:"development"`
	LogLevel   string `env:"AMS_LOG_LEVEL" envDefault:"info"`
	UploadsDir string `env:"AMS_UPLOADS_DIR" envDefault:"./uploads"`

	// Session configuration
	CookieDomain  string        `env:"AMS_COOKIE_DOMAIN"`
	SessionTTL    time.Duration `env:"AMS_SESSION_TTL" envDefault:"730h"`
	RefreshWindow time.Duration `env:"AMS_SESSION_REFRESH_WINDOW" envDefault:"168h"`
	MaxSessions   int           `env:"AMS_MAX_SESSIONS_PER_USER" envDefault:"10"`

	// GeoIP configuration
	GeoIPDBPath string `env:"AMS_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// GeoIPEnabled returns true if GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SecretKey) < MinSecretKeyLength {
		return nil, fmt.Errorf("AMS_SECRET_KEY must be at least %d bytes long, got %d bytes; "+
			"generate a secure key with: openssl rand -base64 32",
			MinSecretKeyLength, len(cfg.SecretKey))
	}

	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("AMS_SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	if cfg.RefreshWindow <= 0 || cfg.RefreshWindow > cfg.SessionTTL {
		return nil, fmt.Errorf("AMS_SESSION_REFRESH_WINDOW must be positive and no longer than the session TTL")
	}
	if cfg.MaxSessions < 1 {
		return nil, fmt.Errorf("AMS_MAX_SESSIONS_PER_USER must be at least 1, got %d", cfg.MaxSessions)
	}

	return cfg, nil
}

// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

// Package config loads and validates the application configuration.
//
// Configuration is layered with Koanf v2 (highest priority wins):
//
//  1. Environment variables
//  2. Optional YAML config file (CONFIG_PATH or config.yaml)
//  3. Built-in defaults
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// Environment is "development" or "production". Production tightens
	// validation (secret length, CORS).
	Environment string `koanf:"environment"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	// Path is the SQLite database file. ":memory:" is accepted for tests.
	Path string `koanf:"path"`
}

// SecurityConfig holds authentication and transport-security settings.
type SecurityConfig struct {
	// JWTSecret signs access and refresh tokens (HS256). 32+ characters
	// required in production.
	JWTSecret string `koanf:"jwt_secret"`

	// PasswordPepper is appended to passwords before bcrypt hashing.
	PasswordPepper string `koanf:"password_pepper"`

	// AccessTokenTTL bounds the lifetime of access tokens.
	AccessTokenTTL time.Duration `koanf:"access_token_ttl"`

	// RefreshTokenTTL bounds the lifetime of refresh tokens.
	RefreshTokenTTL time.Duration `koanf:"refresh_token_ttl"`

	// TokenStorePath is the BadgerDB directory holding refresh tokens.
	TokenStorePath string `koanf:"token_store_path"`

	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment != "production"
}

// Validate checks the configuration for values that would make the server
// unsafe or unable to start. Returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if !c.IsDevelopment() && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.Security.AccessTokenTTL <= 0 {
		return fmt.Errorf("security.access_token_ttl must be positive")
	}
	if c.Security.RefreshTokenTTL <= c.Security.AccessTokenTTL {
		return fmt.Errorf("security.refresh_token_ttl must exceed access_token_ttl")
	}
	if c.Security.TokenStorePath == "" {
		return fmt.Errorf("security.token_store_path is required")
	}
	return nil
}

// ShouldWarnAboutCORS reports whether the CORS configuration allows any
// origin. Wildcard CORS combined with cookie-carried credentials is a
// credential-theft vector, so main() logs loudly when it is set.
func (c *Config) ShouldWarnAboutCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

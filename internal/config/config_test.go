// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = "test-secret-that-is-long-enough-0123"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults with secret",
			mutate: func(c *Config) {},
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "port too large",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.Security.JWTSecret = "" },
			wantErr: "JWT_SECRET",
		},
		{
			name: "short secret rejected in production",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
				c.Security.JWTSecret = "short"
			},
			wantErr: "32 characters",
		},
		{
			name: "short secret accepted in development",
			mutate: func(c *Config) {
				c.Server.Environment = "development"
				c.Security.JWTSecret = "short"
			},
		},
		{
			name: "refresh ttl must exceed access ttl",
			mutate: func(c *Config) {
				c.Security.AccessTokenTTL = time.Hour
				c.Security.RefreshTokenTTL = time.Minute
			},
			wantErr: "refresh_token_ttl",
		},
		{
			name:    "missing token store path",
			mutate:  func(c *Config) { c.Security.TokenStorePath = "" },
			wantErr: "token_store_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := validConfig()
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false for default environment")
	}

	cfg.Server.Environment = "production"
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true for production")
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	cfg := validConfig()
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("ShouldWarnAboutCORS() = false with the wildcard default")
	}

	cfg.Security.CORSOrigins = []string{"https://chat.example.com"}
	if cfg.ShouldWarnAboutCORS() {
		t.Error("ShouldWarnAboutCORS() = true with explicit origins")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret-that-is-long-enough-01234")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("DISABLE_RATE_LIMIT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.Environment != "production" {
		t.Errorf("Environment = %q, want production", cfg.Server.Environment)
	}
	if !cfg.Security.RateLimitDisabled {
		t.Error("RateLimitDisabled = false, want true")
	}

	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.Security.CORSOrigins) != len(want) {
		t.Fatalf("CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	for i := range want {
		if cfg.Security.CORSOrigins[i] != want[i] {
			t.Errorf("CORSOrigins[%d] = %q, want %q", i, cfg.Security.CORSOrigins[i], want[i])
		}
	}
}

func TestLoad_UnknownEnvVarsIgnored(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret-that-is-long-enough-01234")
	t.Setenv("PATH_INFO_UNRELATED", "should-not-leak")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want default", cfg.Server.Host)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	if got := envTransformFunc("JWT_SECRET"); got != "security.jwt_secret" {
		t.Errorf("envTransformFunc(JWT_SECRET) = %q", got)
	}
	if got := envTransformFunc("HOME"); got != "" {
		t.Errorf("envTransformFunc(HOME) = %q, want empty", got)
	}
}

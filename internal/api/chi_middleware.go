// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tetatet-chat/tetatet/internal/config"
)

// loginRateLimit is stricter than the general limit to slow credential
// stuffing: 5 attempts per minute per IP.
const (
	loginRateLimitRequests = 5
	loginRateLimitWindow   = time.Minute
)

// ChiMiddleware provides the router's CORS and rate-limiting middleware,
// built from the service configuration.
type ChiMiddleware struct {
	cfg  *config.SecurityConfig
	cors func(http.Handler) http.Handler
}

// NewChiMiddleware creates the middleware factory.
func NewChiMiddleware(cfg *config.SecurityConfig) *ChiMiddleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	})

	return &ChiMiddleware{cfg: cfg, cors: corsHandler}
}

// CORS returns the CORS middleware. Must be global so OPTIONS preflights
// reach it before routing.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the general per-IP rate limiter.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return passthrough
	}

	return httprate.Limit(
		m.cfg.RateLimitReqs,
		m.cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)
}

// RateLimitLogin returns the stricter limiter for credential endpoints.
func (m *ChiMiddleware) RateLimitLogin() func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return passthrough
	}

	return httprate.Limit(
		loginRateLimitRequests,
		loginRateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)
}

func passthrough(next http.Handler) http.Handler {
	return next
}

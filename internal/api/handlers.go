// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

// Package api provides the HTTP surface: REST handlers for accounts, chats,
// messages, and reactions, plus the websocket endpoint that feeds the
// realtime layer. Routing uses chi.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tetatet-chat/tetatet/internal/auth"
	"github.com/tetatet-chat/tetatet/internal/config"
	"github.com/tetatet-chat/tetatet/internal/database"
	"github.com/tetatet-chat/tetatet/internal/models"
	"github.com/tetatet-chat/tetatet/internal/realtime"
)

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	db            *database.DB
	tokens        *auth.TokenManager
	hasher        *auth.PasswordHasher
	refreshStore  *auth.RefreshTokenStore
	authenticator *auth.Authenticator
	registry      *realtime.Registry
	dispatcher    *realtime.Dispatcher
	cfg           *config.Config
	upgrader      websocket.Upgrader
}

// NewHandler wires the handler dependencies.
func NewHandler(
	db *database.DB,
	tokens *auth.TokenManager,
	hasher *auth.PasswordHasher,
	refreshStore *auth.RefreshTokenStore,
	authenticator *auth.Authenticator,
	registry *realtime.Registry,
	dispatcher *realtime.Dispatcher,
	cfg *config.Config,
) *Handler {
	return &Handler{
		db:            db,
		tokens:        tokens,
		hasher:        hasher,
		refreshStore:  refreshStore,
		authenticator: authenticator,
		registry:      registry,
		dispatcher:    dispatcher,
		cfg:           cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers cannot set custom headers on websocket dials; the
			// cookie carries the credential and CORS guards the REST surface.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady reports readiness: the database must answer a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, models.CodeInternal, "Database not ready", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"status":      "ready",
		"connections": h.registry.Count(),
	})
}

// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tetatet-chat/tetatet/internal/logging"
	"github.com/tetatet-chat/tetatet/internal/metrics"
	"github.com/tetatet-chat/tetatet/internal/models"
	"github.com/tetatet-chat/tetatet/internal/realtime"
)

// WebSocket upgrades the connection and runs the session lifecycle:
// authenticate, register, pump until disconnect, then conditionally
// deregister. Authentication happens after the upgrade so the failure can
// be reported with a policy-violation close frame; an expired token is as
// much a rejection as a forged one.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}

	user, err := h.resolveWSUser(r)
	if err != nil {
		metrics.WSAuthRejections.Inc()
		logging.Ctx(r.Context()).Info().Err(err).Msg("Websocket authentication rejected")

		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second))
		_ = conn.Close()
		return
	}

	session := realtime.NewSession(user.UserID, conn)
	h.registry.Register(user.UserID, session)

	logging.Ctx(r.Context()).Info().
		Int64("user_id", user.UserID).
		Str("tag", user.Tag).
		Msg("Websocket session opened")

	// Blocks until the connection drops, then removes its own entry,
	// unless a newer session for the same user has replaced it.
	session.Run()
	h.registry.Unregister(user.UserID, session)

	logging.Info().
		Int64("user_id", user.UserID).
		Msg("Websocket session closed")
}

// resolveWSUser authenticates the upgrade request. Besides the header and
// cookie the REST surface accepts, a raw access token is taken from the
// token query parameter for clients that can set neither on a dial.
func (h *Handler) resolveWSUser(r *http.Request) (*models.User, error) {
	if token := r.URL.Query().Get("token"); token != "" {
		return h.authenticator.ResolveUser(r.Context(), token)
	}
	return h.authenticator.ResolveRequest(r)
}

// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tetatet-chat/tetatet/internal/logging"
	"github.com/tetatet-chat/tetatet/internal/models"
)

// userContextKey is the context key for the authenticated user.
type userContextKey struct{}

// UserFromContext returns the authenticated user stored by Middleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*models.User)
	return user, ok
}

// ContextWithUser stores the authenticated user in the context.
// Exported for tests that exercise handlers directly.
func ContextWithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// Middleware returns HTTP middleware that requires a valid access token.
// Requests without one are rejected with 403 and an INVALID_TOKEN error,
// before the handler runs.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := a.ResolveRequest(r)
			if err != nil {
				logging.Ctx(r.Context()).Debug().
					Err(err).
					Str("path", r.URL.Path).
					Msg("Request authentication failed")
				writeAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// writeAuthError writes the standard envelope for authentication failures.
func writeAuthError(w http.ResponseWriter, err error) {
	message := "Invalid or missing token"
	if errors.Is(err, ErrTokenExpired) {
		message = "Token expired"
	}

	resp := models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    models.CodeInvalidToken,
			Message: message,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		logging.Warn().Err(encodeErr).Msg("Failed to encode auth error response")
	}
}

// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tetatet-chat/tetatet/internal/database"
	"github.com/tetatet-chat/tetatet/internal/models"
)

// CookieName is the cookie the browser client stores tokens in. Its value
// is "Bearer <token>", mirroring the Authorization header format.
const CookieName = "jwt"

// ErrNoCredentials is returned when a request carries no token at all.
var ErrNoCredentials = errors.New("no credentials provided")

// Authenticator resolves request credentials to a stored user. It is used
// by both the HTTP middleware and the websocket upgrade path.
type Authenticator struct {
	tokens *TokenManager
	db     *database.DB
}

// NewAuthenticator creates an authenticator over the token manager and
// user storage.
func NewAuthenticator(tokens *TokenManager, db *database.DB) *Authenticator {
	return &Authenticator{tokens: tokens, db: db}
}

// ResolveUser validates an access token and loads the user it identifies.
// Expired tokens fail with ErrTokenExpired; a valid token for a deleted
// user fails with database.ErrUserNotFound.
func (a *Authenticator) ResolveUser(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := a.tokens.ValidateToken(tokenString, TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	user, err := a.db.GetUserByTag(ctx, claims.Tag())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token subject: %w", err)
	}

	return user, nil
}

// ResolveRequest extracts the access token from an HTTP request and
// resolves it to a user. The token is read from the Authorization header
// or, failing that, the jwt cookie; both carry "Bearer <token>".
func (a *Authenticator) ResolveRequest(r *http.Request) (*models.User, error) {
	tokenString, err := TokenFromRequest(r)
	if err != nil {
		return nil, err
	}
	return a.ResolveUser(r.Context(), tokenString)
}

// TokenFromRequest extracts the raw access token from the Authorization
// header or the jwt cookie.
func TokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return stripBearer(header)
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoCredentials
	}

	return stripBearer(cookie.Value)
}

func stripBearer(value string) (string, error) {
	token, found := strings.CutPrefix(value, "Bearer ")
	if !found || token == "" {
		return "", ErrTokenInvalid
	}
	return token, nil
}

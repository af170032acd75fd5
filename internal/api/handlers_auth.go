// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/tetatet-chat/tetatet/internal/auth"
	"github.com/tetatet-chat/tetatet/internal/database"
	"github.com/tetatet-chat/tetatet/internal/logging"
	"github.com/tetatet-chat/tetatet/internal/models"
)

// Login exchanges credentials for a token pair. The access token is also
// set as the jwt cookie so browser clients authenticate transparently.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.db.GetUserByTag(r.Context(), req.Tag)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			// Indistinguishable from a wrong password; no user enumeration.
			respondError(w, http.StatusUnauthorized, models.CodeIncorrectCredentials, "Incorrect tag or password", nil)
			return
		}
		respondDomainError(w, err)
		return
	}

	if err := h.hasher.Verify(user.PasswordHashed, req.Password); err != nil {
		if errors.Is(err, auth.ErrIncorrectPassword) {
			logging.Ctx(r.Context()).Info().Str("tag", sanitizeLogValue(req.Tag)).Msg("Login rejected")
		}
		respondDomainError(w, err)
		return
	}

	pair, err := h.issueTokenPair(r, user.Tag)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	h.setAuthCookie(w, pair.AccessToken)
	logging.Ctx(r.Context()).Info().Str("tag", user.Tag).Msg("User logged in")
	respondData(w, http.StatusOK, pair)
}

// Refresh issues a new token pair. The caller presents its (possibly
// expired) access token as usual plus the refresh token in the body; the
// refresh token must match the one stored for the access token's subject.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	accessToken, err := auth.TokenFromRequest(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	// The access token may be past its expiry here; only its signature and
	// subject matter.
	accessClaims, err := h.tokens.DecodeExpired(accessToken, auth.TokenTypeAccess)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	tag := accessClaims.Tag()

	refreshClaims, err := h.tokens.ValidateToken(req.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if refreshClaims.Tag() != tag {
		respondError(w, http.StatusForbidden, models.CodeInvalidToken, "Invalid or expired token", nil)
		return
	}

	stored, err := h.refreshStore.Get(r.Context(), tag)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(req.RefreshToken)) != 1 {
		respondError(w, http.StatusForbidden, models.CodeInvalidToken, "Invalid or expired token", nil)
		return
	}

	pair, err := h.issueTokenPair(r, tag)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	h.setAuthCookie(w, pair.AccessToken)
	logging.Ctx(r.Context()).Debug().Str("tag", tag).Msg("Token pair refreshed")
	respondData(w, http.StatusOK, pair)
}

// Logout revokes the caller's refresh token and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, models.CodeInvalidToken, "Invalid or missing token", nil)
		return
	}

	if err := h.refreshStore.Delete(r.Context(), user.Tag); err != nil {
		respondDomainError(w, err)
		return
	}

	h.clearAuthCookie(w)
	logging.Ctx(r.Context()).Info().Str("tag", user.Tag).Msg("User logged out")
	respondData(w, http.StatusOK, models.OkResponse{Ok: true})
}

// issueTokenPair mints an access/refresh pair and persists the refresh half.
func (h *Handler) issueTokenPair(r *http.Request, tag string) (*models.TokenPairResponse, error) {
	access, err := h.tokens.GenerateAccessToken(tag)
	if err != nil {
		return nil, err
	}

	refresh, err := h.tokens.GenerateRefreshToken(tag)
	if err != nil {
		return nil, err
	}

	if err := h.refreshStore.Save(r.Context(), tag, refresh); err != nil {
		return nil, err
	}

	return &models.TokenPairResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func (h *Handler) setAuthCookie(w http.ResponseWriter, accessToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "Bearer " + accessToken,
		Path:     "/",
		MaxAge:   int(h.cfg.Security.AccessTokenTTL / time.Second),
		HttpOnly: true,
		Secure:   !h.cfg.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !h.cfg.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	})
}

// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package api

import (
	"errors"
	"net/http"

	"github.com/tetatet-chat/tetatet/internal/auth"
	"github.com/tetatet-chat/tetatet/internal/database"
	"github.com/tetatet-chat/tetatet/internal/models"
)

// respondDomainError maps storage and auth errors to HTTP responses.
// Anything unrecognized becomes a 500 with the internal code.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrUserNotFound):
		respondError(w, http.StatusNotFound, models.CodeNotFound, "User not found", nil)
	case errors.Is(err, database.ErrChatNotFound):
		respondError(w, http.StatusNotFound, models.CodeNotFound, "Chat not found", nil)
	case errors.Is(err, database.ErrMessageNotFound):
		respondError(w, http.StatusNotFound, models.CodeNotFound, "Message not found", nil)
	case errors.Is(err, database.ErrReactionNotFound):
		respondError(w, http.StatusNotFound, models.CodeNotFound, "Reaction not found", nil)
	case errors.Is(err, database.ErrTagTaken):
		respondError(w, http.StatusConflict, models.CodeIntegrity, "Tag already taken", nil)
	case errors.Is(err, database.ErrChatExists):
		respondError(w, http.StatusConflict, models.CodeIntegrity, "Chat already exists", nil)
	case errors.Is(err, database.ErrReactionExists):
		respondError(w, http.StatusConflict, models.CodeIntegrity, "Reaction already placed", nil)
	case errors.Is(err, database.ErrContactExists):
		respondError(w, http.StatusConflict, models.CodeIntegrity, "Contact already added", nil)
	case errors.Is(err, auth.ErrIncorrectPassword):
		respondError(w, http.StatusUnauthorized, models.CodeIncorrectCredentials, "Incorrect tag or password", nil)
	case errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrRefreshNotFound),
		errors.Is(err, auth.ErrNoCredentials):
		respondError(w, http.StatusForbidden, models.CodeInvalidToken, "Invalid or expired token", nil)
	default:
		respondError(w, http.StatusInternalServerError, models.CodeInternal, "Internal server error", err)
	}
}

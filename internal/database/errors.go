// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package database

import (
	"errors"
	"io"
	"strings"

	"github.com/tetatet-chat/tetatet/internal/logging"
)

// Sentinel errors returned by the repository methods. Handlers map these to
// API error codes; anything else is a 500.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrTagTaken         = errors.New("tag already taken")
	ErrChatNotFound     = errors.New("chat not found")
	ErrChatExists       = errors.New("chat between these users already exists")
	ErrMessageNotFound  = errors.New("message not found")
	ErrReactionNotFound = errors.New("reaction not found")
	ErrReactionExists   = errors.New("reaction already exists")
	ErrContactExists    = errors.New("contact already added")
)

// isUniqueConstraintError reports whether err is a SQLite unique constraint
// violation. modernc.org/sqlite surfaces these as textual errors carrying the
// SQLITE_CONSTRAINT_UNIQUE message.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// closeRowsWithLog closes a rows iterator and logs any error.
func closeRowsWithLog(closer io.Closer, what string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", what).Err(err).Msg("Failed to close resource")
	}
}

// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

// Package auth provides password hashing, JWT issuance and validation, the
// durable refresh-token store, and the HTTP middleware that resolves the
// authenticated user for protected routes.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrIncorrectPassword is returned when a password does not match the stored hash.
var ErrIncorrectPassword = errors.New("incorrect password")

// PasswordHasher hashes and verifies passwords with bcrypt. A server-side
// pepper is appended to the password before hashing so a leaked database
// alone is not enough to mount an offline attack.
type PasswordHasher struct {
	pepper string
	cost   int
}

// NewPasswordHasher creates a hasher with the given pepper at bcrypt's
// default cost.
func NewPasswordHasher(pepper string) *PasswordHasher {
	return &PasswordHasher{pepper: pepper, cost: bcrypt.DefaultCost}
}

// Hash derives a bcrypt hash for storage.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password+h.pepper), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify compares a candidate password against a stored hash.
// Returns ErrIncorrectPassword on mismatch.
func (h *PasswordHasher) Verify(hashed, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password+h.pepper))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrIncorrectPassword
		}
		return fmt.Errorf("failed to verify password: %w", err)
	}
	return nil
}

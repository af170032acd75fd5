// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/tetatet-chat/tetatet/internal/config"
)

func newTestTokenManager(t *testing.T, accessTTL, refreshTTL time.Duration) *TokenManager {
	t.Helper()

	m, err := NewTokenManager(&config.SecurityConfig{
		JWTSecret:       "test-secret-that-is-long-enough-0123",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
	})
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	return m
}

func TestNewTokenManager_RequiresSecret(t *testing.T) {
	if _, err := NewTokenManager(&config.SecurityConfig{}); err == nil {
		t.Error("NewTokenManager() with empty secret should fail")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestTokenManager(t, 10*time.Minute, 24*time.Hour)

	access, err := m.GenerateAccessToken("alice")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := m.ValidateToken(access, TokenTypeAccess)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Tag() != "alice" {
		t.Errorf("Tag() = %q, want alice", claims.Tag())
	}

	t.Run("access token rejected as refresh", func(t *testing.T) {
		if _, err := m.ValidateToken(access, TokenTypeRefresh); !errors.Is(err, ErrWrongTokenType) {
			t.Errorf("ValidateToken(access as refresh) error = %v, want ErrWrongTokenType", err)
		}
	})

	t.Run("refresh token validates as refresh", func(t *testing.T) {
		refresh, err := m.GenerateRefreshToken("alice")
		if err != nil {
			t.Fatalf("GenerateRefreshToken() error = %v", err)
		}
		if _, err := m.ValidateToken(refresh, TokenTypeRefresh); err != nil {
			t.Errorf("ValidateToken(refresh) error = %v", err)
		}
	})
}

func TestValidateToken_Failures(t *testing.T) {
	m := newTestTokenManager(t, 10*time.Minute, 24*time.Hour)

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.ValidateToken("not.a.token", TokenTypeAccess); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("ValidateToken(garbage) error = %v, want ErrTokenInvalid", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := newTestTokenManager(t, 10*time.Minute, 24*time.Hour)
		other.secret = []byte("a-completely-different-secret-value")

		token, err := other.GenerateAccessToken("alice")
		if err != nil {
			t.Fatalf("GenerateAccessToken() error = %v", err)
		}
		if _, err := m.ValidateToken(token, TokenTypeAccess); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("ValidateToken(wrong secret) error = %v, want ErrTokenInvalid", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		short := newTestTokenManager(t, -time.Minute, 24*time.Hour)
		token, err := short.GenerateAccessToken("alice")
		if err != nil {
			t.Fatalf("GenerateAccessToken() error = %v", err)
		}
		if _, err := m.ValidateToken(token, TokenTypeAccess); !errors.Is(err, ErrTokenExpired) {
			t.Errorf("ValidateToken(expired) error = %v, want ErrTokenExpired", err)
		}
	})
}

func TestDecodeExpired(t *testing.T) {
	// Issued already expired; ValidateToken must refuse it but DecodeExpired
	// must still recover the subject for the refresh flow.
	expired := newTestTokenManager(t, -time.Minute, 24*time.Hour)
	token, err := expired.GenerateAccessToken("alice")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	if _, err := expired.ValidateToken(token, TokenTypeAccess); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("ValidateToken() error = %v, want ErrTokenExpired", err)
	}

	claims, err := expired.DecodeExpired(token, TokenTypeAccess)
	if err != nil {
		t.Fatalf("DecodeExpired() error = %v", err)
	}
	if claims.Tag() != "alice" {
		t.Errorf("Tag() = %q, want alice", claims.Tag())
	}

	t.Run("signature still checked", func(t *testing.T) {
		other := newTestTokenManager(t, time.Minute, 24*time.Hour)
		other.secret = []byte("a-completely-different-secret-value")

		if _, err := other.DecodeExpired(token, TokenTypeAccess); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("DecodeExpired(wrong secret) error = %v, want ErrTokenInvalid", err)
		}
	})
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher("pepper")

	hashed, err := h.Hash("correcthorse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := h.Verify(hashed, "correcthorse"); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}

	if err := h.Verify(hashed, "wrongpassword"); !errors.Is(err, ErrIncorrectPassword) {
		t.Errorf("Verify(wrong) error = %v, want ErrIncorrectPassword", err)
	}

	t.Run("pepper participates", func(t *testing.T) {
		other := NewPasswordHasher("different-pepper")
		if err := other.Verify(hashed, "correcthorse"); !errors.Is(err, ErrIncorrectPassword) {
			t.Errorf("Verify() with different pepper error = %v, want ErrIncorrectPassword", err)
		}
	})
}

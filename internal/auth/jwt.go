// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tetatet-chat/tetatet/internal/config"
)

// Token kinds carried in the claims. Access tokens authenticate requests and
// websocket upgrades; refresh tokens only mint new pairs.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Token errors.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims are the JWT claims issued by this service. Subject carries the
// user's tag.
type Claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Tag returns the user tag the token was issued for.
func (c *Claims) Tag() string {
	return c.Subject
}

// TokenManager creates and validates the service's JWT tokens.
// Uses HMAC-SHA256 signing; the secret is held as []byte.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager creates a token manager from the security configuration.
func NewTokenManager(cfg *config.SecurityConfig) (*TokenManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}

	return &TokenManager{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

// GenerateAccessToken issues a short-lived access token for the user tag.
func (m *TokenManager) GenerateAccessToken(tag string) (string, error) {
	return m.generate(tag, TokenTypeAccess, m.accessTTL)
}

// GenerateRefreshToken issues a refresh token for the user tag.
func (m *TokenManager) GenerateRefreshToken(tag string) (string, error) {
	return m.generate(tag, TokenTypeRefresh, m.refreshTTL)
}

func (m *TokenManager) generate(tag, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			// The ID makes every token unique even when two are minted for
			// the same subject within the same second.
			ID:        uuid.NewString(),
			Subject:   tag,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// ValidateToken verifies the signature and time claims of a token and
// checks it is of the wanted type. Expired tokens return ErrTokenExpired;
// all other failures return ErrTokenInvalid.
func (m *TokenManager) ValidateToken(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, m.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// DecodeExpired verifies the signature of a token but ignores its time
// claims. The refresh flow uses this to recover the subject of an access
// token that has already expired.
func (m *TokenManager) DecodeExpired(tokenString, wantType string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, m.keyFunc)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// keyFunc rejects any signing algorithm other than HMAC to prevent
// algorithm confusion attacks.
func (m *TokenManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return m.secret, nil
}

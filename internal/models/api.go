// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package models

import "time"

// APIResponse is the uniform envelope for every HTTP response body.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// APIError is the error content of an APIResponse.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error codes shared with clients. The set follows the original protocol so
// existing clients keep working.
const (
	CodeIncorrectCredentials = "INCORRECT_CREDENTIALS"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeNoAccess             = "NO_ACCESS"
	CodeNotFound             = "NOT_FOUND_ERROR"
	CodeValidation           = "VALIDATION_ERROR"
	CodeIntegrity            = "INTEGRITY_ERROR"
	CodeInternal             = "INTERNAL_ERROR"
)

// SignupRequest creates a new account.
type SignupRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=40"`
	Surname   string `json:"surname" validate:"required,min=1,max=40"`
	Tag       string `json:"tag" validate:"required,usertag"`
	Password  string `json:"password" validate:"required,min=8,max=40"`
}

// LoginRequest exchanges credentials for a token pair.
type LoginRequest struct {
	Tag      string `json:"tag" validate:"required,min=4,max=20"`
	Password string `json:"password" validate:"required,min=8,max=40"`
}

// RefreshRequest exchanges an expired access token plus a live refresh
// token for a fresh pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPairResponse carries a freshly issued token pair.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UpdateProfileRequest updates the caller's profile.
type UpdateProfileRequest struct {
	Bio *string `json:"bio" validate:"omitempty,max=255"`
}

// CreateChatRequest opens a chat with the user identified by tag.
type CreateChatRequest struct {
	Tag string `json:"tag" validate:"required,min=4,max=20"`
}

// MessageCreateRequest posts a message to a chat.
type MessageCreateRequest struct {
	Text string `json:"text" validate:"required,min=1,max=2047"`
}

// MessageEditRequest replaces a message's text.
type MessageEditRequest struct {
	Text string `json:"text" validate:"required,min=1,max=2047"`
}

// ReactionCreateRequest attaches a reaction to a message.
type ReactionCreateRequest struct {
	ReactionType ReactionType `json:"reaction_type" validate:"required,oneof=like laugh sad angry fire"`
}

// OkResponse is the minimal success body for mutations without a richer
// representation.
type OkResponse struct {
	Ok bool `json:"ok"`
}

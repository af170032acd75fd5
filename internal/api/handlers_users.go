// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tetatet-chat/tetatet/internal/auth"
	"github.com/tetatet-chat/tetatet/internal/logging"
	"github.com/tetatet-chat/tetatet/internal/models"
)

// Signup creates a new account and returns its public representation.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hashed, err := h.hasher.Hash(req.Password)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	user := &models.User{
		FirstName:      req.FirstName,
		Surname:        req.Surname,
		Tag:            req.Tag,
		PasswordHashed: hashed,
	}
	if err := h.db.CreateUser(r.Context(), user); err != nil {
		respondDomainError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("tag", user.Tag).Int64("user_id", user.UserID).Msg("User created")
	respondData(w, http.StatusCreated, user.Public())
}

// Me returns the caller's profile with contacts.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	contacts, err := h.db.GetContacts(r.Context(), user.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondData(w, http.StatusOK, models.UserPublicWithContacts{
		UserPublic: user.Public(),
		Contacts:   contacts,
	})
}

// UpdateProfile updates the caller's bio.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req models.UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	updated, err := h.db.UpdateBio(r.Context(), user.UserID, req.Bio)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondData(w, http.StatusOK, updated.Public())
}

// UserByID returns another user's public profile.
func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParamInt64(r, "user_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "Invalid user id", nil)
		return
	}

	user, err := h.db.GetUserByID(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondData(w, http.StatusOK, user.Public())
}

// UserByTag returns the public profile for a handle.
func (h *Handler) UserByTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	if tag == "" {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "Invalid tag", nil)
		return
	}

	user, err := h.db.GetUserByTag(r.Context(), tag)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondData(w, http.StatusOK, user.Public())
}

// Contacts returns the caller's contact list.
func (h *Handler) Contacts(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	contacts, err := h.db.GetContacts(r.Context(), user.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondData(w, http.StatusOK, contacts)
}

// AddContact adds a user to the caller's contact list.
func (h *Handler) AddContact(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	contactID, err := urlParamInt64(r, "user_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "Invalid user id", nil)
		return
	}
	if contactID == user.UserID {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "Cannot add yourself as a contact", nil)
		return
	}

	if err := h.db.AddContact(r.Context(), user.UserID, contactID); err != nil {
		respondDomainError(w, err)
		return
	}

	respondData(w, http.StatusCreated, models.OkResponse{Ok: true})
}

// RemoveContact removes a user from the caller's contact list.
func (h *Handler) RemoveContact(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	contactID, err := urlParamInt64(r, "user_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "Invalid user id", nil)
		return
	}

	if err := h.db.RemoveContact(r.Context(), user.UserID, contactID); err != nil {
		respondDomainError(w, err)
		return
	}

	respondData(w, http.StatusOK, models.OkResponse{Ok: true})
}

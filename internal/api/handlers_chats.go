// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package api

import (
	"fmt"
	"net/http"

	"github.com/tetatet-chat/tetatet/internal/auth"
	"github.com/tetatet-chat/tetatet/internal/logging"
	"github.com/tetatet-chat/tetatet/internal/models"
	"github.com/tetatet-chat/tetatet/internal/realtime"
)

// CreateChat opens a chat between the caller and the user named by tag.
// Both participants are notified with a chat.created event after commit.
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req models.CreateChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if req.Tag == user.Tag {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "Cannot open a chat with yourself", nil)
		return
	}

	other, err := h.db.GetUserByTag(r.Context(), req.Tag)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	title := fmt.Sprintf("%s %s & %s %s", user.FirstName, user.Surname, other.FirstName, other.Surname)
	chat, err := h.db.CreateChat(r.Context(), title, user.UserID, other.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	// Fan-out strictly after commit; delivery failures never surface here.
	h.dispatcher.Fanout(chat.Participants(), realtime.NewChatCreated(chat.Public()))

	logging.Ctx(r.Context()).Info().
		Int64("conversation_id", chat.ConversationID).
		Int64("user_id", user.UserID).
		Int64("peer_id", other.UserID).
		Msg("Chat created")
	respondData(w, http.StatusCreated, chat.Public())
}

// ListChats returns the caller's chats, each with its latest message.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	previews, err := h.db.ListChats(r.Context(), user.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondData(w, http.StatusOK, previews)
}

// GetChat returns one chat the caller participates in.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	chat, ok := h.chatForParticipant(w, r, user.UserID)
	if !ok {
		return
	}

	respondData(w, http.StatusOK, chat.Public())
}

// DeleteChat removes a chat and its history. Both participants are
// notified with a chat.deleted event after commit.
func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	chat, ok := h.chatForParticipant(w, r, user.UserID)
	if !ok {
		return
	}

	if err := h.db.DeleteChat(r.Context(), chat.ConversationID); err != nil {
		respondDomainError(w, err)
		return
	}

	h.dispatcher.Fanout(chat.Participants(), realtime.NewChatDeleted(chat.ConversationID))

	logging.Ctx(r.Context()).Info().
		Int64("conversation_id", chat.ConversationID).
		Int64("user_id", user.UserID).
		Msg("Chat deleted")
	respondData(w, http.StatusOK, models.OkResponse{Ok: true})
}

// chatForParticipant loads the chat from the chat_id URL parameter and
// checks the caller is a participant. Writes the error response itself
// on failure.
func (h *Handler) chatForParticipant(w http.ResponseWriter, r *http.Request, userID int64) (*models.Chat, bool) {
	chatID, err := urlParamInt64(r, "chat_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "Invalid chat id", nil)
		return nil, false
	}

	chat, err := h.db.GetChat(r.Context(), chatID)
	if err != nil {
		respondDomainError(w, err)
		return nil, false
	}

	if !chat.IsParticipant(userID) {
		respondError(w, http.StatusForbidden, models.CodeNoAccess, "Not a participant of this chat", nil)
		return nil, false
	}

	return chat, true
}

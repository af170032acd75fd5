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
	"github.com/tetatet-chat/tetatet/internal/realtime"
)

// defaultMessagePageSize bounds unpaginated history requests.
const defaultMessagePageSize = 100

// ListMessages returns a page of a chat's history, oldest first.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	chat, ok := h.chatForParticipant(w, r, user.UserID)
	if !ok {
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", defaultMessagePageSize)

	messages, err := h.db.ListMessages(r.Context(), chat.ConversationID, offset, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	public := make([]models.MessagePublic, len(messages))
	for i := range messages {
		public[i] = messages[i].Public()
	}

	respondData(w, http.StatusOK, public)
}

// CreateMessage posts a message to a chat. Both participants, the author
// included, receive a message.created event after commit.
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	chat, ok := h.chatForParticipant(w, r, user.UserID)
	if !ok {
		return
	}

	var req models.MessageCreateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := h.db.CreateMessage(r.Context(), chat.ConversationID, user.UserID, req.Text)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	h.dispatcher.Fanout(chat.Participants(), realtime.NewMessageCreated(msg.Public()))

	logging.Ctx(r.Context()).Debug().
		Int64("conversation_id", chat.ConversationID).
		Int64("message_id", msg.MessageID).
		Msg("Message created")
	respondData(w, http.StatusCreated, msg.Public())
}

// EditMessage replaces a message's text. Only the author may edit; both
// participants receive a message.updated event.
func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	msg, chat, ok := h.messageForParticipant(w, r, user.UserID)
	if !ok {
		return
	}
	if msg.UserID != user.UserID {
		respondError(w, http.StatusForbidden, models.CodeNoAccess, "Only the author can edit a message", nil)
		return
	}

	var req models.MessageEditRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	updated, err := h.db.UpdateMessageText(r.Context(), msg.MessageID, req.Text)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	h.dispatcher.Fanout(chat.Participants(), realtime.NewMessageUpdated(updated.Public()))

	respondData(w, http.StatusOK, updated.Public())
}

// DeleteMessage removes a message. Only the author may delete; both
// participants receive a message.deleted event.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	msg, chat, ok := h.messageForParticipant(w, r, user.UserID)
	if !ok {
		return
	}
	if msg.UserID != user.UserID {
		respondError(w, http.StatusForbidden, models.CodeNoAccess, "Only the author can delete a message", nil)
		return
	}

	if err := h.db.DeleteMessage(r.Context(), msg.MessageID); err != nil {
		respondDomainError(w, err)
		return
	}

	h.dispatcher.Fanout(chat.Participants(), realtime.NewMessageDeleted(msg.MessageID, chat.ConversationID))

	respondData(w, http.StatusOK, models.OkResponse{Ok: true})
}

// AddReaction places a reaction on a message in a chat the caller
// participates in. Both participants receive a reaction.added event.
func (h *Handler) AddReaction(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	msg, chat, ok := h.messageForParticipant(w, r, user.UserID)
	if !ok {
		return
	}

	var req models.ReactionCreateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if _, err := h.db.AddReaction(r.Context(), msg.MessageID, user.UserID, req.ReactionType); err != nil {
		respondDomainError(w, err)
		return
	}

	h.dispatcher.Fanout(chat.Participants(),
		realtime.NewReactionAdded(msg.MessageID, chat.ConversationID, user.UserID, req.ReactionType))

	respondData(w, http.StatusCreated, models.OkResponse{Ok: true})
}

// RemoveReaction removes the caller's reaction of the given kind. Both
// participants receive a reaction.removed event.
func (h *Handler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	msg, chat, ok := h.messageForParticipant(w, r, user.UserID)
	if !ok {
		return
	}

	reactionType := models.ReactionType(chi.URLParam(r, "reaction_type"))
	if !models.ValidReactionType(reactionType) {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "Unknown reaction type", nil)
		return
	}

	if err := h.db.RemoveReaction(r.Context(), msg.MessageID, user.UserID, reactionType); err != nil {
		respondDomainError(w, err)
		return
	}

	h.dispatcher.Fanout(chat.Participants(),
		realtime.NewReactionRemoved(msg.MessageID, chat.ConversationID, user.UserID, reactionType))

	respondData(w, http.StatusOK, models.OkResponse{Ok: true})
}

// messageForParticipant loads the message from the message_id URL
// parameter and checks the caller participates in its chat.
func (h *Handler) messageForParticipant(w http.ResponseWriter, r *http.Request, userID int64) (*models.Message, *models.Chat, bool) {
	messageID, err := urlParamInt64(r, "message_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "Invalid message id", nil)
		return nil, nil, false
	}

	msg, err := h.db.GetMessage(r.Context(), messageID)
	if err != nil {
		respondDomainError(w, err)
		return nil, nil, false
	}

	chat, err := h.db.GetChat(r.Context(), msg.ConversationID)
	if err != nil {
		respondDomainError(w, err)
		return nil, nil, false
	}

	if !chat.IsParticipant(userID) {
		respondError(w, http.StatusForbidden, models.CodeNoAccess, "Not a participant of this chat", nil)
		return nil, nil, false
	}

	return msg, chat, true
}

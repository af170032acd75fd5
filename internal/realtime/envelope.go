// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package realtime

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tetatet-chat/tetatet/internal/models"
)

// EventType identifies one kind of realtime event. The set is closed;
// clients switch on it exhaustively.
type EventType string

const (
	EventMessageCreated  EventType = "message.created"
	EventMessageUpdated  EventType = "message.updated"
	EventMessageDeleted  EventType = "message.deleted"
	EventReactionAdded   EventType = "reaction.added"
	EventReactionRemoved EventType = "reaction.removed"
	EventChatCreated     EventType = "chat.created"
	EventChatDeleted     EventType = "chat.deleted"
	EventNotification    EventType = "notification"
	EventError           EventType = "error"
)

// KnownEventType reports whether t is one of the defined event kinds.
func KnownEventType(t EventType) bool {
	switch t {
	case EventMessageCreated, EventMessageUpdated, EventMessageDeleted,
		EventReactionAdded, EventReactionRemoved,
		EventChatCreated, EventChatDeleted,
		EventNotification, EventError:
		return true
	}
	return false
}

// Envelope is the wire shape of every realtime event. Envelopes are
// immutable values: constructed once, then only read.
type Envelope struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// Encode serializes the envelope for the socket.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s envelope: %w", e.Type, err)
	}
	return data, nil
}

// MessageDeletedPayload identifies a removed message.
type MessageDeletedPayload struct {
	MessageID      int64 `json:"message_id"`
	ConversationID int64 `json:"conversation_id"`
}

// ReactionEventPayload describes a reaction placed on or removed from a message.
type ReactionEventPayload struct {
	MessageID      int64               `json:"message_id"`
	ConversationID int64               `json:"conversation_id"`
	ReactionType   models.ReactionType `json:"reaction_type"`
	UserID         int64               `json:"user_id"`
}

// ChatDeletedPayload identifies a removed chat.
type ChatDeletedPayload struct {
	ConversationID int64 `json:"conversation_id"`
}

// NotificationPayload carries a free-form server notice.
type NotificationPayload struct {
	Message string `json:"message"`
}

// ErrorPayload reports a server-side failure to the client.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessageCreated wraps a freshly stored message.
func NewMessageCreated(msg models.MessagePublic) Envelope {
	return Envelope{Type: EventMessageCreated, Payload: msg}
}

// NewMessageUpdated wraps an edited message.
func NewMessageUpdated(msg models.MessagePublic) Envelope {
	return Envelope{Type: EventMessageUpdated, Payload: msg}
}

// NewMessageDeleted announces a message removal.
func NewMessageDeleted(messageID, conversationID int64) Envelope {
	return Envelope{
		Type:    EventMessageDeleted,
		Payload: MessageDeletedPayload{MessageID: messageID, ConversationID: conversationID},
	}
}

// NewReactionAdded announces a reaction placement.
func NewReactionAdded(messageID, conversationID, userID int64, reactionType models.ReactionType) Envelope {
	return Envelope{
		Type: EventReactionAdded,
		Payload: ReactionEventPayload{
			MessageID:      messageID,
			ConversationID: conversationID,
			ReactionType:   reactionType,
			UserID:         userID,
		},
	}
}

// NewReactionRemoved announces a reaction removal.
func NewReactionRemoved(messageID, conversationID, userID int64, reactionType models.ReactionType) Envelope {
	return Envelope{
		Type: EventReactionRemoved,
		Payload: ReactionEventPayload{
			MessageID:      messageID,
			ConversationID: conversationID,
			ReactionType:   reactionType,
			UserID:         userID,
		},
	}
}

// NewChatCreated wraps a freshly created chat.
func NewChatCreated(chat models.ChatPublic) Envelope {
	return Envelope{Type: EventChatCreated, Payload: chat}
}

// NewChatDeleted announces a chat removal.
func NewChatDeleted(conversationID int64) Envelope {
	return Envelope{
		Type:    EventChatDeleted,
		Payload: ChatDeletedPayload{ConversationID: conversationID},
	}
}

// NewNotification wraps a server notice.
func NewNotification(message string) Envelope {
	return Envelope{Type: EventNotification, Payload: NotificationPayload{Message: message}}
}

// NewError wraps a server-side failure report.
func NewError(code, message string) Envelope {
	return Envelope{Type: EventError, Payload: ErrorPayload{Code: code, Message: message}}
}

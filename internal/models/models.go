// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

// Package models defines the domain entities and wire representations
// shared across the storage, API, and realtime layers.
package models

import "time"

// ConversationType distinguishes one-to-one chats from group conversations.
// Only one-to-one chats are implemented; the column exists so group support
// is an additive migration.
type ConversationType string

const (
	ConversationChat  ConversationType = "chat"
	ConversationGroup ConversationType = "group"
)

// ReactionType is the closed set of reactions a message can carry.
type ReactionType string

const (
	ReactionLike  ReactionType = "like"
	ReactionLaugh ReactionType = "laugh"
	ReactionSad   ReactionType = "sad"
	ReactionAngry ReactionType = "angry"
	ReactionFire  ReactionType = "fire"
)

// ValidReactionType reports whether t is one of the known reaction kinds.
func ValidReactionType(t ReactionType) bool {
	switch t {
	case ReactionLike, ReactionLaugh, ReactionSad, ReactionAngry, ReactionFire:
		return true
	}
	return false
}

// User is the stored account record. PasswordHashed never leaves the
// process; wire responses use UserPublic.
type User struct {
	UserID         int64  `json:"user_id"`
	FirstName      string `json:"first_name"`
	Surname        string `json:"surname"`
	Tag            string `json:"tag"`
	PasswordHashed string `json:"-"`
	Bio            string `json:"bio"`
}

// Public returns the wire representation of the user.
func (u *User) Public() UserPublic {
	return UserPublic{
		UserID:    u.UserID,
		FirstName: u.FirstName,
		Surname:   u.Surname,
		Tag:       u.Tag,
		Bio:       u.Bio,
	}
}

// UserPublic is the externally visible user shape.
type UserPublic struct {
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Tag       string `json:"tag"`
	Bio       string `json:"bio,omitempty"`
}

// UserPublicWithContacts extends UserPublic with the contact list.
type UserPublicWithContacts struct {
	UserPublic
	Contacts []UserPublic `json:"contacts"`
}

// Chat is a one-to-one conversation between exactly two users.
type Chat struct {
	ConversationID int64            `json:"conversation_id"`
	Type           ConversationType `json:"type"`
	Title          string           `json:"title"`
	UserID         int64            `json:"user_id"`
	UserID2        int64            `json:"user_id2"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Participants returns the set of user identities entitled to receive
// events concerning this chat.
func (c *Chat) Participants() []int64 {
	return []int64{c.UserID, c.UserID2}
}

// IsParticipant reports whether userID is one of the chat's two members.
func (c *Chat) IsParticipant(userID int64) bool {
	return userID == c.UserID || userID == c.UserID2
}

// ChatPublic is the externally visible chat shape.
type ChatPublic struct {
	ConversationID int64  `json:"conversation_id"`
	Title          string `json:"title"`
	UserID         int64  `json:"user_id"`
	UserID2        int64  `json:"user_id2"`
}

// Public returns the wire representation of the chat.
func (c *Chat) Public() ChatPublic {
	return ChatPublic{
		ConversationID: c.ConversationID,
		Title:          c.Title,
		UserID:         c.UserID,
		UserID2:        c.UserID2,
	}
}

// Message is a stored chat message with its reactions.
type Message struct {
	MessageID      int64     `json:"message_id"`
	ConversationID int64     `json:"conversation_id"`
	UserID         int64     `json:"user_id"`
	Text           string    `json:"text"`
	IsEdited       bool      `json:"is_edited"`
	CreatedAt      time.Time `json:"created_at"`

	Reactions []ReactionPublic `json:"reactions"`
}

// MessagePublic is the externally visible message shape; it is also the
// payload of message.created and message.updated events.
type MessagePublic struct {
	MessageID      int64            `json:"message_id"`
	ConversationID int64            `json:"conversation_id"`
	UserID         int64            `json:"user_id"`
	Text           string           `json:"text"`
	IsEdited       bool             `json:"is_edited"`
	CreatedAt      time.Time        `json:"created_at"`
	Reactions      []ReactionPublic `json:"reactions"`
}

// Public returns the wire representation of the message. Reactions is
// never nil so the JSON field encodes as [] rather than null.
func (m *Message) Public() MessagePublic {
	reactions := m.Reactions
	if reactions == nil {
		reactions = []ReactionPublic{}
	}
	return MessagePublic{
		MessageID:      m.MessageID,
		ConversationID: m.ConversationID,
		UserID:         m.UserID,
		Text:           m.Text,
		IsEdited:       m.IsEdited,
		CreatedAt:      m.CreatedAt,
		Reactions:      reactions,
	}
}

// Reaction is a stored reaction row.
type Reaction struct {
	ReactionID   int64        `json:"reaction_id"`
	ReactionType ReactionType `json:"reaction_type"`
	MessageID    int64        `json:"message_id"`
	UserID       int64        `json:"user_id"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ReactionPublic is the externally visible reaction shape.
type ReactionPublic struct {
	ReactionType ReactionType `json:"reaction_type"`
	UserID       int64        `json:"user_id"`
}

// ChatPreview is one row of the chat list: the chat plus its most recent
// message, if any.
type ChatPreview struct {
	ChatPublic
	LastMessage *MessagePublic `json:"last_message,omitempty"`
}

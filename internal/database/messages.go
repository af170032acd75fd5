// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tetatet-chat/tetatet/internal/metrics"
	"github.com/tetatet-chat/tetatet/internal/models"
)

// CreateMessage inserts a message into a conversation and returns the stored
// row. The new message carries no reactions.
func (db *DB) CreateMessage(ctx context.Context, conversationID, userID int64, text string) (*models.Message, error) {
	createdAt := time.Now().UTC()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, user_id, text, is_edited, created_at)
		VALUES (?, ?, ?, 0, ?)`,
		conversationID, userID, text, createdAt)
	metrics.RecordDBQuery("insert", "messages", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new message id: %w", err)
	}

	return &models.Message{
		MessageID:      id,
		ConversationID: conversationID,
		UserID:         userID,
		Text:           text,
		CreatedAt:      createdAt,
		Reactions:      []models.ReactionPublic{},
	}, nil
}

const messageColumns = `message_id, conversation_id, user_id, text, is_edited, created_at`

// GetMessage retrieves a message with its reactions.
func (db *DB) GetMessage(ctx context.Context, messageID int64) (*models.Message, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE message_id = ?`, messageID)
	m, err := scanMessage(row)
	metrics.RecordDBQuery("select", "messages", time.Since(start), ignoreNotFound(err))
	if err != nil {
		return nil, err
	}

	reactions, err := db.messageReactions(ctx, m.MessageID)
	if err != nil {
		return nil, err
	}
	m.Reactions = reactions

	return m, nil
}

// ListMessages returns a page of messages in a conversation, oldest first.
// Offset and limit page through history; limit <= 0 means no limit.
func (db *DB) ListMessages(ctx context.Context, conversationID int64, offset, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ?
		ORDER BY message_id
		LIMIT ? OFFSET ?`,
		conversationID, limit, offset)
	metrics.RecordDBQuery("select", "messages", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer closeRowsWithLog(rows, "messages rows")

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.MessageID, &m.ConversationID, &m.UserID, &m.Text, &m.IsEdited, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating messages: %w", err)
	}

	// One query for the whole page's reactions beats a query per message.
	if len(messages) > 0 {
		if err := db.attachReactions(ctx, messages); err != nil {
			return nil, err
		}
	}

	return messages, nil
}

// UpdateMessageText replaces the message text and marks it edited.
func (db *DB) UpdateMessageText(ctx context.Context, messageID int64, text string) (*models.Message, error) {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE messages SET text = ?, is_edited = 1 WHERE message_id = ?`,
		text, messageID)
	metrics.RecordDBQuery("update", "messages", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrMessageNotFound
	}

	return db.GetMessage(ctx, messageID)
}

// DeleteMessage removes a message and, via cascade, its reactions.
func (db *DB) DeleteMessage(ctx context.Context, messageID int64) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM messages WHERE message_id = ?`, messageID)
	metrics.RecordDBQuery("delete", "messages", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// lastMessage returns the newest message in a conversation, or nil if the
// conversation is empty.
func (db *DB) lastMessage(ctx context.Context, conversationID int64) (*models.Message, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ?
		ORDER BY message_id DESC
		LIMIT 1`, conversationID)
	m, err := scanMessage(row)
	metrics.RecordDBQuery("select", "messages", time.Since(start), ignoreNotFound(err))
	if errors.Is(err, ErrMessageNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	reactions, err := db.messageReactions(ctx, m.MessageID)
	if err != nil {
		return nil, err
	}
	m.Reactions = reactions

	return m, nil
}

// attachReactions loads reactions for a page of messages in one query.
func (db *DB) attachReactions(ctx context.Context, messages []models.Message) error {
	index := make(map[int64]int, len(messages))
	args := make([]any, 0, len(messages))
	placeholders := ""
	for i := range messages {
		messages[i].Reactions = []models.ReactionPublic{}
		index[messages[i].MessageID] = i
		args = append(args, messages[i].MessageID)
		if placeholders != "" {
			placeholders += ", "
		}
		placeholders += "?"
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT message_id, reaction_type, user_id FROM reactions
		WHERE message_id IN (`+placeholders+`)
		ORDER BY reaction_id`, args...)
	metrics.RecordDBQuery("select", "reactions", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to list reactions: %w", err)
	}
	defer closeRowsWithLog(rows, "reactions rows")

	for rows.Next() {
		var messageID int64
		var r models.ReactionPublic
		if err := rows.Scan(&messageID, &r.ReactionType, &r.UserID); err != nil {
			return fmt.Errorf("failed to scan reaction: %w", err)
		}
		if i, ok := index[messageID]; ok {
			messages[i].Reactions = append(messages[i].Reactions, r)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed iterating reactions: %w", err)
	}

	return nil
}

func scanMessage(row *sql.Row) (*models.Message, error) {
	var m models.Message
	if err := row.Scan(&m.MessageID, &m.ConversationID, &m.UserID, &m.Text, &m.IsEdited, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}
	return &m, nil
}

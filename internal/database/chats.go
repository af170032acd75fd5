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

// CreateChat creates a one-to-one chat between userID and userID2 together
// with its backing conversation row. Returns ErrChatExists if a chat between
// the pair already exists in either order.
func (db *DB) CreateChat(ctx context.Context, title string, userID, userID2 int64) (*models.Chat, error) {
	if existing, err := db.GetChatBetween(ctx, userID, userID2); err == nil && existing != nil {
		return nil, ErrChatExists
	} else if err != nil && !errors.Is(err, ErrChatNotFound) {
		return nil, err
	}

	tx, err := db.beginTx(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (type) VALUES (?)`, models.ConversationChat)
	if err != nil {
		rollbackQuietly(tx)
		metrics.RecordDBQuery("insert", "conversations", time.Since(start), err)
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	conversationID, err := res.LastInsertId()
	if err != nil {
		rollbackQuietly(tx)
		return nil, fmt.Errorf("failed to read new conversation id: %w", err)
	}

	createdAt := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO chats (conversation_id, title, user_id, user_id2, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		conversationID, title, userID, userID2, createdAt)
	if err != nil {
		rollbackQuietly(tx)
		metrics.RecordDBQuery("insert", "chats", time.Since(start), err)
		if isUniqueConstraintError(err) {
			return nil, ErrChatExists
		}
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordDBQuery("insert", "chats", time.Since(start), err)
		return nil, fmt.Errorf("failed to commit chat: %w", err)
	}
	metrics.RecordDBQuery("insert", "chats", time.Since(start), nil)

	return &models.Chat{
		ConversationID: conversationID,
		Type:           models.ConversationChat,
		Title:          title,
		UserID:         userID,
		UserID2:        userID2,
		CreatedAt:      createdAt,
	}, nil
}

const chatColumns = `c.conversation_id, v.type, c.title, c.user_id, c.user_id2, c.created_at`

const chatSelect = `SELECT ` + chatColumns + `
	FROM chats c
	JOIN conversations v ON v.conversation_id = c.conversation_id`

// GetChat retrieves a chat by conversation id.
func (db *DB) GetChat(ctx context.Context, conversationID int64) (*models.Chat, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, chatSelect+` WHERE c.conversation_id = ?`, conversationID)
	c, err := scanChat(row)
	metrics.RecordDBQuery("select", "chats", time.Since(start), ignoreNotFound(err))
	return c, err
}

// GetChatBetween retrieves the chat between two users, in either order.
func (db *DB) GetChatBetween(ctx context.Context, userID, userID2 int64) (*models.Chat, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, chatSelect+`
		WHERE (c.user_id = ? AND c.user_id2 = ?) OR (c.user_id = ? AND c.user_id2 = ?)`,
		userID, userID2, userID2, userID)
	c, err := scanChat(row)
	metrics.RecordDBQuery("select", "chats", time.Since(start), ignoreNotFound(err))
	return c, err
}

// ListChats returns all chats the user participates in, newest first, each
// with its most recent message when one exists.
func (db *DB) ListChats(ctx context.Context, userID int64) ([]models.ChatPreview, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, chatSelect+`
		WHERE c.user_id = ? OR c.user_id2 = ?
		ORDER BY c.created_at DESC`, userID, userID)
	metrics.RecordDBQuery("select", "chats", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer closeRowsWithLog(rows, "chats rows")

	var chats []models.Chat
	for rows.Next() {
		var c models.Chat
		if err := rows.Scan(&c.ConversationID, &c.Type, &c.Title, &c.UserID, &c.UserID2, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating chats: %w", err)
	}

	previews := make([]models.ChatPreview, 0, len(chats))
	for _, c := range chats {
		preview := models.ChatPreview{ChatPublic: c.Public()}

		last, err := db.lastMessage(ctx, c.ConversationID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			pub := last.Public()
			preview.LastMessage = &pub
		}

		previews = append(previews, preview)
	}

	return previews, nil
}

// DeleteChat removes the chat and, via cascade, its messages and reactions.
func (db *DB) DeleteChat(ctx context.Context, conversationID int64) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM conversations WHERE conversation_id = ?`, conversationID)
	metrics.RecordDBQuery("delete", "conversations", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrChatNotFound
	}

	return nil
}

func scanChat(row *sql.Row) (*models.Chat, error) {
	var c models.Chat
	if err := row.Scan(&c.ConversationID, &c.Type, &c.Title, &c.UserID, &c.UserID2, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to scan chat: %w", err)
	}
	return &c, nil
}

// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tetatet-chat/tetatet/internal/metrics"
	"github.com/tetatet-chat/tetatet/internal/models"
)

// AddReaction records a reaction on a message. A user can place each
// reaction kind at most once per message; duplicates return ErrReactionExists.
func (db *DB) AddReaction(ctx context.Context, messageID, userID int64, reactionType models.ReactionType) (*models.Reaction, error) {
	createdAt := time.Now().UTC()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO reactions (reaction_type, message_id, user_id, created_at)
		VALUES (?, ?, ?, ?)`,
		reactionType, messageID, userID, createdAt)
	metrics.RecordDBQuery("insert", "reactions", time.Since(start), err)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrReactionExists
		}
		return nil, fmt.Errorf("failed to add reaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new reaction id: %w", err)
	}

	return &models.Reaction{
		ReactionID:   id,
		ReactionType: reactionType,
		MessageID:    messageID,
		UserID:       userID,
		CreatedAt:    createdAt,
	}, nil
}

// RemoveReaction deletes the user's reaction of the given kind from a message.
func (db *DB) RemoveReaction(ctx context.Context, messageID, userID int64, reactionType models.ReactionType) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM reactions WHERE message_id = ? AND user_id = ? AND reaction_type = ?`,
		messageID, userID, reactionType)
	metrics.RecordDBQuery("delete", "reactions", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to remove reaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrReactionNotFound
	}

	return nil
}

// messageReactions returns the reactions on a single message in placement order.
func (db *DB) messageReactions(ctx context.Context, messageID int64) ([]models.ReactionPublic, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT reaction_type, user_id FROM reactions
		WHERE message_id = ?
		ORDER BY reaction_id`, messageID)
	metrics.RecordDBQuery("select", "reactions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions: %w", err)
	}
	defer closeRowsWithLog(rows, "reactions rows")

	reactions := []models.ReactionPublic{}
	for rows.Next() {
		var r models.ReactionPublic
		if err := rows.Scan(&r.ReactionType, &r.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan reaction: %w", err)
		}
		reactions = append(reactions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating reactions: %w", err)
	}

	return reactions, nil
}

// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

// Package database provides SQLite-backed persistence for users, contacts,
// chats, messages, and reactions. All access goes through the DB type; the
// schema is created on open so a fresh data directory is usable immediately.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tetatet-chat/tetatet/internal/config"
	"github.com/tetatet-chat/tetatet/internal/logging"
)

// DB wraps the SQLite connection and provides data access methods.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the database file and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	// Ensure parent directory exists for the database file.
	// 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301.
	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	// WAL keeps readers unblocked during message writes; busy_timeout covers
	// the brief writer lock handoff instead of surfacing SQLITE_BUSY.
	connStr := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", cfg.Path)

	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc.org/sqlite is a single-writer engine; one connection avoids
	// lock contention between the API handlers.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	db := &DB{conn: conn, cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.ensureSchema(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Msg("Database opened")

	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Ping verifies the connection is alive. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// ensureSchema creates all tables and indexes if they do not exist.
func (db *DB) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id         INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name      TEXT NOT NULL,
			surname         TEXT NOT NULL,
			tag             TEXT NOT NULL UNIQUE,
			password_hashed TEXT NOT NULL,
			bio             TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS contacts_association (
			user_id    INTEGER NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			contact_id INTEGER NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, contact_id)
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id INTEGER PRIMARY KEY AUTOINCREMENT,
			type            TEXT NOT NULL CHECK (type IN ('chat', 'group'))
		)`,
		`CREATE TABLE IF NOT EXISTS chats (
			conversation_id INTEGER PRIMARY KEY REFERENCES conversations(conversation_id) ON DELETE CASCADE,
			title           TEXT NOT NULL,
			user_id         INTEGER NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			user_id2        INTEGER NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			created_at      TIMESTAMP NOT NULL,
			UNIQUE (user_id, user_id2)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id      INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id INTEGER NOT NULL REFERENCES conversations(conversation_id) ON DELETE CASCADE,
			user_id         INTEGER NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			text            TEXT NOT NULL,
			is_edited       INTEGER NOT NULL DEFAULT 0,
			created_at      TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, message_id)`,
		`CREATE TABLE IF NOT EXISTS reactions (
			reaction_id   INTEGER PRIMARY KEY AUTOINCREMENT,
			reaction_type TEXT NOT NULL CHECK (reaction_type IN ('like', 'laugh', 'sad', 'angry', 'fire')),
			message_id    INTEGER NOT NULL REFERENCES messages(message_id) ON DELETE CASCADE,
			user_id       INTEGER NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			created_at    TIMESTAMP NOT NULL,
			UNIQUE (message_id, user_id, reaction_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reactions_message ON reactions(message_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}

	return nil
}

// beginTx starts a transaction; callers must commit or roll back.
func (db *DB) beginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// rollbackQuietly rolls back a transaction and ignores the error, for use in
// error paths where the original error is the one worth returning.
func rollbackQuietly(tx *sql.Tx) {
	_ = tx.Rollback()
}

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

// CreateUser inserts a new account. The password must already be hashed.
// Returns ErrTagTaken when the tag is in use.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	start := time.Now()

	query := `INSERT INTO users (first_name, surname, tag, password_hashed, bio)
		VALUES (?, ?, ?, ?, ?)`

	res, err := db.conn.ExecContext(ctx, query,
		user.FirstName, user.Surname, user.Tag, user.PasswordHashed, user.Bio,
	)
	metrics.RecordDBQuery("insert", "users", time.Since(start), err)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrTagTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new user id: %w", err)
	}
	user.UserID = id

	return nil
}

const userColumns = `user_id, first_name, surname, tag, password_hashed, bio`

// GetUserByID retrieves a user by primary key.
func (db *DB) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID)
	u, err := scanUser(row)
	metrics.RecordDBQuery("select", "users", time.Since(start), ignoreNotFound(err))
	return u, err
}

// GetUserByTag retrieves a user by their unique handle.
func (db *DB) GetUserByTag(ctx context.Context, tag string) (*models.User, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE tag = ?`, tag)
	u, err := scanUser(row)
	metrics.RecordDBQuery("select", "users", time.Since(start), ignoreNotFound(err))
	return u, err
}

// UpdateBio sets the user's bio. A nil bio clears it.
func (db *DB) UpdateBio(ctx context.Context, userID int64, bio *string) (*models.User, error) {
	value := ""
	if bio != nil {
		value = *bio
	}

	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET bio = ? WHERE user_id = ?`, value, userID)
	metrics.RecordDBQuery("update", "users", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to update bio: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrUserNotFound
	}

	return db.GetUserByID(ctx, userID)
}

// AddContact records contactID in userID's contact list.
// Returns ErrContactExists if already present and ErrUserNotFound if
// either side does not exist.
func (db *DB) AddContact(ctx context.Context, userID, contactID int64) error {
	if _, err := db.GetUserByID(ctx, contactID); err != nil {
		return err
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO contacts_association (user_id, contact_id) VALUES (?, ?)`,
		userID, contactID)
	metrics.RecordDBQuery("insert", "contacts_association", time.Since(start), err)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrContactExists
		}
		return fmt.Errorf("failed to add contact: %w", err)
	}

	return nil
}

// RemoveContact deletes contactID from userID's contact list.
func (db *DB) RemoveContact(ctx context.Context, userID, contactID int64) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM contacts_association WHERE user_id = ? AND contact_id = ?`,
		userID, contactID)
	metrics.RecordDBQuery("delete", "contacts_association", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to remove contact: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// GetContacts returns the user's contact list ordered by tag.
func (db *DB) GetContacts(ctx context.Context, userID int64) ([]models.UserPublic, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT u.user_id, u.first_name, u.surname, u.tag, u.bio
		FROM contacts_association ca
		JOIN users u ON u.user_id = ca.contact_id
		WHERE ca.user_id = ?
		ORDER BY u.tag`, userID)
	metrics.RecordDBQuery("select", "contacts_association", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer closeRowsWithLog(rows, "contacts rows")

	contacts := []models.UserPublic{}
	for rows.Next() {
		var c models.UserPublic
		if err := rows.Scan(&c.UserID, &c.FirstName, &c.Surname, &c.Tag, &c.Bio); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating contacts: %w", err)
	}

	return contacts, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.UserID, &u.FirstName, &u.Surname, &u.Tag, &u.PasswordHashed, &u.Bio); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// ignoreNotFound strips not-found sentinels so they don't count as query
// errors in metrics.
func ignoreNotFound(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrChatNotFound),
		errors.Is(err, ErrMessageNotFound),
		errors.Is(err, ErrReactionNotFound):
		return nil
	}
	return err
}

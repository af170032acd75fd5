// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tetatet-chat/tetatet/internal/logging"
)

// refreshKeyPrefix namespaces refresh token records in BadgerDB.
const refreshKeyPrefix = "refresh:"

// ErrRefreshNotFound is returned when no stored refresh token exists for a tag.
var ErrRefreshNotFound = errors.New("refresh token not found")

// refreshRecord is the stored value for a user's current refresh token.
// Exactly one refresh token is valid per user; issuing a new one replaces it.
type refreshRecord struct {
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

// RefreshTokenStore persists refresh tokens in BadgerDB so sessions survive
// restarts. Entries carry a TTL matching the token lifetime, so Badger
// expires stale records without an application-level sweep.
type RefreshTokenStore struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadger opens the BadgerDB at path for token storage.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store at %s: %w", path, err)
	}

	return db, nil
}

// NewRefreshTokenStore creates a store over an open BadgerDB.
func NewRefreshTokenStore(db *badger.DB, ttl time.Duration) *RefreshTokenStore {
	return &RefreshTokenStore{db: db, ttl: ttl}
}

// Save stores token as the single valid refresh token for tag, replacing
// any previous one.
func (s *RefreshTokenStore) Save(ctx context.Context, tag, token string) error {
	record := refreshRecord{Token: token, IssuedAt: time.Now().UTC()}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal refresh record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(refreshKeyPrefix+tag), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}

	return nil
}

// Get returns the stored refresh token for tag.
// Returns ErrRefreshNotFound when none exists or the entry has expired.
func (s *RefreshTokenStore) Get(ctx context.Context, tag string) (string, error) {
	var record refreshRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(refreshKeyPrefix + tag))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrRefreshNotFound
		}
		if err != nil {
			return fmt.Errorf("get refresh token: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return "", err
	}

	return record.Token, nil
}

// Delete removes the stored refresh token for tag. Deleting a missing
// record is not an error; logout is idempotent.
func (s *RefreshTokenStore) Delete(ctx context.Context, tag string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(refreshKeyPrefix + tag))
	})
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	return nil
}

// RunGC runs one round of Badger value-log garbage collection.
// badger.ErrNoRewrite means nothing needed collecting.
func (s *RefreshTokenStore) RunGC() {
	err := s.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		logging.Warn().Err(err).Msg("Token store GC failed")
	}
}

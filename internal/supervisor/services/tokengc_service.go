// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package services

import (
	"context"
	"time"
)

// GarbageCollector matches the token store's value-log GC entry point.
type GarbageCollector interface {
	RunGC()
}

// TokenGCService periodically runs value-log garbage collection on the
// refresh token store. Badger reclaims expired entries lazily, so without
// this the store grows until restart.
type TokenGCService struct {
	store    GarbageCollector
	interval time.Duration
	name     string
}

// NewTokenGCService creates a token store GC service. A zero interval
// defaults to ten minutes.
func NewTokenGCService(store GarbageCollector, interval time.Duration) *TokenGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &TokenGCService{
		store:    store,
		interval: interval,
		name:     "token-store-gc",
	}
}

// Serve implements suture.Service.
func (s *TokenGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.store.RunGC()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// String implements fmt.Stringer for suture's log messages.
func (s *TokenGCService) String() string {
	return s.name
}

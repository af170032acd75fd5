// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package realtime

import (
	"sync"

	"github.com/tetatet-chat/tetatet/internal/logging"
	"github.com/tetatet-chat/tetatet/internal/metrics"
)

// Registry maps user ids to their live websocket session. All methods are
// safe for concurrent use; the map is the only shared state in the package.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]*Session)}
}

// Register installs or replaces the session for userID. A replaced session
// is left untouched: its own lifecycle handler closes it when its read
// loop ends, and its conditional Unregister cannot evict the new entry.
func (r *Registry) Register(userID int64, s *Session) {
	r.mu.Lock()
	prev := r.sessions[userID]
	r.sessions[userID] = s
	count := len(r.sessions)
	r.mu.Unlock()

	metrics.WSActiveConnections.Set(float64(count))
	logging.Debug().
		Int64("user_id", userID).
		Bool("replaced", prev != nil).
		Int("total_sessions", count).
		Msg("Session registered")
}

// Unregister removes the entry for userID only if it still points at s.
// A teardown racing a fresh registration for the same user is a no-op.
// Reports whether the entry was removed.
func (r *Registry) Unregister(userID int64, s *Session) bool {
	r.mu.Lock()
	current, ok := r.sessions[userID]
	removed := ok && current == s
	if removed {
		delete(r.sessions, userID)
	}
	count := len(r.sessions)
	r.mu.Unlock()

	if removed {
		metrics.WSActiveConnections.Set(float64(count))
		logging.Debug().
			Int64("user_id", userID).
			Int("total_sessions", count).
			Msg("Session unregistered")
	}

	return removed
}

// Lookup returns the live session for userID, if any.
func (r *Registry) Lookup(userID int64) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[userID]
	r.mu.RUnlock()
	return s, ok
}

// CloseAll closes every registered session. Used on shutdown after the
// HTTP server has drained, since Shutdown does not touch hijacked
// connections. Each session removes its own entry as its read loop ends.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}

	if len(sessions) > 0 {
		logging.Info().Int("sessions", len(sessions)).Msg("Closed all live websocket sessions")
	}
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

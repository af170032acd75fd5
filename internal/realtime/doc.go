// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

// Package realtime implements the presence and event fan-out layer.
//
// Three pieces cooperate:
//
//   - Registry holds the live mapping of user id to websocket session. At
//     most one session per user: a reconnect replaces the previous entry,
//     and the replaced connection tears itself down when its own read loop
//     ends. Unregister is conditional on session identity so a stale
//     teardown can never evict a newer live session.
//
//   - Envelope is the typed event wrapper written to clients. Every event
//     is one of a closed set of kinds (message.created, reaction.added,
//     chat.deleted, ...) encoded as {"type": ..., "payload": ...}.
//
//   - Dispatcher delivers envelopes to registered sessions. Delivery is
//     fire-and-forget: an offline recipient, a full send buffer, or a dead
//     peer is counted and dropped, never surfaced to the business
//     operation that triggered the event. The Dispatcher never mutates the
//     Registry; cleanup is the session's own job.
//
// A Session owns exactly one websocket connection and runs two goroutines:
// a write pump that serializes all outbound traffic (events and pings),
// and a read loop that keeps the connection alive and detects disconnects.
// Inbound frame content is ignored; the socket is server-push only.
package realtime

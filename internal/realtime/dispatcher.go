// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package realtime

import (
	"github.com/tetatet-chat/tetatet/internal/logging"
	"github.com/tetatet-chat/tetatet/internal/metrics"
)

// Dispatcher delivers envelopes to registered sessions. Delivery is
// best-effort and fire-and-forget: every failure mode is swallowed here so
// the business operation that committed the change never fails because a
// push could not be delivered. The Dispatcher only reads the Registry;
// cleanup of dead entries belongs to each session's own lifecycle.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher creates a dispatcher over the registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Send delivers an envelope to userID if they have a live session.
// An offline recipient or a backed-up session drops the event.
func (d *Dispatcher) Send(userID int64, ev Envelope) {
	session, ok := d.registry.Lookup(userID)
	if !ok {
		metrics.WSEventsDropped.WithLabelValues(metrics.DropOffline).Inc()
		return
	}

	if !session.enqueue(ev) {
		metrics.WSEventsDropped.WithLabelValues(metrics.DropBufferFull).Inc()
		logging.Debug().
			Int64("user_id", userID).
			Str("event_type", string(ev.Type)).
			Msg("Event dropped, session buffer full")
		return
	}

	metrics.WSEventsDelivered.WithLabelValues(string(ev.Type)).Inc()
}

// Fanout delivers an envelope to every listed user. Duplicate ids receive
// the event once per occurrence; callers pass each participant once.
func (d *Dispatcher) Fanout(userIDs []int64, ev Envelope) {
	for _, id := range userIDs {
		d.Send(id, ev)
	}
}

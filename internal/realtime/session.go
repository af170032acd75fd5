// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tetatet-chat/tetatet/internal/logging"
	"github.com/tetatet-chat/tetatet/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames are keep-alive only; anything larger is abuse.
	maxMessageSize = 4096

	// sendBufferSize bounds how far a slow reader can fall behind before
	// events are dropped instead of queued.
	sendBufferSize = 64

	// Inbound frame budget per session. The client has no reason to send
	// more than the occasional ping.
	inboundRate  = 5
	inboundBurst = 10
)

// Session owns one websocket connection for one user. Outbound traffic is
// funneled through a buffered channel drained by a single write pump, so
// concurrent dispatches never interleave writes on the socket.
type Session struct {
	userID  int64
	conn    *websocket.Conn
	send    chan Envelope
	limiter *rate.Limiter

	closeOnce sync.Once
	done      chan struct{}
}

// NewSession wraps an upgraded connection for the given user.
func NewSession(userID int64, conn *websocket.Conn) *Session {
	return &Session{
		userID:  userID,
		conn:    conn,
		send:    make(chan Envelope, sendBufferSize),
		limiter: rate.NewLimiter(rate.Limit(inboundRate), inboundBurst),
		done:    make(chan struct{}),
	}
}

// UserID returns the user this session belongs to.
func (s *Session) UserID() int64 {
	return s.userID
}

// enqueue hands an envelope to the write pump without blocking. Returns
// false when the session is closing or the buffer is full; the caller
// drops the event either way.
func (s *Session) enqueue(ev Envelope) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- ev:
		return true
	case <-s.done:
		return false
	default:
		return false
	}
}

// Close marks the session as closing. Safe to call from any goroutine,
// any number of times. The pumps observe done and tear the socket down.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Run services the connection until it drops: the write pump runs in a
// background goroutine while the calling goroutine blocks in the read
// loop. Run returns once the connection is dead and both pumps have been
// told to stop; the caller then unregisters its own entry.
func (s *Session) Run() {
	go s.writePump()
	s.readLoop()
}

// readLoop keeps the connection alive and detects disconnects. Inbound
// frame content is ignored; the socket is server-push only. A client that
// floods frames past the rate budget is disconnected with a policy close.
func (s *Session) readLoop() {
	defer func() {
		s.Close()
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Int64("user_id", s.userID).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Debug().Err(err).Int64("user_id", s.userID).Msg("Unexpected websocket close")
			}
			return
		}

		if !s.limiter.Allow() {
			logging.Warn().Int64("user_id", s.userID).Msg("Inbound frame rate exceeded, closing connection")
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rate limit exceeded")
			_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}

// writePump drains the send channel onto the socket and keeps the peer
// alive with periodic pings. It is the only goroutine that writes.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
		_ = s.conn.Close()
	}()

	for {
		select {
		case ev := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Int64("user_id", s.userID).Msg("Failed to set write deadline")
				return
			}

			data, err := ev.Encode()
			if err != nil {
				logging.Error().Err(err).Int64("user_id", s.userID).Msg("Failed to encode event")
				continue
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				metrics.WSEventsDropped.WithLabelValues(metrics.DropWriteError).Inc()
				logging.Debug().Err(err).Int64("user_id", s.userID).Msg("Event write failed")
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

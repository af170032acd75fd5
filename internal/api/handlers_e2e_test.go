// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tetatet-chat/tetatet/internal/auth"
	"github.com/tetatet-chat/tetatet/internal/config"
	"github.com/tetatet-chat/tetatet/internal/database"
	"github.com/tetatet-chat/tetatet/internal/models"
	"github.com/tetatet-chat/tetatet/internal/realtime"
)

const testJWTSecret = "test-secret-that-is-long-enough-0123"

type testServer struct {
	srv      *httptest.Server
	registry *realtime.Registry
	tokens   *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:        "127.0.0.1",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: config.DatabaseConfig{Path: filepath.Join(dir, "chat.db")},
		Security: config.SecurityConfig{
			JWTSecret:         testJWTSecret,
			PasswordPepper:    "pepper",
			AccessTokenTTL:    10 * time.Minute,
			RefreshTokenTTL:   24 * time.Hour,
			TokenStorePath:    filepath.Join(dir, "tokens"),
			RateLimitDisabled: true,
		},
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	badgerDB, err := auth.OpenBadger(cfg.Security.TokenStorePath)
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	t.Cleanup(func() { _ = badgerDB.Close() })

	tokens, err := auth.NewTokenManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	registry := realtime.NewRegistry()
	handler := NewHandler(
		db,
		tokens,
		auth.NewPasswordHasher(cfg.Security.PasswordPepper),
		auth.NewRefreshTokenStore(badgerDB, cfg.Security.RefreshTokenTTL),
		auth.NewAuthenticator(tokens, db),
		registry,
		realtime.NewDispatcher(registry),
		cfg,
	)

	srv := httptest.NewServer(NewRouter(handler).Setup())
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, registry: registry, tokens: tokens}
}

type apiEnvelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

// request performs a JSON API call and decodes the envelope.
func (ts *testServer) request(t *testing.T, method, path, token string, body interface{}) (int, apiEnvelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode %s %s response: %v", method, path, err)
	}

	return resp.StatusCode, envelope
}

// signupAndLogin creates an account and returns the token pair.
func (ts *testServer) signupAndLogin(t *testing.T, tag string) models.TokenPairResponse {
	t.Helper()

	status, env := ts.request(t, http.MethodPost, "/api/users", "", models.SignupRequest{
		FirstName: "Test",
		Surname:   "Tester",
		Tag:       tag,
		Password:  "password1",
	})
	if status != http.StatusCreated {
		t.Fatalf("signup %s: status = %d, error = %+v", tag, status, env.Error)
	}

	status, env = ts.request(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Tag:      tag,
		Password: "password1",
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: status = %d, error = %+v", tag, status, env.Error)
	}

	var pair models.TokenPairResponse
	if err := json.Unmarshal(env.Data, &pair); err != nil {
		t.Fatalf("decode token pair: %v", err)
	}

	return pair
}

// dial opens a websocket as the given token's user.
func (ts *testServer) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/api/ws"
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	return conn
}

// waitForSessions waits until the registry holds want sessions.
func (ts *testServer) waitForSessions(t *testing.T, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for ts.registry.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("registry has %d sessions, want %d", ts.registry.Count(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() error = %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var decoded struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", data, err)
	}

	return decoded.Type, decoded.Payload
}

// createChat opens a chat from the caller to the peer tag.
func (ts *testServer) createChat(t *testing.T, token, peerTag string) models.ChatPublic {
	t.Helper()

	status, env := ts.request(t, http.MethodPost, "/api/chats", token, models.CreateChatRequest{Tag: peerTag})
	if status != http.StatusCreated {
		t.Fatalf("create chat: status = %d, error = %+v", status, env.Error)
	}

	var chat models.ChatPublic
	if err := json.Unmarshal(env.Data, &chat); err != nil {
		t.Fatalf("decode chat: %v", err)
	}

	return chat
}

// Scenario: a message posted over HTTP reaches both connected
// participants as a message.created event matching the HTTP response.
func TestEndToEnd_MessageFanout(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.signupAndLogin(t, "alice")
	bob := ts.signupAndLogin(t, "bobby")
	chat := ts.createChat(t, alice.AccessToken, "bobby")

	aliceWS := ts.dial(t, alice.AccessToken)
	defer func() { _ = aliceWS.Close() }()
	bobWS := ts.dial(t, bob.AccessToken)
	defer func() { _ = bobWS.Close() }()
	ts.waitForSessions(t, 2)

	path := fmt.Sprintf("/api/chats/%d/messages", chat.ConversationID)
	status, env := ts.request(t, http.MethodPost, path, alice.AccessToken, models.MessageCreateRequest{Text: "hello bob"})
	if status != http.StatusCreated {
		t.Fatalf("create message: status = %d, error = %+v", status, env.Error)
	}

	var created models.MessagePublic
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode message: %v", err)
	}

	for name, conn := range map[string]*websocket.Conn{"alice": aliceWS, "bob": bobWS} {
		eventType, payload := readEvent(t, conn)
		if eventType != "message.created" {
			t.Errorf("%s received %q, want message.created", name, eventType)
		}

		var msg models.MessagePublic
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("%s payload decode: %v", name, err)
		}
		if msg.MessageID != created.MessageID || msg.Text != "hello bob" {
			t.Errorf("%s received %+v, want the posted message", name, msg)
		}
	}
}

// Scenario: an offline recipient does not fail the HTTP operation; the
// event is simply dropped for them.
func TestEndToEnd_OfflineRecipientDropped(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.signupAndLogin(t, "alice")
	ts.signupAndLogin(t, "bobby")
	chat := ts.createChat(t, alice.AccessToken, "bobby")

	aliceWS := ts.dial(t, alice.AccessToken)
	defer func() { _ = aliceWS.Close() }()
	ts.waitForSessions(t, 1)

	path := fmt.Sprintf("/api/chats/%d/messages", chat.ConversationID)
	status, env := ts.request(t, http.MethodPost, path, alice.AccessToken, models.MessageCreateRequest{Text: "anyone there?"})
	if status != http.StatusCreated {
		t.Fatalf("create message: status = %d, error = %+v", status, env.Error)
	}

	// The author still gets their own copy.
	eventType, _ := readEvent(t, aliceWS)
	if eventType != "message.created" {
		t.Errorf("author received %q, want message.created", eventType)
	}
}

// Scenario: after a reconnect, events go only to the newest connection.
func TestEndToEnd_ReconnectNewestConnectionWins(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.signupAndLogin(t, "alice")
	bob := ts.signupAndLogin(t, "bobby")
	chat := ts.createChat(t, alice.AccessToken, "bobby")

	status, env := ts.request(t, http.MethodGet, "/api/users/me", alice.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("me: status = %d, error = %+v", status, env.Error)
	}
	var me models.UserPublicWithContacts
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}

	stale := ts.dial(t, alice.AccessToken)
	defer func() { _ = stale.Close() }()
	ts.waitForSessions(t, 1)
	staleSession, _ := ts.registry.Lookup(me.UserID)

	fresh := ts.dial(t, alice.AccessToken)
	defer func() { _ = fresh.Close() }()

	// The reconnect replaces the registry entry rather than adding one.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if s, ok := ts.registry.Lookup(me.UserID); ok && s != staleSession {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("registry never picked up the replacement session")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := ts.registry.Count(); got != 1 {
		t.Fatalf("registry has %d sessions after reconnect, want 1", got)
	}

	path := fmt.Sprintf("/api/chats/%d/messages", chat.ConversationID)
	status, env = ts.request(t, http.MethodPost, path, bob.AccessToken, models.MessageCreateRequest{Text: "which window?"})
	if status != http.StatusCreated {
		t.Fatalf("create message: status = %d, error = %+v", status, env.Error)
	}

	eventType, _ := readEvent(t, fresh)
	if eventType != "message.created" {
		t.Errorf("fresh connection received %q, want message.created", eventType)
	}

	// The stale connection gets nothing.
	if err := stale.SetReadDeadline(time.Now().Add(300 * time.Millisecond)); err != nil {
		t.Fatalf("SetReadDeadline() error = %v", err)
	}
	if _, _, err := stale.ReadMessage(); err == nil {
		t.Error("stale connection received an event after being replaced")
	}
}

// Scenario: a websocket upgrade without valid credentials is accepted at
// the transport level, then closed with a policy-violation close frame.
func TestEndToEnd_WebSocketAuthRejection(t *testing.T) {
	ts := newTestServer(t)
	ts.signupAndLogin(t, "alice")

	// A correctly signed token whose lifetime has already passed.
	expiredManager, err := auth.NewTokenManager(&config.SecurityConfig{
		JWTSecret:       testJWTSecret,
		AccessTokenTTL:  -time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	expired, err := expiredManager.GenerateAccessToken("alice")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage token", "not-a-jwt"},
		{"expired token", expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := ts.dial(t, tt.token)
			defer func() { _ = conn.Close() }()

			if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
				t.Fatalf("SetReadDeadline() error = %v", err)
			}
			_, _, err := conn.ReadMessage()
			if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				t.Errorf("ReadMessage() error = %v, want close 1008", err)
			}

			if ts.registry.Count() != 0 {
				t.Errorf("registry holds %d sessions after rejected upgrade, want 0", ts.registry.Count())
			}
		})
	}
}

// The query-parameter token serves clients that can set neither a header
// nor a cookie on the dial.
func TestEndToEnd_WebSocketQueryTokenAuth(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signupAndLogin(t, "alice")

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/api/ws?token=" + alice.AccessToken
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	ts.waitForSessions(t, 1)
}

func TestEndToEnd_ChatLifecycleEvents(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.signupAndLogin(t, "alice")
	bob := ts.signupAndLogin(t, "bobby")

	bobWS := ts.dial(t, bob.AccessToken)
	defer func() { _ = bobWS.Close() }()
	ts.waitForSessions(t, 1)

	chat := ts.createChat(t, alice.AccessToken, "bobby")

	eventType, payload := readEvent(t, bobWS)
	if eventType != "chat.created" {
		t.Fatalf("received %q, want chat.created", eventType)
	}
	var created models.ChatPublic
	if err := json.Unmarshal(payload, &created); err != nil {
		t.Fatalf("decode chat payload: %v", err)
	}
	if created.ConversationID != chat.ConversationID {
		t.Errorf("event chat id = %d, want %d", created.ConversationID, chat.ConversationID)
	}

	path := fmt.Sprintf("/api/chats/%d", chat.ConversationID)
	status, env := ts.request(t, http.MethodDelete, path, alice.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("delete chat: status = %d, error = %+v", status, env.Error)
	}

	eventType, _ = readEvent(t, bobWS)
	if eventType != "chat.deleted" {
		t.Errorf("received %q, want chat.deleted", eventType)
	}
}

func TestEndToEnd_ReactionEvents(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.signupAndLogin(t, "alice")
	bob := ts.signupAndLogin(t, "bobby")
	chat := ts.createChat(t, alice.AccessToken, "bobby")

	path := fmt.Sprintf("/api/chats/%d/messages", chat.ConversationID)
	status, env := ts.request(t, http.MethodPost, path, alice.AccessToken, models.MessageCreateRequest{Text: "react to me"})
	if status != http.StatusCreated {
		t.Fatalf("create message: status = %d, error = %+v", status, env.Error)
	}
	var msg models.MessagePublic
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}

	aliceWS := ts.dial(t, alice.AccessToken)
	defer func() { _ = aliceWS.Close() }()
	ts.waitForSessions(t, 1)

	reactPath := fmt.Sprintf("/api/messages/%d/reactions", msg.MessageID)
	status, env = ts.request(t, http.MethodPost, reactPath, bob.AccessToken, models.ReactionCreateRequest{ReactionType: models.ReactionFire})
	if status != http.StatusCreated {
		t.Fatalf("add reaction: status = %d, error = %+v", status, env.Error)
	}

	eventType, payload := readEvent(t, aliceWS)
	if eventType != "reaction.added" {
		t.Fatalf("received %q, want reaction.added", eventType)
	}
	var reaction realtime.ReactionEventPayload
	if err := json.Unmarshal(payload, &reaction); err != nil {
		t.Fatalf("decode reaction payload: %v", err)
	}
	if reaction.MessageID != msg.MessageID || reaction.ReactionType != models.ReactionFire {
		t.Errorf("payload = %+v, want fire on message %d", reaction, msg.MessageID)
	}

	removePath := fmt.Sprintf("/api/messages/%d/reactions/fire", msg.MessageID)
	status, env = ts.request(t, http.MethodDelete, removePath, bob.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("remove reaction: status = %d, error = %+v", status, env.Error)
	}

	eventType, _ = readEvent(t, aliceWS)
	if eventType != "reaction.removed" {
		t.Errorf("received %q, want reaction.removed", eventType)
	}
}

func TestEndToEnd_AccessControl(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.signupAndLogin(t, "alice")
	ts.signupAndLogin(t, "bobby")
	eve := ts.signupAndLogin(t, "evelyn")
	chat := ts.createChat(t, alice.AccessToken, "bobby")

	t.Run("outsider cannot read the chat", func(t *testing.T) {
		path := fmt.Sprintf("/api/chats/%d", chat.ConversationID)
		status, env := ts.request(t, http.MethodGet, path, eve.AccessToken, nil)
		if status != http.StatusForbidden || env.Error == nil || env.Error.Code != models.CodeNoAccess {
			t.Errorf("status = %d, error = %+v, want 403 NO_ACCESS", status, env.Error)
		}
	})

	t.Run("outsider cannot post", func(t *testing.T) {
		path := fmt.Sprintf("/api/chats/%d/messages", chat.ConversationID)
		status, _ := ts.request(t, http.MethodPost, path, eve.AccessToken, models.MessageCreateRequest{Text: "let me in"})
		if status != http.StatusForbidden {
			t.Errorf("status = %d, want 403", status)
		}
	})

	t.Run("only the author can edit", func(t *testing.T) {
		path := fmt.Sprintf("/api/chats/%d/messages", chat.ConversationID)
		status, env := ts.request(t, http.MethodPost, path, alice.AccessToken, models.MessageCreateRequest{Text: "mine"})
		if status != http.StatusCreated {
			t.Fatalf("create message: status = %d", status)
		}
		var msg models.MessagePublic
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}

		bobToken := ts.signupAndLogin(t, "bobtwo") // not the author, not a participant
		editPath := fmt.Sprintf("/api/messages/%d", msg.MessageID)
		status, _ = ts.request(t, http.MethodPatch, editPath, bobToken.AccessToken, models.MessageEditRequest{Text: "hijacked"})
		if status != http.StatusForbidden {
			t.Errorf("status = %d, want 403", status)
		}
	})

	t.Run("no token", func(t *testing.T) {
		status, env := ts.request(t, http.MethodGet, "/api/chats/", "", nil)
		if status != http.StatusForbidden || env.Error == nil || env.Error.Code != models.CodeInvalidToken {
			t.Errorf("status = %d, error = %+v, want 403 INVALID_TOKEN", status, env.Error)
		}
	})
}

func TestEndToEnd_RefreshFlow(t *testing.T) {
	ts := newTestServer(t)
	pair := ts.signupAndLogin(t, "alice")

	status, env := ts.request(t, http.MethodPost, "/api/auth/refresh", pair.AccessToken,
		models.RefreshRequest{RefreshToken: pair.RefreshToken})
	if status != http.StatusOK {
		t.Fatalf("refresh: status = %d, error = %+v", status, env.Error)
	}

	var fresh models.TokenPairResponse
	if err := json.Unmarshal(env.Data, &fresh); err != nil {
		t.Fatalf("decode pair: %v", err)
	}
	if fresh.RefreshToken == pair.RefreshToken {
		t.Error("refresh returned the same refresh token")
	}

	t.Run("old refresh token is revoked", func(t *testing.T) {
		status, _ := ts.request(t, http.MethodPost, "/api/auth/refresh", fresh.AccessToken,
			models.RefreshRequest{RefreshToken: pair.RefreshToken})
		if status != http.StatusForbidden {
			t.Errorf("status = %d, want 403", status)
		}
	})

	t.Run("logout revokes the stored token", func(t *testing.T) {
		status, _ := ts.request(t, http.MethodPost, "/api/auth/logout", fresh.AccessToken, nil)
		if status != http.StatusOK {
			t.Fatalf("logout: status = %d", status)
		}

		status, _ = ts.request(t, http.MethodPost, "/api/auth/refresh", fresh.AccessToken,
			models.RefreshRequest{RefreshToken: fresh.RefreshToken})
		if status != http.StatusForbidden {
			t.Errorf("refresh after logout: status = %d, want 403", status)
		}
	})
}

// Signup shares its path prefix with the authenticated user routes but
// must stay reachable without credentials.
func TestEndToEnd_SignupNeedsNoToken(t *testing.T) {
	ts := newTestServer(t)

	status, env := ts.request(t, http.MethodPost, "/api/users", "", models.SignupRequest{
		FirstName: "Fresh",
		Surname:   "Account",
		Tag:       "fresh",
		Password:  "password1",
	})
	if status != http.StatusCreated {
		t.Fatalf("signup without token: status = %d, error = %+v", status, env.Error)
	}

	t.Run("sibling user routes still require a token", func(t *testing.T) {
		for _, path := range []string{"/api/users/me", "/api/users/tag/fresh"} {
			status, env := ts.request(t, http.MethodGet, path, "", nil)
			if status != http.StatusForbidden || env.Error == nil || env.Error.Code != models.CodeInvalidToken {
				t.Errorf("GET %s without token: status = %d, error = %+v, want 403 INVALID_TOKEN", path, status, env.Error)
			}
		}
	})
}

func TestEndToEnd_SignupValidation(t *testing.T) {
	ts := newTestServer(t)

	status, env := ts.request(t, http.MethodPost, "/api/users", "", models.SignupRequest{
		FirstName: "No",
		Surname:   "Tag",
		Tag:       "x",
		Password:  "password1",
	})
	if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != models.CodeValidation {
		t.Errorf("status = %d, error = %+v, want 400 VALIDATION_ERROR", status, env.Error)
	}

	t.Run("duplicate tag", func(t *testing.T) {
		ts.signupAndLogin(t, "alice")
		status, env := ts.request(t, http.MethodPost, "/api/users", "", models.SignupRequest{
			FirstName: "Other",
			Surname:   "Alice",
			Tag:       "alice",
			Password:  "password1",
		})
		if status != http.StatusConflict || env.Error == nil || env.Error.Code != models.CodeIntegrity {
			t.Errorf("status = %d, error = %+v, want 409 INTEGRITY_ERROR", status, env.Error)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		status, env := ts.request(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
			Tag:      "alice",
			Password: "wrongpass",
		})
		if status != http.StatusUnauthorized || env.Error == nil || env.Error.Code != models.CodeIncorrectCredentials {
			t.Errorf("status = %d, error = %+v, want 401 INCORRECT_CREDENTIALS", status, env.Error)
		}
	})
}

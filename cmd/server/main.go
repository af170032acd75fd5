// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

// Package main is the entry point for the Tetatet server.
//
// Tetatet is a self-hosted one-to-one chat service. It exposes a REST API
// for accounts, contacts, chats, messages, and reactions, plus a websocket
// endpoint that pushes chat events to connected clients in real time.
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and optional config file (Koanf v2)
//  2. Database: SQLite with WAL journaling for users, chats, and messages
//  3. Token store: BadgerDB for refresh tokens with TTL expiry
//  4. Realtime: session registry and event dispatcher
//  5. HTTP server: chi router with REST API and websocket endpoint
//  6. Supervisor tree: suture v4 manages the long-running services
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults. JWT_SECRET and PASSWORD_PEPPER are required.
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting connections, drains in-flight requests, closes the live
// websocket sessions, and closes the database and token store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tetatet-chat/tetatet/internal/api"
	"github.com/tetatet-chat/tetatet/internal/auth"
	"github.com/tetatet-chat/tetatet/internal/config"
	"github.com/tetatet-chat/tetatet/internal/database"
	"github.com/tetatet-chat/tetatet/internal/logging"
	"github.com/tetatet-chat/tetatet/internal/realtime"
	"github.com/tetatet-chat/tetatet/internal/supervisor"
	"github.com/tetatet-chat/tetatet/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet; the default logger has to do.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Msg("Starting Tetatet")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows all origins outside development; set CORS_ORIGINS")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	badgerDB, err := auth.OpenBadger(cfg.Security.TokenStorePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open token store")
	}
	defer func() {
		if err := badgerDB.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing token store")
		}
	}()

	tokens, err := auth.NewTokenManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}

	refreshStore := auth.NewRefreshTokenStore(badgerDB, cfg.Security.RefreshTokenTTL)
	hasher := auth.NewPasswordHasher(cfg.Security.PasswordPepper)
	authenticator := auth.NewAuthenticator(tokens, db)

	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry)

	handler := api.NewHandler(db, tokens, hasher, refreshStore, authenticator, registry, dispatcher, cfg)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		// No blanket read/write timeouts: websocket connections are
		// long-lived and manage their own deadlines.
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddStorageService(services.NewTokenGCService(refreshStore, 10*time.Minute))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Server.Shutdown leaves hijacked connections alone, so the websocket
	// sessions that outlived the drain are closed here.
	registry.CloseAll()

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

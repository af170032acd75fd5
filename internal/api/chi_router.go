// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tetatet-chat/tetatet/internal/middleware"
)

// Router assembles the HTTP surface from the handler and middleware.
type Router struct {
	handler *Handler
	chiMW   *ChiMiddleware
}

// NewRouter creates a router over the handler.
func NewRouter(handler *Handler) *Router {
	return &Router{
		handler: handler,
		chiMW:   NewChiMiddleware(&handler.cfg.Security),
	}
}

// Setup configures all routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	authMW := router.handler.authenticator.Middleware()

	// Global stack, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMW.CORS())

	// Operational endpoints: no auth, no rate limit.
	r.Get("/healthz/live", router.handler.HealthLive)
	r.Get("/healthz/ready", router.handler.HealthReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.chiMW.RateLimit())

		// Credential endpoints, strict limits, no auth middleware.
		r.Group(func(r chi.Router) {
			r.With(router.chiMW.RateLimitLogin()).Post("/auth/login", router.handler.Login)
			r.With(router.chiMW.RateLimitLogin()).Post("/auth/refresh", router.handler.Refresh)
			r.Post("/users", router.handler.Signup)
		})

		// Everything below requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(authMW)

			r.Post("/auth/logout", router.handler.Logout)

			// Registered flat rather than as a /users subrouter so the
			// unauthenticated POST /users above keeps its own route.
			r.Get("/users/me", router.handler.Me)
			r.Patch("/users/me", router.handler.UpdateProfile)
			r.Get("/users/me/contacts", router.handler.Contacts)
			r.Post("/users/me/contacts/{user_id}", router.handler.AddContact)
			r.Delete("/users/me/contacts/{user_id}", router.handler.RemoveContact)
			r.Get("/users/tag/{tag}", router.handler.UserByTag)
			r.Get("/users/{user_id}", router.handler.UserByID)

			r.Route("/chats", func(r chi.Router) {
				r.Post("/", router.handler.CreateChat)
				r.Get("/", router.handler.ListChats)
				r.Get("/{chat_id}", router.handler.GetChat)
				r.Delete("/{chat_id}", router.handler.DeleteChat)
				r.Get("/{chat_id}/messages", router.handler.ListMessages)
				r.Post("/{chat_id}/messages", router.handler.CreateMessage)
			})

			r.Route("/messages", func(r chi.Router) {
				r.Patch("/{message_id}", router.handler.EditMessage)
				r.Delete("/{message_id}", router.handler.DeleteMessage)
				r.Post("/{message_id}/reactions", router.handler.AddReaction)
				r.Delete("/{message_id}/reactions/{reaction_type}", router.handler.RemoveReaction)
			})
		})

		// The websocket endpoint authenticates inside the handler so the
		// rejection can use a policy-violation close frame instead of an
		// HTTP status.
		r.Get("/ws", router.handler.WebSocket)
	})

	return r
}

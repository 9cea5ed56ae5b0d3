// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

// Package api provides the HTTP surface: the websocket upgrade
// endpoint, the stats and rooms read APIs, health, and metrics.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/athletetime/relay/internal/config"
	"github.com/athletetime/relay/internal/middleware"
)

// Router builds the HTTP handler tree.
type Router struct {
	cfg     *config.Config
	handler *Handler
}

// NewRouter creates a router around the given handler.
func NewRouter(cfg *config.Config, handler *Handler) *Router {
	return &Router{cfg: cfg, handler: handler}
}

// Setup configures all routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.Security.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// The upgrade endpoint sits outside the rate limiter: one upgrade
	// request carries a whole session, and message-level limits live in
	// the engine.
	r.Get("/ws", router.handler.WebSocket)

	r.Group(func(r chi.Router) {
		if !router.cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(router.cfg.Security.RateLimitReqs, router.cfg.Security.RateLimitWindow))
		}
		r.Use(middleware.PrometheusMetrics)

		r.Get("/api/stats", router.handler.Stats)
		r.Get("/api/rooms", router.handler.Rooms)
	})

	r.Get("/healthz", router.handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

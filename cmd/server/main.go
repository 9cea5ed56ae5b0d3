// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

// Package main is the entry point for the Relay server.
//
// Relay is a real-time chat backend for the Athlete Time community:
// WebSocket rooms with unique-identity presence counts, ephemeral
// room lifecycles, bounded message history, and live stats.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and config file (Koanf v2)
//  2. Hub and engine: connection fan-out and room/presence state
//  3. HTTP router: WebSocket upgrade, REST endpoints, Prometheus metrics
//  4. Supervisor tree: hub loop, sweepers, and HTTP server under suture
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// Common settings:
//
//	export HTTP_PORT=3001
//	export CORS_ORIGINS=https://athlete-time.example.com
//	export CHAT_INACTIVITY_TIMEOUT=30m
//	export LOG_LEVEL=info
//	./relay
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: connected clients
// receive a server_shutdown event, the HTTP server drains in-flight
// requests, and the supervisor tree stops its services in order.
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

	"github.com/athletetime/relay/internal/api"
	"github.com/athletetime/relay/internal/chat"
	"github.com/athletetime/relay/internal/config"
	"github.com/athletetime/relay/internal/logging"
	"github.com/athletetime/relay/internal/supervisor"
	"github.com/athletetime/relay/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Int("port", cfg.Server.Port).
		Int("permanent_rooms", len(cfg.Chat.Rooms)).
		Dur("inactivity_timeout", cfg.Chat.InactivityTimeout).
		Dur("retention_window", cfg.Chat.RetentionWindow).
		Msg("Starting Relay with supervisor tree")

	hub := chat.NewHub(cfg.Chat.SendBuffer, cfg.Chat.HeartbeatInterval)
	engine := chat.NewEngine(cfg, hub)
	handler := api.NewHandler(cfg, hub, engine)
	router := api.NewRouter(cfg, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// sutureslog wants slog; the adapter bridges it to zerolog.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMessagingService(services.NewHubService(hub))

	heartbeatSweeper, err := services.NewSweeperService("heartbeat-sweeper", cfg.Chat.HeartbeatInterval, false, func() {
		engine.SweepDeadConnections()
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create heartbeat sweeper")
	}
	tree.AddMessagingService(heartbeatSweeper)

	// The retention sweeper runs once at startup, then hourly.
	retentionSweeper, err := services.NewSweeperService("retention-sweeper", cfg.Chat.SweepInterval, true, func() {
		engine.SweepRetention()
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create retention sweeper")
	}
	tree.AddMessagingService(retentionSweeper)

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		// Tell connected clients before the hub goes down.
		engine.Shutdown()
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
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

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Relay stopped gracefully")
}

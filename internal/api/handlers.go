// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/athletetime/relay/internal/chat"
	"github.com/athletetime/relay/internal/config"
	"github.com/athletetime/relay/internal/logging"
	"github.com/athletetime/relay/internal/metrics"
	"github.com/athletetime/relay/internal/models"
)

// Handler serves the HTTP endpoints.
type Handler struct {
	cfg    *config.Config
	hub    *chat.Hub
	engine *chat.Engine
}

// NewHandler creates a handler backed by the hub and engine.
func NewHandler(cfg *config.Config, hub *chat.Hub, engine *chat.Engine) *Handler {
	return &Handler{cfg: cfg, hub: hub, engine: engine}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout against slow-client attacks.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins.
// Browsers always send Origin; an empty header means a non-browser
// client and bypasses CORS, so it is rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("websocket connection rejected: missing Origin header")
		return false
	}

	if h.cfg == nil {
		return true
	}

	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("websocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the request and hands the connection to the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.RecordWSError("upgrade")
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := chat.NewClient("client_"+uuid.NewString(), h.hub, conn)
	h.hub.Register <- client
	client.Start()
}

// statsResponse is the /api/stats body: the counter snapshot plus a
// per-room population summary.
type statsResponse struct {
	models.StatsSnapshot
	Rooms []roomStat `json:"rooms"`
}

type roomStat struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UserCount int    `json:"userCount"`
	Permanent bool   `json:"permanent"`
}

// Stats returns the engine's counter snapshot.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	infos := h.engine.RoomInfos()
	rooms := make([]roomStat, 0, len(infos))
	for _, info := range infos {
		rooms = append(rooms, roomStat{
			ID:        info.ID,
			Name:      info.Name,
			UserCount: info.UserCount,
			Permanent: info.Permanent,
		})
	}

	respondJSON(w, http.StatusOK, statsResponse{
		StatsSnapshot: h.engine.StatsSnapshot(),
		Rooms:         rooms,
	})
}

// Rooms returns the full room list.
func (h *Handler) Rooms(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.RoomInfos())
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/athletetime/relay/internal/chat"
	"github.com/athletetime/relay/internal/config"
	"github.com/athletetime/relay/internal/logging"
	"github.com/athletetime/relay/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 3001},
		Chat: config.ChatConfig{
			InactivityTimeout:   30 * time.Minute,
			RetentionWindow:     24 * time.Hour,
			MaxRetainedMessages: 5000,
			SweepInterval:       time.Hour,
			HeartbeatInterval:   30 * time.Second,
			MaxMessageLength:    500,
			MaxRoomNameLength:   30,
			MaxRoomDescLength:   100,
			SendBuffer:          64,
			MessageRate:         5,
			MessageBurst:        10,
			StatsBroadcastEvery: 10,
			Rooms: []config.RoomDefinition{
				{ID: "main", Name: "メイン", Description: "general talk", Icon: "💬"},
			},
		},
		Security: config.SecurityConfig{
			CORSOrigins: []string{"https://app.example.com"},
		},
	}
}

func newTestHandler(t *testing.T, cfg *config.Config) *Handler {
	t.Helper()
	hub := chat.NewHub(cfg.Chat.SendBuffer, cfg.Chat.HeartbeatInterval)
	engine := chat.NewEngine(cfg, hub)
	return NewHandler(cfg, hub, engine)
}

func TestGetUpgraderConfiguration(t *testing.T) {
	h := newTestHandler(t, testConfig())
	upgrader := h.getUpgrader()

	if upgrader.ReadBufferSize != 1024 {
		t.Errorf("ReadBufferSize = %d, want 1024", upgrader.ReadBufferSize)
	}
	if upgrader.WriteBufferSize != 1024 {
		t.Errorf("WriteBufferSize = %d, want 1024", upgrader.WriteBufferSize)
	}
	if upgrader.HandshakeTimeout != 10*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 10s", upgrader.HandshakeTimeout)
	}
	if upgrader.CheckOrigin == nil {
		t.Error("CheckOrigin not set")
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    bool
	}{
		{"exact match", []string{"https://app.example.com"}, "https://app.example.com", true},
		{"wildcard", []string{"*"}, "https://anything.example.org", true},
		{"mismatch", []string{"https://app.example.com"}, "https://evil.example.org", false},
		{"empty origin rejected", []string{"*"}, "", false},
		{"no configured origins", nil, "https://app.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Security.CORSOrigins = tt.origins
			h := newTestHandler(t, cfg)

			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := h.checkWebSocketOrigin(r); got != tt.want {
				t.Errorf("checkWebSocketOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newTestHandler(t, testConfig())

	w := httptest.NewRecorder()
	h.Stats(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("missing ETag header")
	}

	var body statsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.TotalRooms != 1 {
		t.Errorf("totalRooms = %d, want 1", body.TotalRooms)
	}
	if len(body.Rooms) != 1 || body.Rooms[0].ID != "main" {
		t.Errorf("rooms = %+v, want single room main", body.Rooms)
	}
	if !body.Rooms[0].Permanent {
		t.Error("configured room should be permanent")
	}
}

func TestRoomsEndpoint(t *testing.T) {
	h := newTestHandler(t, testConfig())

	w := httptest.NewRecorder()
	h.Rooms(w, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var rooms []models.RoomInfo
	if err := json.Unmarshal(w.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("len(rooms) = %d, want 1", len(rooms))
	}
	if rooms[0].Name != "メイン" || rooms[0].Icon != "💬" {
		t.Errorf("room = %+v, want configured name and icon", rooms[0])
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHandler(t, testConfig())

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want %q", body["status"], "ok")
	}
}

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://app.example.com", "https://app.example.com"},
		{"bad\nvalue", "badvalue"},
		{"bad\r\nvalue", "badvalue"},
	}
	for _, tt := range tests {
		if got := sanitizeLogValue(tt.in); got != tt.want {
			t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

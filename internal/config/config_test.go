// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	if cfg.Chat.InactivityTimeout != 30*time.Minute {
		t.Errorf("expected 30m inactivity timeout, got %s", cfg.Chat.InactivityTimeout)
	}
	if cfg.Chat.RetentionWindow != 24*time.Hour {
		t.Errorf("expected 24h retention window, got %s", cfg.Chat.RetentionWindow)
	}
	if cfg.Chat.MaxRetainedMessages != 5000 {
		t.Errorf("expected 5000 retained messages, got %d", cfg.Chat.MaxRetainedMessages)
	}
	if cfg.FallbackRoomID() != "main" {
		t.Errorf("expected fallback room main, got %s", cfg.FallbackRoomID())
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"zero inactivity timeout", func(c *Config) { c.Chat.InactivityTimeout = 0 }},
		{"negative retention", func(c *Config) { c.Chat.RetentionWindow = -time.Hour }},
		{"zero retained cap", func(c *Config) { c.Chat.MaxRetainedMessages = 0 }},
		{"zero heartbeat", func(c *Config) { c.Chat.HeartbeatInterval = 0 }},
		{"zero message length", func(c *Config) { c.Chat.MaxMessageLength = 0 }},
		{"zero send buffer", func(c *Config) { c.Chat.SendBuffer = 0 }},
		{"no permanent rooms", func(c *Config) { c.Chat.Rooms = nil }},
		{"room missing id", func(c *Config) { c.Chat.Rooms[0].ID = "" }},
		{"duplicate room ids", func(c *Config) {
			c.Chat.Rooms = append(c.Chat.Rooms, RoomDefinition{ID: "main", Name: "dup"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CHAT_INACTIVITY_TIMEOUT", "10m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Chat.InactivityTimeout != 10*time.Minute {
		t.Errorf("expected 10m inactivity timeout, got %s", cfg.Chat.InactivityTimeout)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[0] != "https://a.example" {
		t.Errorf("unexpected cors origins: %v", cfg.Security.CORSOrigins)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlDoc := `
server:
  port: 4100
chat:
  max_message_length: 280
  rooms:
    - id: lobby
      name: Lobby
      description: General discussion
      icon: "#"
    - id: race-day
      name: Race Day
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("expected port 4100, got %d", cfg.Server.Port)
	}
	if cfg.Chat.MaxMessageLength != 280 {
		t.Errorf("expected message length 280, got %d", cfg.Chat.MaxMessageLength)
	}
	if len(cfg.Chat.Rooms) != 2 || cfg.FallbackRoomID() != "lobby" {
		t.Errorf("unexpected rooms: %+v", cfg.Chat.Rooms)
	}
	// Untouched settings keep their defaults.
	if cfg.Chat.RetentionWindow != 24*time.Hour {
		t.Errorf("expected default retention window, got %s", cfg.Chat.RetentionWindow)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"HTTP_PORT", "server.port"},
		{"CHAT_RETENTION_WINDOW", "chat.retention_window"},
		{"LOG_LEVEL", "logging.level"},
		{"SOME_UNRELATED_VAR", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

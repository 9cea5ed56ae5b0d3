// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

// Package config loads and validates Relay configuration.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (HTTP_PORT, CHAT_RETENTION_WINDOW, ...)
//   - Config file (config.yaml)
//   - Built-in defaults
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Relay server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Chat     ChatConfig     `koanf:"chat"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// Timeout applies to HTTP read/write on the plain API endpoints.
	// WebSocket connections manage their own deadlines.
	Timeout time.Duration `koanf:"timeout"`

	// ShutdownTimeout bounds graceful drain on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// RoomDefinition describes one permanent room created at startup.
type RoomDefinition struct {
	ID          string `koanf:"id"`
	Name        string `koanf:"name"`
	Description string `koanf:"description"`
	Icon        string `koanf:"icon"`
}

// ChatConfig holds the room-engine tunables.
type ChatConfig struct {
	// InactivityTimeout is how long an empty ephemeral room survives
	// before deletion.
	InactivityTimeout time.Duration `koanf:"inactivity_timeout"`

	// RetentionWindow is the maximum age of a retained message.
	RetentionWindow time.Duration `koanf:"retention_window"`

	// MaxRetainedMessages caps the per-room log regardless of age.
	MaxRetainedMessages int `koanf:"max_retained_messages"`

	// SweepInterval is how often silent rooms are pruned.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// HeartbeatInterval is the ping cadence; a connection missing a
	// pong for a full interval is treated as dead.
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`

	MaxMessageLength  int `koanf:"max_message_length"`
	MaxRoomNameLength int `koanf:"max_room_name_length"`
	MaxRoomDescLength int `koanf:"max_room_desc_length"`

	// SendBuffer is the per-connection outbound queue size; a full
	// queue marks the connection dead.
	SendBuffer int `koanf:"send_buffer"`

	// MessageRate/MessageBurst bound inbound chat messages per
	// connection (token bucket).
	MessageRate  float64 `koanf:"message_rate"`
	MessageBurst int     `koanf:"message_burst"`

	// StatsBroadcastEvery throttles stats_update fan-out to every Nth
	// chat message.
	StatsBroadcastEvery int `koanf:"stats_broadcast_every"`

	// Rooms lists the permanent rooms. The first entry is the fallback
	// room for joins naming an unknown room id.
	Rooms []RoomDefinition `koanf:"rooms"`
}

// SecurityConfig holds transport-level protections.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Chat.InactivityTimeout <= 0 {
		return fmt.Errorf("chat.inactivity_timeout must be positive, got %s", c.Chat.InactivityTimeout)
	}
	if c.Chat.RetentionWindow <= 0 {
		return fmt.Errorf("chat.retention_window must be positive, got %s", c.Chat.RetentionWindow)
	}
	if c.Chat.MaxRetainedMessages <= 0 {
		return fmt.Errorf("chat.max_retained_messages must be positive, got %d", c.Chat.MaxRetainedMessages)
	}
	if c.Chat.HeartbeatInterval <= 0 {
		return fmt.Errorf("chat.heartbeat_interval must be positive, got %s", c.Chat.HeartbeatInterval)
	}
	if c.Chat.MaxMessageLength <= 0 || c.Chat.MaxRoomNameLength <= 0 || c.Chat.MaxRoomDescLength <= 0 {
		return fmt.Errorf("chat length caps must be positive")
	}
	if c.Chat.SendBuffer <= 0 {
		return fmt.Errorf("chat.send_buffer must be positive, got %d", c.Chat.SendBuffer)
	}
	if len(c.Chat.Rooms) == 0 {
		return fmt.Errorf("chat.rooms must define at least one permanent room")
	}
	seen := make(map[string]bool, len(c.Chat.Rooms))
	for _, def := range c.Chat.Rooms {
		if def.ID == "" || def.Name == "" {
			return fmt.Errorf("permanent room definitions require id and name")
		}
		if seen[def.ID] {
			return fmt.Errorf("duplicate permanent room id %q", def.ID)
		}
		seen[def.ID] = true
	}
	return nil
}

// FallbackRoomID returns the id of the room joins fall back to when the
// requested room does not exist. By construction this is the first
// permanent room, so the fallback can never be deleted.
func (c *Config) FallbackRoomID() string {
	return c.Chat.Rooms[0].ID
}

// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package chat

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/athletetime/relay/internal/config"
	"github.com/athletetime/relay/internal/models"
)

var (
	// ErrDuplicateName is returned when a room with the same display
	// name already exists (case-sensitive exact match).
	ErrDuplicateName = errors.New("a room with this name already exists")

	// ErrInvalidName is returned when the trimmed room name is empty.
	ErrInvalidName = errors.New("room name is required")
)

// Room holds room metadata. Member tracking lives in Presence and the
// message log in Store; a Room is pure description plus activity time.
type Room struct {
	ID           string
	Name         string
	Desc         string
	Icon         string
	Permanent    bool
	Private      bool
	OwnerID      string
	OwnerName    string
	Created      time.Time
	LastActivity time.Time
}

// Rooms owns room metadata and name uniqueness.
type Rooms struct {
	rooms      map[string]*Room
	fallbackID string
	maxName    int
	maxDesc    int
}

// NewRooms returns an empty room registry. fallbackID must name a
// permanent room once EnsurePermanent has run; unknown join targets
// resolve to it.
func NewRooms(fallbackID string, maxNameLen, maxDescLen int) *Rooms {
	return &Rooms{
		rooms:      make(map[string]*Room),
		fallbackID: fallbackID,
		maxName:    maxNameLen,
		maxDesc:    maxDescLen,
	}
}

// EnsurePermanent idempotently creates the configured permanent rooms.
// Existing rooms are left untouched so repeated startup calls cannot
// reset activity times.
func (rs *Rooms) EnsurePermanent(defs []config.RoomDefinition, now time.Time) {
	for _, def := range defs {
		if _, ok := rs.rooms[def.ID]; ok {
			continue
		}
		icon := def.Icon
		if icon == "" {
			icon = "💬"
		}
		rs.rooms[def.ID] = &Room{
			ID:           def.ID,
			Name:         def.Name,
			Desc:         def.Description,
			Icon:         icon,
			Permanent:    true,
			Created:      now,
			LastActivity: now,
		}
	}
}

// Get returns the room, or false if the id is unknown.
func (rs *Rooms) Get(id string) (*Room, bool) {
	room, ok := rs.rooms[id]
	return room, ok
}

// GetOrDefault returns the room, falling back to the permanent default
// room for unknown ids. A join never fails on a bad room id.
func (rs *Rooms) GetOrDefault(id string) *Room {
	if room, ok := rs.rooms[id]; ok {
		return room
	}
	return rs.rooms[rs.fallbackID]
}

// Create adds a new ephemeral room. The name is trimmed and capped, the
// description capped; duplicate display names are rejected.
func (rs *Rooms) Create(name, desc, icon string, private bool, owner *models.Identity, now time.Time) (*Room, error) {
	name = truncateRunes(strings.TrimSpace(name), rs.maxName)
	if name == "" {
		return nil, ErrInvalidName
	}
	for _, room := range rs.rooms {
		if room.Name == name {
			return nil, ErrDuplicateName
		}
	}
	if icon == "" {
		icon = "💬"
	}
	room := &Room{
		ID:           "room_" + uuid.NewString(),
		Name:         name,
		Desc:         truncateRunes(desc, rs.maxDesc),
		Icon:         icon,
		Private:      private,
		Created:      now,
		LastActivity: now,
	}
	if owner != nil {
		room.OwnerID = owner.UserID
		room.OwnerName = owner.Nickname
	}
	rs.rooms[room.ID] = room
	return room, nil
}

// Delete removes a non-permanent room. Returns false for permanent or
// unknown rooms.
func (rs *Rooms) Delete(id string) bool {
	room, ok := rs.rooms[id]
	if !ok || room.Permanent {
		return false
	}
	delete(rs.rooms, id)
	return true
}

// Touch updates a room's last-activity time.
func (rs *Rooms) Touch(id string, now time.Time) {
	if room, ok := rs.rooms[id]; ok {
		room.LastActivity = now
	}
}

// List returns a snapshot ordered permanent-first, then by creation
// time, for the connected payload and the rooms API.
func (rs *Rooms) List() []*Room {
	out := make([]*Room, 0, len(rs.rooms))
	for _, room := range rs.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Permanent != out[j].Permanent {
			return out[i].Permanent
		}
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of rooms.
func (rs *Rooms) Count() int {
	return len(rs.rooms)
}

// truncateRunes caps s at n runes. Display names are routinely CJK, so
// byte slicing would split characters.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

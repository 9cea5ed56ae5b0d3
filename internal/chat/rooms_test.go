// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package chat

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/athletetime/relay/internal/config"
	"github.com/athletetime/relay/internal/models"
)

func testRooms() *Rooms {
	rs := NewRooms("main", 30, 100)
	rs.EnsurePermanent([]config.RoomDefinition{
		{ID: "main", Name: "메인", Description: "general talk", Icon: "💬"},
	}, time.Now())
	return rs
}

func testIdentity() *models.Identity {
	return &models.Identity{UserID: "user-a", Nickname: "runner42", JoinedAt: time.Now()}
}

func TestEnsurePermanentIdempotent(t *testing.T) {
	rs := testRooms()
	room, ok := rs.Get("main")
	if !ok || !room.Permanent {
		t.Fatal("permanent room missing after startup")
	}
	created := room.Created

	rs.EnsurePermanent([]config.RoomDefinition{
		{ID: "main", Name: "different", Description: "x"},
	}, time.Now().Add(time.Hour))

	room, _ = rs.Get("main")
	if room.Name != "메인" || !room.Created.Equal(created) {
		t.Error("repeated EnsurePermanent must not reset an existing room")
	}
	if rs.Count() != 1 {
		t.Errorf("room count = %d, want 1", rs.Count())
	}
}

func TestGetOrDefaultFallsBack(t *testing.T) {
	rs := testRooms()
	room := rs.GetOrDefault("no-such-room")
	if room == nil || room.ID != "main" {
		t.Fatalf("unknown id should resolve to the fallback room, got %+v", room)
	}
}

func TestCreateRoom(t *testing.T) {
	rs := testRooms()
	now := time.Now()

	room, err := rs.Create("  러너스  ", "pace talk", "", true, testIdentity(), now)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if room.Name != "러너스" {
		t.Errorf("name not trimmed: %q", room.Name)
	}
	if room.Permanent {
		t.Error("user-created room must be ephemeral")
	}
	if !room.Private {
		t.Error("private flag dropped")
	}
	if room.Icon != "💬" {
		t.Errorf("missing icon default, got %q", room.Icon)
	}
	if room.OwnerID != "user-a" || room.OwnerName != "runner42" {
		t.Errorf("owner not recorded: %+v", room)
	}
	if !strings.HasPrefix(room.ID, "room_") {
		t.Errorf("unexpected room id %q", room.ID)
	}
}

func TestCreateRoomErrors(t *testing.T) {
	rs := testRooms()
	now := time.Now()

	if _, err := rs.Create("   ", "", "", false, testIdentity(), now); !errors.Is(err, ErrInvalidName) {
		t.Errorf("blank name: err = %v, want ErrInvalidName", err)
	}

	if _, err := rs.Create("러너스", "", "", false, testIdentity(), now); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := rs.Create("러너스", "", "", false, testIdentity(), now); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate name: err = %v, want ErrDuplicateName", err)
	}
	if rs.Count() != 2 {
		t.Errorf("room count = %d, want 2 (main + one created)", rs.Count())
	}
}

func TestCreateRoomTruncation(t *testing.T) {
	rs := testRooms()

	longName := strings.Repeat("가", 40)
	longDesc := strings.Repeat("d", 150)
	room, err := rs.Create(longName, longDesc, "", false, testIdentity(), time.Now())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got := len([]rune(room.Name)); got != 30 {
		t.Errorf("name rune length = %d, want 30", got)
	}
	if got := len([]rune(room.Desc)); got != 100 {
		t.Errorf("desc rune length = %d, want 100", got)
	}
}

func TestDeleteProtectsPermanent(t *testing.T) {
	rs := testRooms()
	if rs.Delete("main") {
		t.Error("permanent room must never be deleted")
	}
	if _, ok := rs.Get("main"); !ok {
		t.Fatal("permanent room disappeared")
	}

	room, _ := rs.Create("temp", "", "", false, testIdentity(), time.Now())
	if !rs.Delete(room.ID) {
		t.Error("ephemeral room should be deletable")
	}
	if rs.Delete(room.ID) {
		t.Error("second delete should report false")
	}
}

func TestListOrdering(t *testing.T) {
	rs := testRooms()
	base := time.Now()
	second, _ := rs.Create("second", "", "", false, testIdentity(), base.Add(2*time.Minute))
	first, _ := rs.Create("first", "", "", false, testIdentity(), base.Add(time.Minute))

	list := rs.List()
	if len(list) != 3 {
		t.Fatalf("list length = %d, want 3", len(list))
	}
	if list[0].ID != "main" {
		t.Errorf("permanent room should list first, got %s", list[0].ID)
	}
	if list[1].ID != first.ID || list[2].ID != second.ID {
		t.Errorf("ephemeral rooms not in creation order: %s, %s", list[1].ID, list[2].ID)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"안녕하세요", 2, "안녕"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/athletetime/relay/internal/models"
)

func testMessage(id string, at time.Time) models.Message {
	return models.Message{
		ID:        id,
		Text:      "hello",
		Nickname:  "runner42",
		UserID:    "user-a",
		Timestamp: at,
		Room:      "main",
	}
}

func TestStoreRetentionWindow(t *testing.T) {
	s := NewStore(24*time.Hour, 5000)
	base := time.Now()

	s.Append("main", testMessage("old", base), base)
	// 23 hours later a second message arrives; the first is still live.
	s.Append("main", testMessage("young", base.Add(23*time.Hour)), base.Add(23*time.Hour))
	if got := s.Count("main"); got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}

	// Two more hours: the first message is 25h old, the second 2h.
	now := base.Add(25 * time.Hour)
	if removed := s.Sweep(now); removed != 1 {
		t.Errorf("sweep removed %d, want 1", removed)
	}

	snap := s.Snapshot("main", now)
	if len(snap) != 1 || snap[0].ID != "young" {
		t.Errorf("snapshot = %v, want only the young message", snap)
	}
}

func TestStoreCountCap(t *testing.T) {
	s := NewStore(24*time.Hour, 3)
	base := time.Now()

	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		s.Append("main", testMessage(fmt.Sprintf("m%d", i), at), at)
	}

	snap := s.Snapshot("main", base.Add(5*time.Second))
	if len(snap) != 3 {
		t.Fatalf("snapshot length = %d, want 3", len(snap))
	}
	// Oldest dropped first; order preserved.
	for i, want := range []string{"m2", "m3", "m4"} {
		if snap[i].ID != want {
			t.Errorf("snapshot[%d] = %s, want %s", i, snap[i].ID, want)
		}
	}
}

func TestStoreSnapshotFiltersWithoutMutating(t *testing.T) {
	s := NewStore(time.Hour, 100)
	base := time.Now()

	s.Append("main", testMessage("a", base), base)
	later := base.Add(2 * time.Hour)

	if snap := s.Snapshot("main", later); len(snap) != 0 {
		t.Errorf("expired message visible in snapshot: %v", snap)
	}
	// Snapshot is read-only; the sweep does the actual pruning.
	if got := s.Count("main"); got != 1 {
		t.Errorf("count after snapshot = %d, want 1", got)
	}
}

func TestStoreSweepSilentRooms(t *testing.T) {
	s := NewStore(time.Hour, 100)
	base := time.Now()
	s.Append("quiet", testMessage("a", base), base)
	s.Append("busy", testMessage("b", base.Add(90*time.Minute)), base.Add(90*time.Minute))

	removed := s.Sweep(base.Add(2 * time.Hour))
	if removed != 1 {
		t.Errorf("sweep removed %d, want 1", removed)
	}
	if got := s.Count("quiet"); got != 0 {
		t.Errorf("quiet room still holds %d messages", got)
	}
	if got := s.Count("busy"); got != 1 {
		t.Errorf("busy room pruned too far: %d", got)
	}
}

func TestStoreDrop(t *testing.T) {
	s := NewStore(time.Hour, 100)
	now := time.Now()
	s.Append("r", testMessage("a", now), now)
	s.Drop("r")
	if got := s.Count("r"); got != 0 {
		t.Errorf("count after Drop = %d, want 0", got)
	}
}

// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package chat

import (
	"io"
	"sort"
	"testing"

	"github.com/athletetime/relay/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

func TestPresenceUniqueIdentityCounting(t *testing.T) {
	p := NewPresence()

	// First connection of an identity announces it.
	isNew, count := p.Join("main", "conn-1", "user-a")
	if !isNew || count != 1 {
		t.Errorf("first join: isNew=%v count=%d, want true 1", isNew, count)
	}

	// Second tab of the same identity is silent and not double-counted.
	isNew, count = p.Join("main", "conn-2", "user-a")
	if isNew || count != 1 {
		t.Errorf("second tab: isNew=%v count=%d, want false 1", isNew, count)
	}

	isNew, count = p.Join("main", "conn-3", "user-b")
	if !isNew || count != 2 {
		t.Errorf("second identity: isNew=%v count=%d, want true 2", isNew, count)
	}

	// Closing one of two tabs does not announce a departure.
	isLast, count := p.Leave("main", "conn-1", "user-a")
	if isLast || count != 2 {
		t.Errorf("first tab leave: isLast=%v count=%d, want false 2", isLast, count)
	}

	isLast, count = p.Leave("main", "conn-2", "user-a")
	if !isLast || count != 1 {
		t.Errorf("last tab leave: isLast=%v count=%d, want true 1", isLast, count)
	}

	if got := p.UniqueCount("main"); got != 1 {
		t.Errorf("UniqueCount = %d, want 1", got)
	}
}

func TestPresenceLeaveUnknown(t *testing.T) {
	p := NewPresence()

	isLast, count := p.Leave("nowhere", "conn-1", "user-a")
	if isLast || count != 0 {
		t.Errorf("leave of unknown room: isLast=%v count=%d, want false 0", isLast, count)
	}

	p.Join("main", "conn-1", "user-a")
	isLast, count = p.Leave("main", "conn-9", "user-z")
	if isLast || count != 1 {
		t.Errorf("leave of unknown identity: isLast=%v count=%d, want false 1", isLast, count)
	}
}

func TestPresenceConnections(t *testing.T) {
	p := NewPresence()
	p.Join("main", "conn-1", "user-a")
	p.Join("main", "conn-2", "user-a")
	p.Join("main", "conn-3", "user-b")

	conns := p.Connections("main")
	sort.Strings(conns)
	want := []string{"conn-1", "conn-2", "conn-3"}
	if len(conns) != len(want) {
		t.Fatalf("Connections = %v, want %v", conns, want)
	}
	for i := range want {
		if conns[i] != want[i] {
			t.Errorf("Connections[%d] = %s, want %s", i, conns[i], want[i])
		}
	}

	if got := p.Connections("nowhere"); got != nil {
		t.Errorf("Connections for unknown room = %v, want nil", got)
	}
}

func TestPresenceDropClearsRoom(t *testing.T) {
	p := NewPresence()
	p.Join("r", "conn-1", "user-a")
	p.Drop("r")
	if got := p.UniqueCount("r"); got != 0 {
		t.Errorf("UniqueCount after Drop = %d, want 0", got)
	}
}

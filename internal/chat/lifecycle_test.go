// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package chat

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLifecycleFiresAfterTimeout(t *testing.T) {
	var fired atomic.Int32
	l := NewLifecycle(30*time.Millisecond, func(string) { fired.Add(1) })

	l.Arm("r")
	if !l.Armed("r") {
		t.Fatal("timer not armed")
	}
	time.Sleep(80 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
}

func TestLifecycleCancelPreventsFire(t *testing.T) {
	var fired atomic.Int32
	l := NewLifecycle(30*time.Millisecond, func(string) { fired.Add(1) })

	l.Arm("r")
	l.Cancel("r")
	if l.Armed("r") {
		t.Error("timer still armed after cancel")
	}
	time.Sleep(80 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("canceled timer fired %d times", got)
	}
}

func TestLifecycleArmReplacesTimer(t *testing.T) {
	var mu sync.Mutex
	var fires []time.Time
	start := time.Now()
	l := NewLifecycle(50*time.Millisecond, func(string) {
		mu.Lock()
		fires = append(fires, time.Now())
		mu.Unlock()
	})

	// Re-arming must cancel the prior timer: one outstanding timer per
	// room, one fire total.
	l.Arm("r")
	time.Sleep(30 * time.Millisecond)
	l.Arm("r")
	time.Sleep(120 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(fires) != 1 {
		t.Fatalf("fired %d times, want 1", len(fires))
	}
	if elapsed := fires[0].Sub(start); elapsed < 70*time.Millisecond {
		t.Errorf("fired after %s, want the rearmed deadline (>=80ms)", elapsed)
	}
}

func TestLifecycleStopAll(t *testing.T) {
	var fired atomic.Int32
	l := NewLifecycle(30*time.Millisecond, func(string) { fired.Add(1) })

	l.Arm("a")
	l.Arm("b")
	l.StopAll()
	time.Sleep(80 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("timers fired %d times after StopAll", got)
	}
	if l.Armed("a") || l.Armed("b") {
		t.Error("timers still armed after StopAll")
	}
}

// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package services

import (
	"context"
	"fmt"
	"time"
)

// SweeperService runs a maintenance function on a fixed interval under
// supervision. Relay uses two instances: one pruning expired messages
// from the store, one disconnecting peers whose heartbeats stopped.
type SweeperService struct {
	name        string
	interval    time.Duration
	sweep       func()
	immediately bool
}

// NewSweeperService creates a sweeper running sweep every interval.
// When immediately is set the first sweep happens at startup instead
// of one interval in.
func NewSweeperService(name string, interval time.Duration, immediately bool, sweep func()) (*SweeperService, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweeper %s: interval must be positive, got %v", name, interval)
	}
	if sweep == nil {
		return nil, fmt.Errorf("sweeper %s: sweep function is required", name)
	}
	return &SweeperService{
		name:        name,
		interval:    interval,
		sweep:       sweep,
		immediately: immediately,
	}, nil
}

// Serve implements suture.Service. It blocks until the context is
// canceled, invoking the sweep function on each tick.
func (s *SweeperService) Serve(ctx context.Context) error {
	if s.immediately {
		s.sweep()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// String implements fmt.Stringer for supervisor log messages.
func (s *SweeperService) String() string {
	return s.name
}

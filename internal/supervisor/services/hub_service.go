// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package services

import (
	"context"
)

// ContextHub matches *chat.Hub's RunWithContext method. The interface
// keeps this package free of a chat import.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService wraps the chat hub's run loop as a supervised service.
//
// RunWithContext already follows the suture.Service pattern: it
// processes registrations and broadcasts until the context is
// canceled, then closes every client. The wrapper only adds a name
// for supervisor logging.
type HubService struct {
	hub  ContextHub
	name string
}

// NewHubService creates a hub service wrapper.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{
		hub:  hub,
		name: "chat-hub",
	}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor log messages.
func (s *HubService) String() string {
	return s.name
}

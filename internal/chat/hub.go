// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/athletetime/relay/internal/logging"
	"github.com/athletetime/relay/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown
	// path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was
	// exceeded and may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub maintains the set of active clients and delivers pre-marshaled
// frames to them. Fan-out target selection (which room, which members)
// belongs to the Engine; the hub only moves bytes.
//
// Delivery is non-blocking: a client whose send queue is full or whose
// transport is gone is marked dead and scheduled for unregister, and
// delivery continues to the remaining clients. One dead peer never
// aborts fan-out to others.
type Hub struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	sendBuffer int
	heartbeat  time.Duration

	// Set by the Engine before the hub runs.
	onConnect    func(connID string)
	onDisconnect func(connID string)
	onFrame      func(connID string, frame []byte)
	onHeartbeat  func(connID string)
}

// NewHub creates a hub with the given per-client send buffer and
// heartbeat interval.
func NewHub(sendBuffer int, heartbeat time.Duration) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client, 64),
		Unregister: make(chan *Client, 64),
		sendBuffer: sendBuffer,
		heartbeat:  heartbeat,
	}
}

// RunWithContext runs the hub's lifecycle loop with context support for
// graceful shutdown. Designed for use with suture supervision.
//
// Priority-based selection keeps behavior predictable when multiple
// channels are ready: context cancellation first, then client
// lifecycle events.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	logging.Info().
		Str("conn_id", client.ID).
		Int("total_clients", total).
		Msg("websocket client connected")

	if h.onConnect != nil {
		h.onConnect(client.ID)
	}
}

// removeClient is idempotent: a dead-peer mark and a read-pump exit can
// both enqueue the same client.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.ID]
	if ok {
		delete(h.clients, client.ID)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}

	logging.Info().
		Str("conn_id", client.ID).
		Int("total_clients", total).
		Msg("websocket client disconnected")

	if h.onDisconnect != nil {
		h.onDisconnect(client.ID)
	}
}

// Send delivers a frame to one client. Returns false if the client is
// unknown or dead.
func (h *Hub) Send(connID string, frame []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[connID]
	if !ok {
		return false
	}
	return h.trySend(client, frame)
}

// SendMany delivers a frame to the listed clients, skipping exclude.
// Targets are sorted so delivery order is consistent run to run.
func (h *Hub) SendMany(connIDs []string, frame []byte, exclude string) {
	ids := append([]string(nil), connIDs...)
	sort.Strings(ids)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range ids {
		if id == exclude {
			continue
		}
		if client, ok := h.clients[id]; ok {
			h.trySend(client, frame)
		}
	}
}

// SendAll delivers a frame to every connected client.
func (h *Hub) SendAll(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		h.trySend(h.clients[id], frame)
	}
}

// trySend queues a frame without blocking; the caller holds the read
// lock, which excludes the channel close in removeClient. A full queue
// means the peer stopped draining; it is marked dead and scheduled for
// unregister.
func (h *Hub) trySend(client *Client, frame []byte) bool {
	if client.Dead() {
		return false
	}
	select {
	case client.send <- frame:
		metrics.WSMessagesSent.Inc()
		return true
	default:
		metrics.WSSendsDropped.Inc()
		logging.Warn().Str("conn_id", client.ID).Msg("send queue full, dropping client")
		h.drop(client)
		return false
	}
}

// drop marks a client dead, closes its transport so the pumps exit, and
// schedules unregister.
func (h *Hub) drop(client *Client) {
	client.markDead()
	go func() { h.Unregister <- client }()
}

// Kill terminates one client by id, running the normal disconnect path.
// Used by the heartbeat sweeper for connections that stopped answering.
func (h *Hub) Kill(connID string) {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		h.drop(client)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// logGracefulShutdown closes all clients and logs structured shutdown
// information. ctx.Err() is not logged as an error because cancellation
// is expected during graceful shutdown.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.closeAllClients()

	logging.Info().
		Str("component", "chat-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("chat hub stopped")
}

// getShutdownReason maps the context error to a shutdown reason for
// operators monitoring logs.
func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.Canceled:
		return ShutdownReasonContextCanceled
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllClients closes every connected client in id order and returns
// how many there were.
func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		client := h.clients[id]
		client.markDead()
		close(client.send)
		delete(h.clients, id)
	}
	return len(ids)
}

// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package chat

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/athletetime/relay/internal/logging"
	"github.com/athletetime/relay/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024 // 64 KB; chat frames are small
)

// Client is a middleman between one websocket connection and the hub.
// Frames flow raw: the Engine owns encoding and decoding.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	dead atomic.Bool
}

// NewClient creates a client for an upgraded connection. conn may be
// nil in tests that exercise the hub without a transport.
func NewClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   id,
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.sendBuffer),
	}
}

// Dead reports whether the client has been marked for removal.
func (c *Client) Dead() bool {
	return c.dead.Load()
}

// markDead flags the client and closes its transport so both pumps
// exit. Safe to call more than once.
func (c *Client) markDead() {
	if c.dead.CompareAndSwap(false, true) && c.conn != nil {
		_ = c.conn.Close()
	}
}

// pongWait is how long a silent peer survives: one missed probe plus
// slack for a slow network.
func (c *Client) pongWait() time.Duration {
	return c.hub.heartbeat * 2
}

// readPump pumps frames from the websocket connection into the engine.
// One goroutine per connection; exit triggers unregister.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		c.markDead()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait())); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		if c.hub.onHeartbeat != nil {
			c.hub.onHeartbeat(c.ID)
		}
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait()))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.RecordWSError("read")
				logging.Error().Err(err).Str("conn_id", c.ID).Msg("unexpected websocket close error")
			}
			break
		}

		metrics.WSMessagesReceived.Inc()
		if c.hub.onFrame != nil {
			c.hub.onFrame(c.ID, frame)
		}
	}
}

// writePump pumps frames from the send queue to the websocket
// connection and probes the peer on the heartbeat interval.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.heartbeat)
	defer func() {
		ticker.Stop()
		c.markDead()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				metrics.RecordWSError("write")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

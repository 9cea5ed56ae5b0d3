// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package chat

import (
	"github.com/goccy/go-json"

	"github.com/athletetime/relay/internal/logging"
	"github.com/athletetime/relay/internal/metrics"
	"github.com/athletetime/relay/internal/models"
	"github.com/athletetime/relay/internal/validation"
)

// HandleFrame parses one inbound frame and dispatches it. Malformed or
// unknown input is logged and dropped; the connection stays open.
// Validation failures go back to the sender only, as error events.
func (e *Engine) HandleFrame(connID string, frame []byte) {
	var event models.Event
	if err := json.Unmarshal(frame, &event); err != nil {
		metrics.RecordWSError("decode")
		logging.Warn().Err(err).Str("conn_id", connID).Msg("discarding malformed frame")
		return
	}

	switch event.Type {
	case models.EventJoin:
		var req models.JoinRequest
		if !decodePayload(connID, event, &req) {
			return
		}
		e.handleJoin(connID, req)

	case models.EventLeave:
		var req models.LeaveRequest
		if !decodePayload(connID, event, &req) {
			return
		}
		e.handleLeave(connID, req)

	case models.EventMessage:
		var req models.ChatMessageRequest
		if !decodePayload(connID, event, &req) {
			return
		}
		if err := validation.ValidateStruct(&req); err != nil {
			e.replyValidationError(connID, err)
			return
		}
		e.handleMessage(connID, req)

	case models.EventCreateRoom:
		var req models.CreateRoomRequest
		if !decodePayload(connID, event, &req) {
			return
		}
		if err := validation.ValidateStruct(&req); err != nil {
			e.replyValidationError(connID, err)
			return
		}
		e.handleCreateRoom(connID, req)

	case models.EventProfileUpdate:
		var req models.ProfileUpdateRequest
		if !decodePayload(connID, event, &req) {
			return
		}
		e.handleProfileUpdate(connID, req)

	case models.EventTyping:
		var req models.TypingRequest
		if !decodePayload(connID, event, &req) {
			return
		}
		e.handleTyping(connID, req)

	case models.EventGetStats:
		e.handleGetStats(connID)

	default:
		logging.Debug().Str("conn_id", connID).Str("type", event.Type).Msg("unknown event type")
	}
}

// decodePayload unmarshals the envelope's data into out. A missing or
// malformed payload is a protocol error: logged, dropped, no reply.
func decodePayload(connID string, event models.Event, out any) bool {
	if len(event.Data) == 0 {
		logging.Warn().Str("conn_id", connID).Str("type", event.Type).Msg("frame has no payload")
		return false
	}
	if err := json.Unmarshal(event.Data, out); err != nil {
		metrics.RecordWSError("decode")
		logging.Warn().Err(err).Str("conn_id", connID).Str("type", event.Type).Msg("discarding malformed payload")
		return false
	}
	return true
}

func (e *Engine) replyValidationError(connID string, err *validation.RequestValidationError) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sendError(connID, err.Error())
}

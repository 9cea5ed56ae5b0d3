// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package chat

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/athletetime/relay/internal/config"
	"github.com/athletetime/relay/internal/logging"
	"github.com/athletetime/relay/internal/metrics"
	"github.com/athletetime/relay/internal/models"
)

// ActiveUser is one row of the profile table maintained by
// profile_update frames.
type ActiveUser struct {
	Nickname  string
	LastSeen  time.Time
	Anonymous bool
}

// Engine composes the registry, rooms, presence, store, lifecycle and
// stats components and serializes every mutation under one mutex. The
// hub calls back into it for connection lifecycle and inbound frames;
// timers call back for room expiry.
//
// Lock ordering is Engine.mu before Hub.mu and never the reverse: hub
// callbacks run without hub.mu held, and engine send paths only take
// hub.mu through the hub's own methods.
type Engine struct {
	cfg *config.Config
	hub *Hub

	mu          sync.Mutex
	registry    *Registry
	rooms       *Rooms
	presence    *Presence
	store       *Store
	lifecycle   *Lifecycle
	stats       *Stats
	limiters    map[string]*rate.Limiter
	activeUsers map[string]ActiveUser

	// now is replaceable in tests.
	now func() time.Time
}

// NewEngine builds the engine, creates the permanent rooms, and wires
// the hub's callbacks.
func NewEngine(cfg *config.Config, hub *Hub) *Engine {
	e := &Engine{
		cfg:         cfg,
		hub:         hub,
		registry:    NewRegistry(),
		rooms:       NewRooms(cfg.FallbackRoomID(), cfg.Chat.MaxRoomNameLength, cfg.Chat.MaxRoomDescLength),
		presence:    NewPresence(),
		store:       NewStore(cfg.Chat.RetentionWindow, cfg.Chat.MaxRetainedMessages),
		stats:       NewStats(),
		limiters:    make(map[string]*rate.Limiter),
		activeUsers: make(map[string]ActiveUser),
		now:         time.Now,
	}
	e.lifecycle = NewLifecycle(cfg.Chat.InactivityTimeout, e.expireRoom)
	e.rooms.EnsurePermanent(cfg.Chat.Rooms, e.now())
	metrics.RoomsActive.Set(float64(e.rooms.Count()))

	hub.onConnect = e.OnConnect
	hub.onDisconnect = e.OnDisconnect
	hub.onFrame = e.HandleFrame
	hub.onHeartbeat = e.MarkHeartbeat
	return e
}

// OnConnect registers a new connection and sends it the initial room
// list and stats.
func (e *Engine) OnConnect(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.registry.Register(connID, e.now())
	e.stats.OnConnect()
	e.limiters[connID] = rate.NewLimiter(rate.Limit(e.cfg.Chat.MessageRate), e.cfg.Chat.MessageBurst)

	e.sendTo(connID, models.EventConnected, models.ConnectedPayload{
		Rooms: e.roomInfosLocked(),
		Stats: e.stats.Summary(e.rooms.Count()),
	})
}

// OnDisconnect runs the leave path for a closed connection. Idempotent:
// the hub can report the same connection at most once, but a heartbeat
// kill and a read error may both race toward it.
func (e *Engine) OnDisconnect(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.registry.Get(connID)
	if !ok {
		return
	}
	if state.Room != "" {
		e.leaveRoomLocked(connID, state.Room)
	}
	delete(e.limiters, connID)
	e.registry.Unregister(connID)
	e.stats.OnDisconnect()
	e.broadcastStatsLocked()
}

// MarkHeartbeat records a pong from the connection.
func (e *Engine) MarkHeartbeat(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.MarkHeartbeat(connID, e.now())
}

// SweepDeadConnections terminates connections that missed their
// heartbeat window. They run the normal disconnect path through the
// hub.
func (e *Engine) SweepDeadConnections() int {
	e.mu.Lock()
	dead := e.registry.SweepDead(e.now(), e.cfg.Chat.HeartbeatInterval*2)
	e.mu.Unlock()

	for _, connID := range dead {
		logging.Warn().Str("conn_id", connID).Msg("heartbeat timeout, dropping connection")
		e.hub.Kill(connID)
	}
	return len(dead)
}

// SweepRetention prunes expired messages across all rooms. Runs hourly
// and once at startup.
func (e *Engine) SweepRetention() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := e.store.Sweep(e.now())
	if removed > 0 {
		logging.Info().Int("removed", removed).Msg("retention sweep pruned expired messages")
	}
	return removed
}

// Shutdown notifies every client that the process is going away.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lifecycle.StopAll()
	e.broadcastAll(models.EventServerShutdown, models.ServerShutdownPayload{
		Message: "server is restarting, reconnect shortly",
	})
}

// StatsSnapshot returns the full counter set for the stats API and
// get_stats replies.
func (e *Engine) StatsSnapshot() models.StatsSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.Snapshot(e.rooms.Count())
}

// RoomInfos returns the current room list for the rooms API.
func (e *Engine) RoomInfos() []models.RoomInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roomInfosLocked()
}

// --- join / leave ---

func (e *Engine) handleJoin(connID string, req models.JoinRequest) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.registry.Get(connID)
	if !ok {
		return
	}

	nickname := req.Nickname
	if nickname == "" {
		nickname = fmt.Sprintf("runner%04d", rand.IntN(10000))
	}
	userID := req.UserID
	if userID == "" {
		userID = connID
	}
	e.registry.SetIdentity(connID, models.Identity{
		UserID:   userID,
		Nickname: nickname,
		JoinedAt: e.now(),
	})

	room := e.rooms.GetOrDefault(req.Room)

	// A connection is never a member of two rooms at once.
	if state.Room != "" && state.Room != room.ID {
		e.leaveRoomLocked(connID, state.Room)
	}

	e.joinRoomLocked(connID, room)
}

// joinRoomLocked puts the connection into the room, announces the
// identity if it is new there, and delivers the retained history.
func (e *Engine) joinRoomLocked(connID string, room *Room) {
	state, ok := e.registry.Get(connID)
	if !ok || state.Identity == nil {
		return
	}
	now := e.now()

	isNew, unique := e.presence.Join(room.ID, connID, state.Identity.UserID)
	e.registry.SetRoom(connID, room.ID)
	e.rooms.Touch(room.ID, now)
	if !room.Permanent {
		e.lifecycle.Cancel(room.ID)
	}

	logging.Info().
		Str("room", room.ID).
		Str("nickname", state.Identity.Nickname).
		Int("unique_users", unique).
		Msg("user joined room")

	// Two tabs of one user announce once.
	if isNew {
		e.broadcastRoom(room.ID, models.EventUserJoined, models.PresencePayload{
			Room:      room.ID,
			Nickname:  state.Identity.Nickname,
			UserID:    state.Identity.UserID,
			Count:     unique,
			Timestamp: now,
		}, connID)
	}

	e.broadcastRoomUpdateLocked(room)

	e.sendTo(connID, models.EventRoomJoined, models.RoomJoinedPayload{
		Room:      room.ID,
		RoomName:  room.Name,
		Messages:  e.store.Snapshot(room.ID, now),
		UserCount: unique,
	})

	e.broadcastStatsLocked()
}

func (e *Engine) handleLeave(connID string, req models.LeaveRequest) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.registry.Get(connID)
	if !ok || state.Room == "" {
		return
	}
	roomID := req.Room
	if roomID == "" {
		roomID = state.Room
	}
	if roomID != state.Room {
		return
	}
	e.leaveRoomLocked(connID, roomID)
	e.broadcastStatsLocked()
}

// leaveRoomLocked removes the connection from the room, announces the
// departure if this was the identity's last connection there, and arms
// the deletion timer when an ephemeral room empties.
func (e *Engine) leaveRoomLocked(connID, roomID string) {
	state, ok := e.registry.Get(connID)
	if !ok || state.Identity == nil {
		return
	}

	room, roomExists := e.rooms.Get(roomID)
	isLast, unique := e.presence.Leave(roomID, connID, state.Identity.UserID)
	e.registry.SetRoom(connID, "")

	if !roomExists {
		return
	}

	logging.Info().
		Str("room", roomID).
		Str("nickname", state.Identity.Nickname).
		Int("unique_users", unique).
		Msg("user left room")

	if isLast {
		e.broadcastRoom(roomID, models.EventUserLeft, models.PresencePayload{
			Room:      roomID,
			Nickname:  state.Identity.Nickname,
			UserID:    state.Identity.UserID,
			Count:     unique,
			Timestamp: e.now(),
		}, "")
	}

	e.broadcastRoomUpdateLocked(room)

	if unique == 0 && !room.Permanent {
		e.lifecycle.Arm(roomID)
		logging.Debug().Str("room", roomID).Msg("room empty, deletion timer armed")
	}
}

// --- messages ---

func (e *Engine) handleMessage(connID string, req models.ChatMessageRequest) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.registry.Get(connID)
	if !ok {
		return
	}
	if state.Identity == nil || state.Room == "" {
		e.sendError(connID, "join a room before sending messages")
		return
	}
	if limiter, ok := e.limiters[connID]; ok && !limiter.Allow() {
		e.sendError(connID, "sending too fast, slow down")
		return
	}
	room, ok := e.rooms.Get(state.Room)
	if !ok {
		return
	}

	now := e.now()
	nickname := req.Nickname
	if nickname == "" {
		nickname = state.Identity.Nickname
	}
	msg := models.Message{
		ID:        "msg_" + uuid.NewString(),
		Text:      truncateRunes(req.Text, e.cfg.Chat.MaxMessageLength),
		Nickname:  nickname,
		Avatar:    messageAvatar(req.Avatar, nickname),
		UserID:    state.Identity.UserID,
		Timestamp: now,
		Room:      room.ID,
	}

	e.store.Append(room.ID, msg, now)
	e.rooms.Touch(room.ID, now)
	e.stats.OnMessage()

	e.broadcastRoom(room.ID, models.EventMessage, msg, "")

	every := e.cfg.Chat.StatsBroadcastEvery
	if every > 0 && e.stats.TotalMessages()%int64(every) == 0 {
		e.broadcastStatsLocked()
	}
}

// messageAvatar falls back to the nickname's first rune, matching what
// clients render for avatar-less users.
func messageAvatar(avatar, nickname string) string {
	if avatar != "" {
		return avatar
	}
	for _, r := range nickname {
		return string(r)
	}
	return "?"
}

// --- rooms ---

func (e *Engine) handleCreateRoom(connID string, req models.CreateRoomRequest) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.registry.Get(connID)
	if !ok {
		return
	}
	if state.Identity == nil {
		e.sendError(connID, "join before creating a room")
		return
	}

	room, err := e.rooms.Create(req.Name, req.Description, req.Icon, req.Private, state.Identity, e.now())
	if err != nil {
		e.sendError(connID, err.Error())
		return
	}

	e.stats.OnRoomCreated()
	metrics.RoomsActive.Set(float64(e.rooms.Count()))

	logging.Info().
		Str("room", room.ID).
		Str("name", room.Name).
		Str("owner", room.OwnerName).
		Msg("room created")

	e.broadcastAll(models.EventRoomCreated, models.RoomCreatedPayload{
		ID:        room.ID,
		Name:      room.Name,
		Desc:      room.Desc,
		Icon:      room.Icon,
		Owner:     room.OwnerName,
		Private:   room.Private,
		UserCount: 0,
	})

	// The creator moves straight into the new room.
	if state.Room != "" {
		e.leaveRoomLocked(connID, state.Room)
	}
	e.joinRoomLocked(connID, room)
}

// expireRoom is the deletion-timer callback. It re-checks everything:
// a Stop can race an in-flight fire, and the room may have been
// repopulated or already deleted.
func (e *Engine) expireRoom(roomID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lifecycle.Cancel(roomID)

	room, ok := e.rooms.Get(roomID)
	if !ok || room.Permanent || e.presence.UniqueCount(roomID) > 0 {
		return
	}

	e.rooms.Delete(roomID)
	e.store.Drop(roomID)
	e.presence.Drop(roomID)
	metrics.RoomsActive.Set(float64(e.rooms.Count()))
	metrics.RoomsDeleted.Inc()

	logging.Info().Str("room", roomID).Str("name", room.Name).Msg("inactive room deleted")

	e.broadcastAll(models.EventRoomDeleted, models.RoomDeletedPayload{
		RoomID: roomID,
		Reason: fmt.Sprintf("no activity for %s", e.cfg.Chat.InactivityTimeout),
	})
}

// --- profile / typing / stats ---

func (e *Engine) handleProfileUpdate(connID string, req models.ProfileUpdateRequest) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.registry.Get(connID)
	if !ok {
		return
	}
	if state.Identity != nil {
		if req.Nickname != "" {
			state.Identity.Nickname = req.Nickname
		}
		state.Identity.Anonymous = req.Anonymous
	}
	if req.UserID != "" {
		e.activeUsers[req.UserID] = ActiveUser{
			Nickname:  req.Nickname,
			LastSeen:  e.now(),
			Anonymous: req.Anonymous,
		}
	}
}

func (e *Engine) handleTyping(connID string, req models.TypingRequest) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.registry.Get(connID)
	if !ok || state.Identity == nil || state.Room == "" {
		return
	}

	e.broadcastRoom(state.Room, models.EventUserTyping, models.UserTypingPayload{
		Nickname: state.Identity.Nickname,
		IsTyping: req.IsTyping,
	}, connID)
}

func (e *Engine) handleGetStats(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sendTo(connID, models.EventStats, e.stats.Snapshot(e.rooms.Count()))
}

// --- send helpers ---

// encodeEvent marshals an outbound envelope. Failures are programming
// errors in payload structs; the frame is dropped and logged.
func encodeEvent(eventType string, payload any) ([]byte, bool) {
	event, err := models.NewEvent(eventType, payload)
	if err != nil {
		logging.Error().Err(err).Str("event", eventType).Msg("failed to encode event payload")
		return nil, false
	}
	frame, err := json.Marshal(event)
	if err != nil {
		logging.Error().Err(err).Str("event", eventType).Msg("failed to encode event envelope")
		return nil, false
	}
	return frame, true
}

func (e *Engine) sendTo(connID, eventType string, payload any) {
	if frame, ok := encodeEvent(eventType, payload); ok {
		e.hub.Send(connID, frame)
	}
}

func (e *Engine) sendError(connID, message string) {
	e.sendTo(connID, models.EventError, models.ErrorPayload{Message: message})
}

func (e *Engine) broadcastRoom(roomID, eventType string, payload any, exclude string) {
	if frame, ok := encodeEvent(eventType, payload); ok {
		e.hub.SendMany(e.presence.Connections(roomID), frame, exclude)
	}
}

func (e *Engine) broadcastAll(eventType string, payload any) {
	if frame, ok := encodeEvent(eventType, payload); ok {
		e.hub.SendAll(frame)
	}
}

func (e *Engine) broadcastStatsLocked() {
	e.broadcastAll(models.EventStatsUpdate, e.stats.Summary(e.rooms.Count()))
}

func (e *Engine) broadcastRoomUpdateLocked(room *Room) {
	e.broadcastAll(models.EventRoomUpdate, models.RoomUpdatePayload{
		ID:           room.ID,
		UserCount:    e.presence.UniqueCount(room.ID),
		LastActivity: room.LastActivity,
	})
}

func (e *Engine) roomInfosLocked() []models.RoomInfo {
	list := e.rooms.List()
	out := make([]models.RoomInfo, 0, len(list))
	for _, room := range list {
		out = append(out, models.RoomInfo{
			ID:           room.ID,
			Name:         room.Name,
			Desc:         room.Desc,
			Icon:         room.Icon,
			UserCount:    e.presence.UniqueCount(room.ID),
			Permanent:    room.Permanent,
			Private:      room.Private,
			LastActivity: room.LastActivity,
		})
	}
	return out
}

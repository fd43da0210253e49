package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup/internal/chat"
	"github.com/mauv0809/pickup/internal/metrics"
	"github.com/mauv0809/pickup/internal/presence"
)

// NewCoordinator creates a Coordinator around an injected presence registry.
func NewCoordinator(registry *presence.Registry, membership MembershipChecker, messages MessageStore, presenceStore PresenceStore, metrics metrics.Metrics) *Coordinator {
	return &Coordinator{
		registry:   registry,
		membership: membership,
		messages:   messages,
		presence:   presenceStore,
		metrics:    metrics,
		conns:      make(map[string]Conn),
		rooms:      make(map[string]map[string]Conn),
		joined:     make(map[string]map[string]struct{}),
	}
}

// Connect registers conn. The first connection of a user marks them online and tells everyone.
func (c *Coordinator) Connect(ctx context.Context, conn Conn) {
	c.mu.Lock()
	if _, exists := c.conns[conn.ID()]; exists {
		c.mu.Unlock()
		return
	}
	c.conns[conn.ID()] = conn
	c.joined[conn.ID()] = make(map[string]struct{})
	total := len(c.conns)
	c.mu.Unlock()
	c.metrics.SetConnections(total)

	id := conn.Identity()
	log.Debug("Connection opened", "conn_id", conn.ID(), "user_id", id.UserID, "anonymous", id.Anonymous)
	if id.Anonymous {
		return
	}

	c.transitions.Lock()
	defer c.transitions.Unlock()
	if c.registry.Connect(id.UserID) {
		c.setPresence(ctx, id.UserID, true)
	}
}

// Disconnect removes conn from every room. The last connection of a user marks them offline.
func (c *Coordinator) Disconnect(ctx context.Context, conn Conn) {
	c.mu.Lock()
	if _, exists := c.conns[conn.ID()]; !exists {
		c.mu.Unlock()
		return
	}
	for key := range c.joined[conn.ID()] {
		members := c.rooms[key]
		delete(members, conn.ID())
		if len(members) == 0 {
			delete(c.rooms, key)
		}
	}
	delete(c.joined, conn.ID())
	delete(c.conns, conn.ID())
	total := len(c.conns)
	c.mu.Unlock()
	c.metrics.SetConnections(total)

	id := conn.Identity()
	log.Debug("Connection closed", "conn_id", conn.ID(), "user_id", id.UserID)
	if id.Anonymous {
		return
	}

	c.transitions.Lock()
	defer c.transitions.Unlock()
	if c.registry.Disconnect(id.UserID) {
		c.setPresence(ctx, id.UserID, false)
	}
}

// setPresence persists and broadcasts a transition. Callers hold c.transitions.
func (c *Coordinator) setPresence(ctx context.Context, userID string, online bool) {
	if err := c.presence.SetOnline(ctx, userID, online); err != nil {
		log.Error("Failed to persist presence", "error", err, "user_id", userID, "online", online)
	}
	c.metrics.SetOnlineUsers(len(c.registry.Online()))
	log.Info("Presence changed", "user_id", userID, "online", online)

	ev, err := newEvent(EventPresenceChanged, "", PresenceChange{UserID: userID, IsOnline: online})
	if err != nil {
		log.Error("Failed to encode presence event", "error", err)
		return
	}
	c.mu.RLock()
	recipients := make([]Conn, 0, len(c.conns))
	for _, conn := range c.conns {
		recipients = append(recipients, conn)
	}
	c.mu.RUnlock()
	deliver(recipients, ev)
}

// JoinRoom adds conn to a room after checking that its user belongs to the room's entity.
func (c *Coordinator) JoinRoom(ctx context.Context, conn Conn, kind RoomKind, entityID string) error {
	entityID, err := validateRoom(kind, entityID)
	if err != nil {
		c.metrics.IncRoomJoinsRejected("invalid")
		return err
	}
	if err := c.authorize(ctx, conn, kind, entityID); err != nil {
		c.metrics.IncRoomJoinsRejected(rejectReason(err))
		return err
	}

	key := roomKey(kind, entityID)
	c.mu.Lock()
	rooms, open := c.joined[conn.ID()]
	if !open {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.rooms[key] == nil {
		c.rooms[key] = make(map[string]Conn)
	}
	c.rooms[key][conn.ID()] = conn
	rooms[key] = struct{}{}
	c.mu.Unlock()

	log.Debug("Joined room", "conn_id", conn.ID(), "room", key)
	ev, err := newEvent(EventPresenceSnapshot, "", PresenceSnapshot{UserIDs: c.registry.Online()})
	if err != nil {
		return err
	}
	if err := conn.Send(ev); err != nil {
		log.Warn("Failed to send presence snapshot", "error", err, "conn_id", conn.ID())
	}
	return nil
}

// SendMessage persists a message from conn and broadcasts it to the room's current members.
// The sender does not need to have joined the room but must belong to its entity.
func (c *Coordinator) SendMessage(ctx context.Context, conn Conn, kind RoomKind, entityID, body string) (chat.Message, error) {
	entityID, err := validateRoom(kind, entityID)
	if err != nil {
		return chat.Message{}, err
	}
	body = chat.Normalize(body)
	if body == "" {
		return chat.Message{}, fmt.Errorf("%w: message cannot be empty", ErrInvalid)
	}
	if err := c.authorize(ctx, conn, kind, entityID); err != nil {
		return chat.Message{}, err
	}

	id := conn.Identity()
	msg, err := c.messages.Create(ctx, chat.Message{
		Kind:     kind,
		RoomID:   entityID,
		SenderID: id.UserID,
		Body:     body,
	})
	if err != nil {
		log.Error("Failed to persist chat message", "error", err, "room", roomKey(kind, entityID), "user_id", id.UserID)
		return chat.Message{}, ErrSendFailed
	}
	msg.SenderName = id.Name
	c.metrics.IncMessagesSent(string(kind))

	ev, err := newEvent(EventNewMessage, "", msg)
	if err != nil {
		return chat.Message{}, err
	}
	deliver(c.roomMembers(roomKey(kind, entityID)), ev)
	return msg, nil
}

// Handle dispatches a client event and answers it with an ack carrying the same id.
func (c *Coordinator) Handle(ctx context.Context, conn Conn, ev Event) {
	var ack Ack
	switch ev.Type {
	case EventJoinRoom:
		var req RoomRequest
		if err := json.Unmarshal(ev.Payload, &req); err != nil {
			ack.Error = fmt.Sprintf("%s: malformed payload", ErrInvalid)
			break
		}
		if err := c.JoinRoom(ctx, conn, req.Kind, req.EntityID); err != nil {
			ack.Error = errorText(err, ErrJoinFailed)
			break
		}
		ack.OK = true
	case EventSendMessage:
		var req MessageRequest
		if err := json.Unmarshal(ev.Payload, &req); err != nil {
			ack.Error = fmt.Sprintf("%s: malformed payload", ErrInvalid)
			break
		}
		msg, err := c.SendMessage(ctx, conn, req.Kind, req.EntityID, req.Message)
		if err != nil {
			ack.Error = errorText(err, ErrSendFailed)
			break
		}
		ack.OK = true
		ack.Message = &msg
	default:
		ack.Error = fmt.Sprintf("%s: unknown event type %q", ErrInvalid, ev.Type)
	}

	reply, err := newEvent(EventAck, ev.ID, ack)
	if err != nil {
		log.Error("Failed to encode ack", "error", err)
		return
	}
	if err := conn.Send(reply); err != nil {
		log.Warn("Failed to send ack", "error", err, "conn_id", conn.ID())
	}
}

// Members returns the ids of the connections in a room, for inspection.
func (c *Coordinator) Members(kind RoomKind, entityID string) []string {
	members := c.roomMembers(roomKey(kind, entityID))
	ids := make([]string, len(members))
	for i, conn := range members {
		ids[i] = conn.ID()
	}
	return ids
}

// Online returns the ids of users with at least one open connection.
func (c *Coordinator) Online() []string {
	return c.registry.Online()
}

// IsOnline reports whether userID has an open connection.
func (c *Coordinator) IsOnline(userID string) bool {
	return c.registry.IsOnline(userID)
}

func (c *Coordinator) roomMembers(key string) []Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	members := make([]Conn, 0, len(c.rooms[key]))
	for _, conn := range c.rooms[key] {
		members = append(members, conn)
	}
	return members
}

func (c *Coordinator) authorize(ctx context.Context, conn Conn, kind RoomKind, entityID string) error {
	id := conn.Identity()
	if id.Anonymous || id.UserID == "" {
		return ErrUnauthorized
	}
	ok, err := c.membership.IsMember(ctx, kind, entityID, id.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

func validateRoom(kind RoomKind, entityID string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown room kind %q", ErrInvalid, kind)
	}
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return "", fmt.Errorf("%w: entityId is required", ErrInvalid)
	}
	return entityID, nil
}

func newEvent(eventType, id string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, ID: id, Payload: data}, nil
}

// deliver sends ev to every recipient. A recipient that cannot take it misses this event only.
func deliver(recipients []Conn, ev Event) {
	for _, conn := range recipients {
		if err := conn.Send(ev); err != nil {
			log.Warn("Dropped event for connection", "error", err, "conn_id", conn.ID(), "type", ev.Type)
		}
	}
}

// errorText returns the message reported to the caller. Unexpected errors are logged and hidden behind fallback.
func errorText(err, fallback error) string {
	switch {
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrUnauthorized), errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrSendFailed), errors.Is(err, ErrClosed):
		return err.Error()
	default:
		log.Error("Realtime request failed", "error", err)
		return fallback.Error()
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrRoomNotFound):
		return "not_found"
	default:
		return "error"
	}
}

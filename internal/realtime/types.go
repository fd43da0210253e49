package realtime

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/mauv0809/pickup/internal/chat"
	"github.com/mauv0809/pickup/internal/metrics"
	"github.com/mauv0809/pickup/internal/presence"
)

// RoomKind tells which entity a room belongs to.
type RoomKind = chat.Kind

const (
	KindMatch     = chat.KindMatch
	KindCommunity = chat.KindCommunity
)

// Event types exchanged over a connection.
const (
	EventJoinRoom         = "join-room"
	EventSendMessage      = "send-message"
	EventAck              = "ack"
	EventNewMessage       = "new-message"
	EventPresenceChanged  = "presence-changed"
	EventPresenceSnapshot = "presence-snapshot"
)

var (
	ErrInvalid      = errors.New("invalid request")
	ErrUnauthorized = errors.New("not authorized for this room")
	ErrRoomNotFound = errors.New("room not found")
	ErrJoinFailed   = errors.New("unable to join room")
	ErrSendFailed   = errors.New("unable to send message")
	ErrQueueFull    = errors.New("send queue full")
	ErrClosed       = errors.New("connection closed")
)

// Identity is who a connection acts as.
type Identity struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Anonymous bool   `json:"anonymous"`
}

// Event is the envelope for every frame in both directions. ID correlates a request with its ack.
type Event struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Ack answers a join-room or send-message request.
type Ack struct {
	OK      bool          `json:"ok"`
	Message *chat.Message `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// RoomRequest is the payload of join-room.
type RoomRequest struct {
	Kind     RoomKind `json:"kind"`
	EntityID string   `json:"entityId"`
}

// MessageRequest is the payload of send-message.
type MessageRequest struct {
	Kind     RoomKind `json:"kind"`
	EntityID string   `json:"entityId"`
	Message  string   `json:"message"`
}

// PresenceChange is broadcast to every connection when a user goes online or offline.
type PresenceChange struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// PresenceSnapshot lists every online user. It is sent to a connection after it joins a room.
type PresenceSnapshot struct {
	UserIDs []string `json:"userIds"`
}

// Coordinator tracks live connections, room membership and presence.
type Coordinator struct {
	registry   *presence.Registry
	membership MembershipChecker
	messages   MessageStore
	presence   PresenceStore
	metrics    metrics.Metrics

	mu    sync.RWMutex
	conns map[string]Conn
	// rooms maps a room key to the connections in it, keyed by connection id.
	rooms map[string]map[string]Conn
	// joined maps a connection id to the room keys it is in.
	joined map[string]map[string]struct{}

	// transitions serializes presence transitions with their persistence and broadcast.
	transitions sync.Mutex
}

func roomKey(kind RoomKind, entityID string) string {
	return string(kind) + ":" + entityID
}

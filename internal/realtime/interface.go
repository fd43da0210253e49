package realtime

import (
	"context"

	"github.com/mauv0809/pickup/internal/chat"
)

// Conn is one live client connection.
type Conn interface {
	ID() string
	Identity() Identity
	// Send queues an event without blocking.
	Send(Event) error
}

// MembershipChecker decides whether a user may use a room. It returns ErrRoomNotFound when the entity is missing.
type MembershipChecker interface {
	IsMember(ctx context.Context, kind RoomKind, entityID, userID string) (bool, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	Create(ctx context.Context, msg chat.Message) (chat.Message, error)
}

// PresenceStore persists the online flag of a user.
type PresenceStore interface {
	SetOnline(ctx context.Context, userID string, online bool) error
}

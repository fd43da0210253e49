package chat

import (
	"database/sql"
	"errors"
	"sync"
	"time"
)

// MaxBodyLength is the longest message body, in characters, that is stored.
const MaxBodyLength = 500

// Kind tells which entity a chat room belongs to.
type Kind string

const (
	KindMatch     Kind = "match"
	KindCommunity Kind = "community"
)

// Valid reports whether k is a known room kind.
func (k Kind) Valid() bool {
	return k == KindMatch || k == KindCommunity
}

var ErrInvalidMessage = errors.New("invalid chat message")

// Message is a persisted chat line in a match or community room.
type Message struct {
	ID         string    `json:"id" msgpack:"id"`
	Kind       Kind      `json:"kind" msgpack:"kind"`
	RoomID     string    `json:"roomId" msgpack:"room_id"`
	SenderID   string    `json:"senderId" msgpack:"sender_id"`
	SenderName string    `json:"senderName" msgpack:"sender_name"`
	Body       string    `json:"message" msgpack:"body"`
	Timestamp  time.Time `json:"timestamp" msgpack:"timestamp"`
}

// store handles all database operations for chat messages.
type store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

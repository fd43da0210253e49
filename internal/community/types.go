package community

import (
	"database/sql"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound          = errors.New("community not found")
	ErrInvalidInviteCode = errors.New("invite code must be 6-8 letters or digits")
	ErrInviteCodeTaken   = errors.New("invite code already in use")
)

// Community groups users around a shared invite code.
type Community struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	InviteCode  string    `json:"inviteCode,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

// store handles all database operations for communities.
type store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

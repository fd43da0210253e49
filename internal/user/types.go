package user

import (
	"database/sql"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("an account with this email already exists")
)

// User is the identity data the service keeps about a player.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	SkillLevel   int       `json:"skillLevel"`
	IsOnline     bool      `json:"isOnline"`
	CreatedAt    time.Time `json:"createdAt"`
}

// store handles all database operations for users.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

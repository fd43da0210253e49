package match

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/mauv0809/pickup/internal/teams"
)

var (
	ErrNotFound      = errors.New("match not found")
	ErrFull          = errors.New("game is already full")
	ErrAlreadyJoined = errors.New("already joined this game")
)

// Match is a scheduled game with a capacity and a roster in join order.
type Match struct {
	ID               string           `json:"id"`
	Sport            string           `json:"sport"`
	Location         string           `json:"location"`
	Description      string           `json:"description"`
	StartTime        time.Time        `json:"dateTime"`
	MaxPlayers       int              `json:"maxPlayers"`
	SkillRequirement int              `json:"skillRequirement"`
	CommunityCode    string           `json:"communityCode,omitempty"`
	CreatedBy        string           `json:"createdBy"`
	Participants     []string         `json:"participants"`
	Teams            teams.Assignment `json:"teams"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// IsFull reports whether the roster has reached capacity.
func (m *Match) IsFull() bool {
	return len(m.Participants) >= m.MaxPlayers
}

func (m *Match) IsParticipant(userID string) bool {
	return slices.Contains(m.Participants, userID)
}

// TeamFormer builds the team assignment for a roster that has just filled.
type TeamFormer func(participants []string) (teams.Assignment, error)

// Filter narrows List results. Zero values disable a criterion.
type Filter struct {
	Sport        string
	Location     string
	MaxSkill     int
	UpcomingOnly bool
	Now          time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// store handles all database operations for matches.
type store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

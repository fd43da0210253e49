package match

import (
	"context"
	"time"

	"github.com/mauv0809/pickup/internal/teams"
)

// MatchStore defines the persistence operations for matches and their rosters.
type MatchStore interface {
	Create(ctx context.Context, m Match) (*Match, error)
	Get(ctx context.Context, id string) (*Match, error)
	List(ctx context.Context, filter Filter) ([]Match, error)
	Update(ctx context.Context, m *Match) error
	Delete(ctx context.Context, id string) error
	AddParticipant(ctx context.Context, matchID, userID string, form TeamFormer) (*Match, error)
	SetTeams(ctx context.Context, matchID string, assignment teams.Assignment) error
	IsParticipant(ctx context.Context, matchID, userID string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

package notifier

import (
	"context"
	"time"
)

// Notifier defines a high-level interface for sending notifications about business events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// When a new game is posted
	SendGameCreated(ctx context.Context, game GameAnnouncement, dryRun bool) error
	// When a roster fills up or the creator assigns teams by hand
	SendTeamsAnnouncement(ctx context.Context, announcement TeamsAnnouncement, dryRun bool) error
}

// GameAnnouncement describes a newly created game.
type GameAnnouncement struct {
	MatchID    string    `msgpack:"match_id" json:"matchId"`
	Sport      string    `msgpack:"sport" json:"sport"`
	Location   string    `msgpack:"location" json:"location"`
	StartTime  time.Time `msgpack:"start_time" json:"startTime"`
	MaxPlayers int       `msgpack:"max_players" json:"maxPlayers"`
	CreatedBy  string    `msgpack:"created_by" json:"createdBy"`
}

// TeamsAnnouncement carries a stored team assignment with display names.
type TeamsAnnouncement struct {
	MatchID   string    `msgpack:"match_id" json:"matchId"`
	Sport     string    `msgpack:"sport" json:"sport"`
	Location  string    `msgpack:"location" json:"location"`
	StartTime time.Time `msgpack:"start_time" json:"startTime"`
	TeamA     []string  `msgpack:"team_a" json:"teamA"`
	TeamB     []string  `msgpack:"team_b" json:"teamB"`
	Manual    bool      `msgpack:"manual" json:"manual"`
}

package roster

import (
	"errors"
	"time"

	"github.com/mauv0809/pickup/internal/community"
	"github.com/mauv0809/pickup/internal/match"
	"github.com/mauv0809/pickup/internal/metrics"
	"github.com/mauv0809/pickup/internal/notifier"
	"github.com/mauv0809/pickup/internal/pubsub"
	"github.com/mauv0809/pickup/internal/user"
)

var (
	ErrMissingFields     = errors.New("sport, dateTime, location, and maxPlayers are required")
	ErrMaxPlayers        = errors.New("maxPlayers must be an integer >= 2")
	ErrMaxBelowRoster    = errors.New("maxPlayers cannot be lower than currentPlayers")
	ErrSkillRange        = errors.New("skillRequirement must be between 1 and 5")
	ErrInviteRequired    = errors.New("inviteCode is required for this match")
	ErrInviteMismatch    = errors.New("invalid community code for this match")
	ErrNotCreator        = errors.New("only the game creator can do this")
	ErrNotFull           = errors.New("manual team assignment is available only for full games")
	ErrInvalidAssignment = errors.New("teamA and teamB must be arrays")

	errRosterChanged = errors.New("roster changed while joining")
)

const maxJoinAttempts = 3

// Roster coordinates game lifecycle operations across the stores and announces team changes.
type Roster struct {
	matches     match.MatchStore
	communities community.CommunityStore
	users       user.UserStore
	notifier    notifier.Notifier
	metrics     metrics.Metrics
	// pubsub is nil when announcements go straight to the notifier.
	pubsub pubsub.PubSubClient
}

// JoinResult describes the side effects of a successful Join.
type JoinResult struct {
	AlreadyJoined   bool
	JoinedCommunity bool
	TeamsFormed     bool
}

// Message is the human readable outcome shown to the joining player.
func (r JoinResult) Message() string {
	switch {
	case r.AlreadyJoined:
		return "You are already in this game"
	case r.JoinedCommunity:
		return "Joined game and community successfully"
	default:
		return "Joined game successfully"
	}
}

// Changes holds the editable fields of a game. Nil fields are left untouched.
type Changes struct {
	Sport            *string
	Location         *string
	Description      *string
	StartTime        *time.Time
	MaxPlayers       *int
	SkillRequirement *int
}

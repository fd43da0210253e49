package teams

import "errors"

// Player is the slice of a user the engine needs: who they are and how good they are.
type Player struct {
	ID    string  `json:"id"`
	Skill float64 `json:"skill"`
}

// Assignment is a two-team split of a match roster.
type Assignment struct {
	TeamA  []string `json:"teamA"`
	TeamB  []string `json:"teamB"`
	Manual bool     `json:"isManual"`
}

// IsEmpty reports whether no player has been assigned yet.
func (a Assignment) IsEmpty() bool {
	return len(a.TeamA) == 0 && len(a.TeamB) == 0
}

var (
	ErrIncomplete    = errors.New("each participant must be assigned to exactly one team")
	ErrDuplicate     = errors.New("duplicate participants found in team assignment")
	ErrUnknownPlayer = errors.New("team assignment contains non-participant IDs")
	ErrUnbalanced    = errors.New("teams must be split as evenly as possible")
)

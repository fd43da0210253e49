package teams

import (
	"math"
	"sort"
)

// DefaultSkill is used for players whose rating is missing or not a positive finite number.
const DefaultSkill = 1

// EffectiveSkill returns the rating the engine actually uses for a player.
func EffectiveSkill(skill float64) float64 {
	if math.IsNaN(skill) || math.IsInf(skill, 0) || skill <= 0 {
		return DefaultSkill
	}
	return skill
}

// FormTeams splits players into two teams whose sizes differ by at most one.
// Players are taken strongest first; the smaller team always gets the next player and,
// when sizes match, the team with the lower running skill total does (Team A on ties).
func FormTeams(players []Player) Assignment {
	sorted := make([]Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		return EffectiveSkill(sorted[i].Skill) > EffectiveSkill(sorted[j].Skill)
	})

	result := Assignment{TeamA: []string{}, TeamB: []string{}}
	var scoreA, scoreB float64
	for _, p := range sorted {
		skill := EffectiveSkill(p.Skill)
		switch {
		case len(result.TeamA) < len(result.TeamB):
			result.TeamA = append(result.TeamA, p.ID)
			scoreA += skill
		case len(result.TeamB) < len(result.TeamA):
			result.TeamB = append(result.TeamB, p.ID)
			scoreB += skill
		case scoreA <= scoreB:
			result.TeamA = append(result.TeamA, p.ID)
			scoreA += skill
		default:
			result.TeamB = append(result.TeamB, p.ID)
			scoreB += skill
		}
	}
	return result
}

// ValidateManual checks an organizer-supplied split against the current participants.
func ValidateManual(participants, teamA, teamB []string) error {
	known := make(map[string]struct{}, len(participants))
	for _, id := range participants {
		known[id] = struct{}{}
	}

	combined := make([]string, 0, len(teamA)+len(teamB))
	combined = append(combined, teamA...)
	combined = append(combined, teamB...)
	if len(combined) != len(known) {
		return ErrIncomplete
	}

	seen := make(map[string]struct{}, len(combined))
	for _, id := range combined {
		if _, dup := seen[id]; dup {
			return ErrDuplicate
		}
		seen[id] = struct{}{}
	}
	for _, id := range combined {
		if _, ok := known[id]; !ok {
			return ErrUnknownPlayer
		}
	}

	diff := len(teamA) - len(teamB)
	if diff < -1 || diff > 1 {
		return ErrUnbalanced
	}
	return nil
}

package roster

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup/internal/community"
	"github.com/mauv0809/pickup/internal/match"
	"github.com/mauv0809/pickup/internal/metrics"
	"github.com/mauv0809/pickup/internal/notifier"
	"github.com/mauv0809/pickup/internal/pubsub"
	"github.com/mauv0809/pickup/internal/teams"
	"github.com/mauv0809/pickup/internal/user"
)

// New creates a new Roster. A nil pubsub client sends announcements directly through the notifier.
func New(matches match.MatchStore, communities community.CommunityStore, users user.UserStore, notifier notifier.Notifier, metrics metrics.Metrics, pubsub pubsub.PubSubClient) *Roster {
	return &Roster{
		matches:     matches,
		communities: communities,
		users:       users,
		notifier:    notifier,
		metrics:     metrics,
		pubsub:      pubsub,
	}
}

// Create validates and stores a new game with its creator on the roster.
func (r *Roster) Create(ctx context.Context, m match.Match, dryRun bool) (*match.Match, error) {
	m.Sport = strings.TrimSpace(m.Sport)
	m.Location = strings.TrimSpace(m.Location)
	m.Description = strings.TrimSpace(m.Description)
	if m.Sport == "" || m.Location == "" || m.StartTime.IsZero() || m.MaxPlayers == 0 {
		return nil, ErrMissingFields
	}
	if m.MaxPlayers < 2 {
		return nil, ErrMaxPlayers
	}
	if m.SkillRequirement == 0 {
		m.SkillRequirement = 1
	}
	if m.SkillRequirement < 1 || m.SkillRequirement > 5 {
		return nil, ErrSkillRange
	}
	if _, err := r.users.Get(ctx, m.CreatedBy); err != nil {
		return nil, err
	}

	created, err := r.matches.Create(ctx, m)
	if err != nil {
		return nil, err
	}

	announcement := notifier.GameAnnouncement{
		MatchID:    created.ID,
		Sport:      created.Sport,
		Location:   created.Location,
		StartTime:  created.StartTime,
		MaxPlayers: created.MaxPlayers,
		CreatedBy:  created.CreatedBy,
	}
	if !r.publish(ctx, pubsub.EventGameCreated, announcement, dryRun) {
		if err := r.AnnounceGame(ctx, announcement, dryRun); err != nil {
			log.Error("Failed to announce new game", "error", err, "match_id", created.ID)
		}
	}
	return created, nil
}

// Join adds userID to the game. The join that fills the roster forms balanced teams
// and is stored together with them.
func (r *Roster) Join(ctx context.Context, matchID, userID, inviteCode string, dryRun bool) (*match.Match, JoinResult, error) {
	inviteCode = strings.ToUpper(strings.TrimSpace(inviteCode))
	for attempt := 1; ; attempt++ {
		m, result, err := r.join(ctx, matchID, userID, inviteCode, dryRun)
		if errors.Is(err, errRosterChanged) && attempt < maxJoinAttempts {
			log.Debug("Roster changed while joining, retrying", "match_id", matchID, "attempt", attempt)
			continue
		}
		return m, result, err
	}
}

func (r *Roster) join(ctx context.Context, matchID, userID, inviteCode string, dryRun bool) (*match.Match, JoinResult, error) {
	var result JoinResult

	m, err := r.matches.Get(ctx, matchID)
	if err != nil {
		return nil, result, err
	}
	if m.IsParticipant(userID) {
		return r.alreadyJoined(ctx, m, dryRun)
	}
	if m.IsFull() {
		return nil, result, match.ErrFull
	}
	if m.CommunityCode != "" {
		if inviteCode == "" {
			return nil, result, ErrInviteRequired
		}
		if inviteCode != m.CommunityCode {
			return nil, result, ErrInviteMismatch
		}
	}

	// Skills are read up front; the store holds its transaction while forming teams.
	var skills map[string]int
	if len(m.Participants)+1 >= m.MaxPlayers {
		skills, err = r.skills(ctx, append(slices.Clone(m.Participants), userID))
		if err != nil {
			return nil, result, err
		}
	}
	start := time.Now()
	m, err = r.matches.AddParticipant(ctx, matchID, userID, func(participants []string) (teams.Assignment, error) {
		return balance(participants, skills)
	})
	if errors.Is(err, match.ErrAlreadyJoined) {
		return r.alreadyJoined(ctx, m, dryRun)
	}
	if err != nil {
		return nil, result, err
	}
	r.metrics.IncGameJoins()

	if inviteCode != "" {
		result.JoinedCommunity = r.joinCommunity(ctx, inviteCode, userID)
	}

	if m.IsFull() {
		r.teamsFormed(m, start)
		result.TeamsFormed = true
		r.announceTeams(ctx, m, dryRun)
	}
	return m, result, nil
}

// alreadyJoined also repairs a full roster that was left without teams.
func (r *Roster) alreadyJoined(ctx context.Context, m *match.Match, dryRun bool) (*match.Match, JoinResult, error) {
	result := JoinResult{AlreadyJoined: true}
	if !m.IsFull() || !m.Teams.IsEmpty() {
		return m, result, nil
	}
	if err := r.formTeams(ctx, m); err != nil {
		return nil, result, err
	}
	result.TeamsFormed = true
	r.announceTeams(ctx, m, dryRun)
	return m, result, nil
}

func (r *Roster) joinCommunity(ctx context.Context, inviteCode, userID string) bool {
	c, err := r.communities.GetByInviteCode(ctx, inviteCode)
	if err != nil {
		if !errors.Is(err, community.ErrNotFound) {
			log.Error("Failed to look up community for invite code", "error", err)
		}
		return false
	}
	already, err := r.communities.AddMember(ctx, c.ID, userID)
	if err != nil {
		log.Error("Failed to add game player to community", "error", err, "community_id", c.ID, "user_id", userID)
		return false
	}
	return !already
}

func (r *Roster) formTeams(ctx context.Context, m *match.Match) error {
	start := time.Now()
	skills, err := r.skills(ctx, m.Participants)
	if err != nil {
		return err
	}
	assignment, err := balance(m.Participants, skills)
	if err != nil {
		return err
	}
	if err := r.matches.SetTeams(ctx, m.ID, assignment); err != nil {
		return err
	}
	m.Teams = assignment
	r.teamsFormed(m, start)
	return nil
}

// skills returns a skill for every id. Players whose account is gone get the default rating.
func (r *Roster) skills(ctx context.Context, ids []string) (map[string]int, error) {
	skills, err := r.users.Skills(ctx, ids)
	if err != nil {
		return nil, err
	}
	if skills == nil {
		skills = make(map[string]int, len(ids))
	}
	for _, id := range ids {
		if _, ok := skills[id]; !ok {
			skills[id] = 0
		}
	}
	return skills, nil
}

func (r *Roster) teamsFormed(m *match.Match, start time.Time) {
	r.metrics.IncTeamsFormed(false)
	r.metrics.ObserveTeamFormationDuration(time.Since(start).Seconds())
	log.Info("Formed teams", "match_id", m.ID, "team_a", len(m.Teams.TeamA), "team_b", len(m.Teams.TeamB))
}

// balance splits participants by skill. A participant missing from skills joined concurrently.
func balance(participants []string, skills map[string]int) (teams.Assignment, error) {
	players := make([]teams.Player, len(participants))
	for i, id := range participants {
		skill, ok := skills[id]
		if !ok {
			return teams.Assignment{}, errRosterChanged
		}
		players[i] = teams.Player{ID: id, Skill: float64(skill)}
	}
	return teams.FormTeams(players), nil
}

// AssignTeams stores a creator supplied split of a full roster.
func (r *Roster) AssignTeams(ctx context.Context, matchID, requesterID string, teamA, teamB []string, dryRun bool) (*match.Match, error) {
	if teamA == nil || teamB == nil {
		return nil, ErrInvalidAssignment
	}
	m, err := r.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.CreatedBy != requesterID {
		return nil, ErrNotCreator
	}
	if !m.IsFull() {
		return nil, ErrNotFull
	}
	if err := teams.ValidateManual(m.Participants, teamA, teamB); err != nil {
		return nil, err
	}

	assignment := teams.Assignment{TeamA: teamA, TeamB: teamB, Manual: true}
	if err := r.matches.SetTeams(ctx, matchID, assignment); err != nil {
		return nil, err
	}
	m.Teams = assignment
	r.metrics.IncTeamsFormed(true)
	log.Info("Teams assigned manually", "match_id", matchID, "by", requesterID)

	r.announceTeams(ctx, m, dryRun)
	return m, nil
}

// Update applies changes to a game owned by requesterID.
func (r *Roster) Update(ctx context.Context, matchID, requesterID string, changes Changes) (*match.Match, error) {
	m, err := r.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.CreatedBy != requesterID {
		return nil, ErrNotCreator
	}

	if changes.Sport != nil && strings.TrimSpace(*changes.Sport) != "" {
		m.Sport = strings.TrimSpace(*changes.Sport)
	}
	if changes.Location != nil && strings.TrimSpace(*changes.Location) != "" {
		m.Location = strings.TrimSpace(*changes.Location)
	}
	if changes.Description != nil {
		m.Description = strings.TrimSpace(*changes.Description)
	}
	if changes.StartTime != nil {
		m.StartTime = *changes.StartTime
	}
	if changes.MaxPlayers != nil {
		if *changes.MaxPlayers < 2 {
			return nil, ErrMaxPlayers
		}
		if *changes.MaxPlayers < len(m.Participants) {
			return nil, ErrMaxBelowRoster
		}
		m.MaxPlayers = *changes.MaxPlayers
	}
	if changes.SkillRequirement != nil {
		if *changes.SkillRequirement < 1 || *changes.SkillRequirement > 5 {
			return nil, ErrSkillRange
		}
		m.SkillRequirement = *changes.SkillRequirement
	}

	if err := r.matches.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes a game owned by requesterID together with its chat.
func (r *Roster) Delete(ctx context.Context, matchID, requesterID string) error {
	m, err := r.matches.Get(ctx, matchID)
	if err != nil {
		return err
	}
	if m.CreatedBy != requesterID {
		return ErrNotCreator
	}
	return r.matches.Delete(ctx, matchID)
}

// Players returns the roster in join order. Only the creator may list it.
func (r *Roster) Players(ctx context.Context, matchID, requesterID string) ([]user.User, error) {
	m, err := r.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.CreatedBy != requesterID {
		return nil, ErrNotCreator
	}
	return r.users.List(ctx, m.Participants)
}

// Announce sends a teams announcement through the notifier. It is the consumer side of EventTeamsFormed.
func (r *Roster) Announce(ctx context.Context, announcement notifier.TeamsAnnouncement, dryRun bool) error {
	return r.notifier.SendTeamsAnnouncement(ctx, announcement, dryRun)
}

// AnnounceGame sends a new game announcement through the notifier. It is the consumer side of EventGameCreated.
func (r *Roster) AnnounceGame(ctx context.Context, announcement notifier.GameAnnouncement, dryRun bool) error {
	return r.notifier.SendGameCreated(ctx, announcement, dryRun)
}

func (r *Roster) announceTeams(ctx context.Context, m *match.Match, dryRun bool) {
	announcement := notifier.TeamsAnnouncement{
		MatchID:   m.ID,
		Sport:     m.Sport,
		Location:  m.Location,
		StartTime: m.StartTime,
		TeamA:     r.displayNames(ctx, m.Teams.TeamA),
		TeamB:     r.displayNames(ctx, m.Teams.TeamB),
		Manual:    m.Teams.Manual,
	}
	if r.publish(ctx, pubsub.EventTeamsFormed, announcement, dryRun) {
		return
	}
	if err := r.Announce(ctx, announcement, dryRun); err != nil {
		log.Error("Failed to announce teams", "error", err, "match_id", m.ID)
	}
}

// publish reports whether the event was handed to pubsub.
func (r *Roster) publish(ctx context.Context, topic pubsub.EventType, data any, dryRun bool) bool {
	if r.pubsub == nil || dryRun {
		return false
	}
	if err := r.pubsub.SendMessage(ctx, topic, data); err != nil {
		log.Warn("Publishing failed, notifying directly", "error", err, "topic", topic)
		return false
	}
	return true
}

func (r *Roster) displayNames(ctx context.Context, ids []string) []string {
	users, err := r.users.List(ctx, ids)
	if err != nil {
		log.Error("Failed to load player names", "error", err)
		return ids
	}
	byID := make(map[string]string, len(users))
	for _, u := range users {
		byID[u.ID] = u.Name
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		if name, ok := byID[id]; ok && name != "" {
			names[i] = name
		} else {
			names[i] = id
		}
	}
	return names
}

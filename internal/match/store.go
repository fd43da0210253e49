package match

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/pickup/internal/teams"
)

const selectMatch = `
	SELECT id, sport, location, description, start_time, max_players, skill_requirement,
	       community_code, created_by, created_at, updated_at, team_a_json, team_b_json, teams_manual
	FROM matches`

// New creates a new MatchStore.
func New(db *sql.DB) MatchStore {
	return &store{
		db:  db,
		now: time.Now,
	}
}

// Create stores a new match with its creator as the first participant.
func (s *store) Create(ctx context.Context, m Match) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC().Truncate(time.Second)
	m.ID = uuid.New().String()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.CommunityCode = strings.ToUpper(strings.TrimSpace(m.CommunityCode))
	m.Participants = []string{m.CreatedBy}
	m.Teams = teams.Assignment{TeamA: []string{}, TeamB: []string{}}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO matches (id, sport, location, description, start_time, max_players, skill_requirement,
		                     community_code, created_by, created_at, updated_at, teams_manual)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, m.ID, m.Sport, m.Location, m.Description, m.StartTime.Unix(), m.MaxPlayers, m.SkillRequirement,
		m.CommunityCode, m.CreatedBy, now.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO match_participants (match_id, user_id, joined_at, position) VALUES (?, ?, ?, 0)",
		m.ID, m.CreatedBy, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to add creator to match: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit match: %w", err)
	}

	log.Info("Created match", "id", m.ID, "sport", m.Sport, "max_players", m.MaxPlayers)
	return &m, nil
}

func (s *store) Get(ctx context.Context, id string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(ctx, s.db, id)
}

func (s *store) get(ctx context.Context, q querier, id string) (*Match, error) {
	m, err := scanMatch(q.QueryRowContext(ctx, selectMatch+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if err := attachParticipants(ctx, q, []*Match{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns matches ordered by start time.
func (s *store) List(ctx context.Context, filter Filter) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		clauses []string
		args    []any
	)
	if filter.Sport != "" {
		clauses = append(clauses, "LOWER(sport) = LOWER(?)")
		args = append(args, filter.Sport)
	}
	if filter.Location != "" {
		clauses = append(clauses, "LOWER(location) LIKE '%' || LOWER(?) || '%'")
		args = append(args, filter.Location)
	}
	if filter.MaxSkill > 0 {
		clauses = append(clauses, "skill_requirement <= ?")
		args = append(args, filter.MaxSkill)
	}
	if filter.UpcomingOnly {
		now := filter.Now
		if now.IsZero() {
			now = s.now()
		}
		clauses = append(clauses, "start_time >= ?")
		args = append(args, now.Unix())
	}

	query := selectMatch
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_time ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	var matches []*Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			log.Error("Failed to scan match row", "error", err)
			continue
		}
		matches = append(matches, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := attachParticipants(ctx, s.db, matches); err != nil {
		return nil, err
	}
	result := make([]Match, len(matches))
	for i, m := range matches {
		result[i] = *m
	}
	return result, nil
}

// Update writes the editable fields of m.
func (s *store) Update(ctx context.Context, m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.UpdatedAt = s.now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx, `
		UPDATE matches
		SET sport = ?, location = ?, description = ?, start_time = ?, max_players = ?, skill_requirement = ?, updated_at = ?
		WHERE id = ?
	`, m.Sport, m.Location, m.Description, m.StartTime.Unix(), m.MaxPlayers, m.SkillRequirement, m.UpdatedAt.Unix(), m.ID)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	return requireAffected(res)
}

// Delete removes the match with its participants and chat.
func (s *store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDependents(ctx, tx, "id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match deletion: %w", err)
	}
	log.Info("Deleted match", "id", id)
	return nil
}

// deleteDependents removes chat and roster rows of the matches selected by where.
// Remote connections may run without foreign_keys, so ON DELETE CASCADE cannot be assumed.
func deleteDependents(ctx context.Context, q querier, where string, args ...any) error {
	sub := "SELECT id FROM matches WHERE " + where
	if _, err := q.ExecContext(ctx, "DELETE FROM chat_messages WHERE match_id IN ("+sub+")", args...); err != nil {
		return fmt.Errorf("failed to delete match chat: %w", err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM match_participants WHERE match_id IN ("+sub+")", args...); err != nil {
		return fmt.Errorf("failed to delete match participants: %w", err)
	}
	return nil
}

// AddParticipant appends userID to the roster and returns the updated match.
// When the join fills the roster and form is non-nil, the teams it returns are
// written in the same transaction; a form error leaves the roster unchanged.
func (s *store) AddParticipant(ctx context.Context, matchID, userID string, form TeamFormer) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := s.get(ctx, tx, matchID)
	if err != nil {
		return nil, err
	}
	if m.IsParticipant(userID) {
		return m, ErrAlreadyJoined
	}
	if m.IsFull() {
		return m, ErrFull
	}

	now := s.now().UTC().Truncate(time.Second)
	_, err = tx.ExecContext(ctx,
		"INSERT INTO match_participants (match_id, user_id, joined_at, position) VALUES (?, ?, ?, ?)",
		matchID, userID, now.Unix(), len(m.Participants))
	if err != nil {
		return nil, fmt.Errorf("failed to add participant: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "UPDATE matches SET updated_at = ? WHERE id = ?", now.Unix(), matchID); err != nil {
		return nil, fmt.Errorf("failed to touch match: %w", err)
	}
	m.Participants = append(m.Participants, userID)
	m.UpdatedAt = now

	if m.IsFull() && form != nil {
		assignment, err := form(m.Participants)
		if err != nil {
			return nil, err
		}
		if err := setTeams(ctx, tx, matchID, assignment, now); err != nil {
			return nil, err
		}
		m.Teams = assignment
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit participant: %w", err)
	}

	log.Info("Player joined match", "match_id", matchID, "user_id", userID, "players", len(m.Participants), "max_players", m.MaxPlayers)
	return m, nil
}

// SetTeams replaces the stored team assignment.
func (s *store) SetTeams(ctx context.Context, matchID string, assignment teams.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setTeams(ctx, s.db, matchID, assignment, s.now())
}

func setTeams(ctx context.Context, q querier, matchID string, assignment teams.Assignment, now time.Time) error {
	teamA, err := json.Marshal(nonNil(assignment.TeamA))
	if err != nil {
		return err
	}
	teamB, err := json.Marshal(nonNil(assignment.TeamB))
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx,
		"UPDATE matches SET team_a_json = ?, team_b_json = ?, teams_manual = ?, updated_at = ? WHERE id = ?",
		string(teamA), string(teamB), assignment.Manual, now.Unix(), matchID)
	if err != nil {
		return fmt.Errorf("failed to set teams: %w", err)
	}
	return requireAffected(res)
}

func (s *store) IsParticipant(ctx context.Context, matchID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM matches WHERE id = ?", matchID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up match: %w", err)
	}
	if exists == 0 {
		return false, ErrNotFound
	}
	var joined int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM match_participants WHERE match_id = ? AND user_id = ?", matchID, userID).Scan(&joined)
	if err != nil {
		return false, fmt.Errorf("failed to look up participant: %w", err)
	}
	return joined > 0, nil
}

// DeleteExpired removes every match that started before now and returns how many were removed.
func (s *store) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDependents(ctx, tx, "start_time < ?", now.Unix()); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE start_time < ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired matches: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit expired match deletion: %w", err)
	}
	return int(n), nil
}

func scanMatch(scanner interface{ Scan(...any) error }) (*Match, error) {
	var m Match
	var startTime, createdAt, updatedAt int64
	var teamA, teamB sql.NullString

	err := scanner.Scan(&m.ID, &m.Sport, &m.Location, &m.Description, &startTime, &m.MaxPlayers,
		&m.SkillRequirement, &m.CommunityCode, &m.CreatedBy, &createdAt, &updatedAt, &teamA, &teamB, &m.Teams.Manual)
	if err != nil {
		return nil, err
	}
	m.StartTime = time.Unix(startTime, 0).UTC()
	m.CreatedAt = time.Unix(createdAt, 0).UTC()
	m.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	m.Teams.TeamA = decodeTeam(teamA, m.ID)
	m.Teams.TeamB = decodeTeam(teamB, m.ID)
	m.Participants = []string{}
	return &m, nil
}

func decodeTeam(raw sql.NullString, matchID string) []string {
	team := []string{}
	if !raw.Valid || raw.String == "" {
		return team
	}
	if err := json.Unmarshal([]byte(raw.String), &team); err != nil {
		log.Error("Failed to unmarshal team json", "error", err, "match_id", matchID)
		return []string{}
	}
	return team
}

func attachParticipants(ctx context.Context, q querier, matches []*Match) error {
	if len(matches) == 0 {
		return nil
	}
	byID := make(map[string]*Match, len(matches))
	args := make([]any, len(matches))
	for i, m := range matches {
		byID[m.ID] = m
		args[i] = m.ID
	}
	rows, err := q.QueryContext(ctx, `
		SELECT match_id, user_id FROM match_participants
		WHERE match_id IN (`+strings.TrimSuffix(strings.Repeat("?,", len(matches)), ",")+`)
		ORDER BY match_id, position ASC
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var matchID, userID string
		if err := rows.Scan(&matchID, &userID); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		if m, ok := byID[matchID]; ok {
			m.Participants = append(m.Participants, userID)
		}
	}
	return rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

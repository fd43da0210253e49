package community

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const selectCommunity = "SELECT id, name, description, invite_code, created_by, created_at FROM communities"

// New creates a new CommunityStore.
func New(db *sql.DB) CommunityStore {
	return &store{
		db:  db,
		now: time.Now,
	}
}

// NormalizeInviteCode upper-cases the code and checks it is 6-8 letters or digits.
func NormalizeInviteCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 6 || len(code) > 8 {
		return "", ErrInvalidInviteCode
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", ErrInvalidInviteCode
		}
	}
	return code, nil
}

// Create stores the community and makes its creator the first member.
func (s *store) Create(ctx context.Context, c Community) (*Community, error) {
	code, err := NormalizeInviteCode(c.InviteCode)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC().Truncate(time.Second)
	c.ID = uuid.New().String()
	c.Name = strings.TrimSpace(c.Name)
	c.InviteCode = code
	c.CreatedAt = now
	c.Members = []string{c.CreatedBy}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var taken int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM communities WHERE invite_code = ?", code).Scan(&taken); err != nil {
		return nil, fmt.Errorf("failed to check invite code: %w", err)
	}
	if taken > 0 {
		return nil, ErrInviteCodeTaken
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO communities (id, name, description, invite_code, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Description, c.InviteCode, c.CreatedBy, now.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create community: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO community_members (community_id, user_id, joined_at) VALUES (?, ?, ?)",
		c.ID, c.CreatedBy, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to add creator to community: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit community: %w", err)
	}

	log.Info("Created community", "id", c.ID, "name", c.Name)
	return &c, nil
}

func (s *store) Get(ctx context.Context, id string) (*Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBy(ctx, "id", id)
}

func (s *store) GetByInviteCode(ctx context.Context, code string) (*Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBy(ctx, "invite_code", strings.ToUpper(strings.TrimSpace(code)))
}

func (s *store) getBy(ctx context.Context, column, value string) (*Community, error) {
	c, err := scanCommunity(s.db.QueryRowContext(ctx, selectCommunity+" WHERE "+column+" = ?", value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get community: %w", err)
	}
	members, err := s.members(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Members = members
	return c, nil
}

// List returns communities whose name or description contains search, newest first.
func (s *store) List(ctx context.Context, search string) ([]Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectCommunity
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		query += " WHERE LOWER(name) LIKE '%' || LOWER(?) || '%' OR LOWER(description) LIKE '%' || LOWER(?) || '%'"
		args = append(args, search, search)
	}
	query += " ORDER BY created_at DESC, name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}
	var communities []Community
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			log.Error("Failed to scan community row", "error", err)
			continue
		}
		communities = append(communities, *c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range communities {
		members, err := s.members(ctx, communities[i].ID)
		if err != nil {
			return nil, err
		}
		communities[i].Members = members
	}
	if communities == nil {
		communities = []Community{}
	}
	return communities, nil
}

func (s *store) AddMember(ctx context.Context, communityID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM communities WHERE id = ?", communityID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up community: %w", err)
	}
	if exists == 0 {
		return false, ErrNotFound
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO community_members (community_id, user_id, joined_at) VALUES (?, ?, ?)",
		communityID, userID, s.now().Unix())
	if err != nil {
		return false, fmt.Errorf("failed to add member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return true, nil
	}
	log.Info("Member joined community", "community_id", communityID, "user_id", userID)
	return false, nil
}

func (s *store) IsMember(ctx context.Context, communityID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM communities WHERE id = ?", communityID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up community: %w", err)
	}
	if exists == 0 {
		return false, ErrNotFound
	}
	var member int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM community_members WHERE community_id = ? AND user_id = ?", communityID, userID).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("failed to look up member: %w", err)
	}
	return member > 0, nil
}

func (s *store) members(ctx context.Context, communityID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM community_members WHERE community_id = ? ORDER BY joined_at ASC, rowid ASC", communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

func scanCommunity(scanner interface{ Scan(...any) error }) (*Community, error) {
	var c Community
	var code sql.NullString
	var createdAt int64
	if err := scanner.Scan(&c.ID, &c.Name, &c.Description, &code, &c.CreatedBy, &createdAt); err != nil {
		return nil, err
	}
	c.InviteCode = code.String
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.Members = []string{}
	return &c, nil
}

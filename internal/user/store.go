package user

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

const DefaultSkillLevel = 3

// New creates a new UserStore.
func New(db *sql.DB) UserStore {
	return &store{
		db: db,
	}
}

func (s *store) Create(ctx context.Context, name, email, passwordHash string, skillLevel int) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if skillLevel == 0 {
		skillLevel = DefaultSkillLevel
	}
	u := &User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		SkillLevel:   skillLevel,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}

	var existing string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", u.Email).Scan(&existing)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, skill_level, is_online, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.SkillLevel, u.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("Created user", "id", u.ID, "name", u.Name)
	return u, nil
}

func (s *store) Get(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBy(ctx, "id", id)
}

func (s *store) GetByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBy(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (s *store) getBy(ctx context.Context, column, value string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, skill_level, is_online, created_at
		FROM users WHERE `+column+` = ?`, value)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// List returns the users with the given ids, in the order of ids. Unknown ids are skipped.
func (s *store) List(ctx context.Context, ids []string) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, password_hash, skill_level, is_online, created_at
		FROM users WHERE id IN (`+placeholders(len(ids))+`)`, toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]User, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		byID[u.ID] = *u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	users := make([]User, 0, len(byID))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *store) Skills(ctx context.Context, ids []string) (map[string]int, error) {
	users, err := s.List(ctx, ids)
	if err != nil {
		return nil, err
	}
	skills := make(map[string]int, len(users))
	for _, u := range users {
		skills[u.ID] = u.SkillLevel
	}
	return skills, nil
}

// SetOnline persists the presence flag shown in REST responses.
func (s *store) SetOnline(ctx context.Context, id string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "UPDATE users SET is_online = ? WHERE id = ?", online, id)
	if err != nil {
		return fmt.Errorf("failed to update presence for %s: %w", id, err)
	}
	return nil
}

func scanUser(scanner interface{ Scan(...any) error }) (*User, error) {
	var u User
	var createdAt int64
	if err := scanner.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.SkillLevel, &u.IsOnline, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

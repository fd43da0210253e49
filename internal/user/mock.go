package user

import (
	"context"
	"sync"
)

// Mock is a mock implementation of the UserStore interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	Users map[string]*User

	// Spies for method calls
	SetOnlineFunc func(ctx context.Context, id string, online bool) error

	// Call records
	SetOnlineCalls []SetOnlineCall
}

// SetOnlineCall holds the arguments for a call to SetOnline.
type SetOnlineCall struct {
	ID     string
	Online bool
}

// NewMock creates a new mock instance seeded with the given users.
func NewMock(users ...User) *Mock {
	m := &Mock{Users: make(map[string]*User)}
	for i := range users {
		u := users[i]
		m.Users[u.ID] = &u
	}
	return m
}

func (m *Mock) Create(ctx context.Context, name, email, passwordHash string, skillLevel int) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == email {
			return nil, ErrEmailExists
		}
	}
	u := &User{ID: "user-" + email, Name: name, Email: email, PasswordHash: passwordHash, SkillLevel: skillLevel}
	m.Users[u.ID] = u
	return u, nil
}

func (m *Mock) Get(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *Mock) GetByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Mock) List(ctx context.Context, ids []string) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.Users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (m *Mock) Skills(ctx context.Context, ids []string) (map[string]int, error) {
	users, _ := m.List(ctx, ids)
	skills := make(map[string]int, len(users))
	for _, u := range users {
		skills[u.ID] = u.SkillLevel
	}
	return skills, nil
}

func (m *Mock) SetOnline(ctx context.Context, id string, online bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetOnlineCalls = append(m.SetOnlineCalls, SetOnlineCall{ID: id, Online: online})
	if m.SetOnlineFunc != nil {
		return m.SetOnlineFunc(ctx, id, online)
	}
	if u, ok := m.Users[id]; ok {
		u.IsOnline = online
	}
	return nil
}

// Calls returns a copy of the recorded SetOnline calls.
func (m *Mock) Calls() []SetOnlineCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SetOnlineCall(nil), m.SetOnlineCalls...)
}

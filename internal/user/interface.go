package user

import "context"

// UserStore defines the interface for reading and writing users.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string, skillLevel int) (*User, error)
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, ids []string) ([]User, error)
	Skills(ctx context.Context, ids []string) (map[string]int, error)
	SetOnline(ctx context.Context, id string, online bool) error
}

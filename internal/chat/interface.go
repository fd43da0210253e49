package chat

import "context"

// ChatStore persists and lists room messages. Messages are removed together with their match or community.
type ChatStore interface {
	Create(ctx context.Context, msg Message) (Message, error)
	ListByMatch(ctx context.Context, matchID string) ([]Message, error)
	ListByCommunity(ctx context.Context, communityID string, limit int) ([]Message, error)
}

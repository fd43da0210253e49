package chat

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// New creates a new ChatStore.
func New(db *sql.DB) ChatStore {
	return &store{
		db:  db,
		now: time.Now,
	}
}

// Normalize trims the body and cuts it to MaxBodyLength characters.
func Normalize(body string) string {
	trimmed := strings.TrimSpace(body)
	if runes := []rune(trimmed); len(runes) > MaxBodyLength {
		return string(runes[:MaxBodyLength])
	}
	return trimmed
}

// Create assigns the id and timestamp and stores the message.
func (s *store) Create(ctx context.Context, msg Message) (Message, error) {
	msg.Body = Normalize(msg.Body)
	if !msg.Kind.Valid() || msg.RoomID == "" || msg.SenderID == "" || msg.Body == "" {
		return Message{}, ErrInvalidMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg.ID = uuid.New().String()
	msg.Timestamp = s.now().UTC().Truncate(time.Millisecond)

	var matchID, communityID sql.NullString
	if msg.Kind == KindMatch {
		matchID = sql.NullString{String: msg.RoomID, Valid: true}
	} else {
		communityID = sql.NullString{String: msg.RoomID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, match_id, community_id, sender_id, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, matchID, communityID, msg.SenderID, msg.Body, msg.Timestamp.UnixMilli())
	if err != nil {
		return Message{}, fmt.Errorf("failed to create chat message: %w", err)
	}
	return msg, nil
}

func (s *store) ListByMatch(ctx context.Context, matchID string) ([]Message, error) {
	return s.list(ctx, KindMatch, "c.match_id = ?", matchID, -1)
}

// ListByCommunity returns the most recent limit messages, oldest first. A non-positive limit returns all of them.
func (s *store) ListByCommunity(ctx context.Context, communityID string, limit int) ([]Message, error) {
	return s.list(ctx, KindCommunity, "c.community_id = ?", communityID, limit)
}

func (s *store) list(ctx context.Context, kind Kind, where string, roomID string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, sender_name, body, created_at FROM (
			SELECT c.rowid AS seq, c.id, c.sender_id, COALESCE(u.name, '') AS sender_name, c.body, c.created_at
			FROM chat_messages c
			LEFT JOIN users u ON u.id = c.sender_id
			WHERE `+where+`
			ORDER BY c.created_at DESC, c.rowid DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, seq ASC
	`, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		msg := Message{Kind: kind, RoomID: roomID}
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.SenderName, &msg.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		msg.Timestamp = time.UnixMilli(createdAt).UTC()
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

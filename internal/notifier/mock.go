package notifier

import (
	"context"
	"sync"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies for method calls
	SendGameCreatedFunc       func(game GameAnnouncement, dryRun bool) error
	SendTeamsAnnouncementFunc func(announcement TeamsAnnouncement, dryRun bool) error

	// Call records
	SendGameCreatedCalls       []GameAnnouncement
	SendTeamsAnnouncementCalls []TeamsAnnouncement
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendGameCreatedCalls = nil
	m.SendTeamsAnnouncementCalls = nil
}

func (m *Mock) SendGameCreated(ctx context.Context, game GameAnnouncement, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendGameCreatedCalls = append(m.SendGameCreatedCalls, game)
	if m.SendGameCreatedFunc != nil {
		return m.SendGameCreatedFunc(game, dryRun)
	}
	return nil
}

func (m *Mock) SendTeamsAnnouncement(ctx context.Context, announcement TeamsAnnouncement, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendTeamsAnnouncementCalls = append(m.SendTeamsAnnouncementCalls, announcement)
	if m.SendTeamsAnnouncementFunc != nil {
		return m.SendTeamsAnnouncementFunc(announcement, dryRun)
	}
	return nil
}

// TeamsAnnouncements returns a copy of the recorded SendTeamsAnnouncement calls.
func (m *Mock) TeamsAnnouncements() []TeamsAnnouncement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TeamsAnnouncement(nil), m.SendTeamsAnnouncementCalls...)
}

// GamesCreated returns a copy of the recorded SendGameCreated calls.
func (m *Mock) GamesCreated() []GameAnnouncement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GameAnnouncement(nil), m.SendGameCreatedCalls...)
}

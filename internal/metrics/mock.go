package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                    sync.Mutex
	connections           int
	onlineUsers           int
	messagesSent          map[string]int
	roomJoinsRejected     map[string]int
	gameJoins             int
	teamsFormed           map[bool]int
	formationDurations    []float64
	expiredMatchesRemoved int
	slackNotifSent        int
	slackNotifFailed      int
	startupTime           float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		messagesSent:       make(map[string]int),
		roomJoinsRejected:  make(map[string]int),
		teamsFormed:        make(map[bool]int),
		formationDurations: make([]float64, 0),
	}
}

func (m *Mock) SetConnections(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections = n
}

func (m *Mock) SetOnlineUsers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onlineUsers = n
}

func (m *Mock) IncMessagesSent(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesSent[kind]++
}

func (m *Mock) IncRoomJoinsRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomJoinsRejected[reason]++
}

func (m *Mock) IncGameJoins() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gameJoins++
}

func (m *Mock) IncTeamsFormed(manual bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teamsFormed[manual]++
}

func (m *Mock) ObserveTeamFormationDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formationDurations = append(m.formationDurations, duration)
}

func (m *Mock) AddExpiredMatchesRemoved(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiredMatchesRemoved += n
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// Connections returns the last value passed to SetConnections.
func (m *Mock) Connections() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connections
}

// OnlineUsers returns the last value passed to SetOnlineUsers.
func (m *Mock) OnlineUsers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onlineUsers
}

// MessagesSent returns how many messages were counted for the room kind.
func (m *Mock) MessagesSent(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messagesSent[kind]
}

// RoomJoinsRejected returns how many joins were rejected for the reason.
func (m *Mock) RoomJoinsRejected(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomJoinsRejected[reason]
}

// GameJoins returns the number of times IncGameJoins was called.
func (m *Mock) GameJoins() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gameJoins
}

// TeamsFormed returns how many assignments were counted in the given mode.
func (m *Mock) TeamsFormed(manual bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.teamsFormed[manual]
}

// ExpiredMatchesRemoved returns the running total passed to AddExpiredMatchesRemoved.
func (m *Mock) ExpiredMatchesRemoved() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiredMatchesRemoved
}

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}

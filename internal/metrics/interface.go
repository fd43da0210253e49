package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	SetConnections(n int)
	SetOnlineUsers(n int)
	IncMessagesSent(kind string)
	IncRoomJoinsRejected(reason string)
	IncGameJoins()
	IncTeamsFormed(manual bool)
	ObserveTeamFormationDuration(duration float64)
	AddExpiredMatchesRemoved(n int)
	IncSlackNotifSent()
	IncSlackNotifFailed()
	SetStartupTime(duration float64)
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
type Service struct {
	Connections           prometheus.Gauge
	OnlineUsers           prometheus.Gauge
	MessagesSent          *prometheus.CounterVec
	RoomJoinsRejected     *prometheus.CounterVec
	GameJoins             prometheus.Counter
	TeamsFormed           *prometheus.CounterVec
	TeamFormationDuration prometheus.Histogram
	ExpiredMatchesRemoved prometheus.Counter
	SlackNotifSent        prometheus.Counter
	SlackNotifFailed      prometheus.Counter
	StartupTimeSeconds    prometheus.Gauge
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pickup_realtime_connections",
			Help: "The number of open realtime connections.",
		}),
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pickup_online_users",
			Help: "The number of distinct users with at least one open connection.",
		}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickup_chat_messages_sent_total",
			Help: "The total number of chat messages persisted and broadcast, by room kind.",
		}, []string{"kind"}),
		RoomJoinsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickup_room_joins_rejected_total",
			Help: "The total number of rejected room joins, by reason.",
		}, []string{"reason"}),
		GameJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pickup_game_joins_total",
			Help: "The total number of players that joined a game.",
		}),
		TeamsFormed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickup_teams_formed_total",
			Help: "The total number of team assignments stored, by mode.",
		}, []string{"mode"}),
		TeamFormationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pickup_team_formation_duration_seconds",
			Help:    "The duration of automatic team formation including skill lookup.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ExpiredMatchesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pickup_expired_matches_removed_total",
			Help: "The total number of matches removed by the expiry sweep.",
		}),
		SlackNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pickup_slack_notifications_sent_total",
			Help: "The total number of Slack notifications successfully sent.",
		}),
		SlackNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pickup_slack_notifications_failed_total",
			Help: "The total number of Slack notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pickup_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.Connections,
		s.OnlineUsers,
		s.MessagesSent,
		s.RoomJoinsRejected,
		s.GameJoins,
		s.TeamsFormed,
		s.TeamFormationDuration,
		s.ExpiredMatchesRemoved,
		s.SlackNotifSent,
		s.SlackNotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) SetConnections(n int) {
	s.Connections.Set(float64(n))
}

func (s *Service) SetOnlineUsers(n int) {
	s.OnlineUsers.Set(float64(n))
}

func (s *Service) IncMessagesSent(kind string) {
	s.MessagesSent.WithLabelValues(kind).Inc()
}

func (s *Service) IncRoomJoinsRejected(reason string) {
	s.RoomJoinsRejected.WithLabelValues(reason).Inc()
}

func (s *Service) IncGameJoins() {
	s.GameJoins.Inc()
}

func (s *Service) IncTeamsFormed(manual bool) {
	mode := "auto"
	if manual {
		mode = "manual"
	}
	s.TeamsFormed.WithLabelValues(mode).Inc()
}

func (s *Service) ObserveTeamFormationDuration(duration float64) {
	s.TeamFormationDuration.Observe(duration)
}

func (s *Service) AddExpiredMatchesRemoved(n int) {
	s.ExpiredMatchesRemoved.Add(float64(n))
}

func (s *Service) IncSlackNotifSent() {
	s.SlackNotifSent.Inc()
}

func (s *Service) IncSlackNotifFailed() {
	s.SlackNotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}

package http

import (
	"net/http"

	"github.com/mauv0809/pickup/internal/config"
	"github.com/mauv0809/pickup/internal/metrics"
)

func NewServer(services Services, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config) *Server {
	server := &Server{
		Users:          services.Users,
		Matches:        services.Matches,
		Communities:    services.Communities,
		Chats:          services.Chats,
		Roster:         services.Roster,
		Coordinator:    services.Coordinator,
		Realtime:       services.Realtime,
		Issuer:         services.Issuer,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         http.NewServeMux(),
		pubsub:         services.PubSub,
	}

	server.routes()
	server.handler = corsMiddleware(cfg.CORSOrigin)(server.Router)
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// Authenticated routes add s.authMiddleware after paramsMiddleware.
	public := []Middleware{paramsMiddleware}
	private := []Middleware{paramsMiddleware, s.authMiddleware}

	s.Router.Handle("GET /metrics", s.MetricsHandler)
	s.Router.Handle("GET /health", Chain(s.HealthCheckHandler(), public...))
	s.Router.Handle("GET /ws", s.Realtime)

	s.Router.Handle("POST /api/auth/register", Chain(s.RegisterHandler(), public...))
	s.Router.Handle("POST /api/auth/login", Chain(s.LoginHandler(), public...))

	s.Router.Handle("GET /api/users/me", Chain(s.CurrentUserHandler(), private...))
	s.Router.Handle("GET /api/users/online", Chain(s.OnlineUsersHandler(), private...))
	s.Router.Handle("GET /api/users/{id}", Chain(s.GetUserHandler(), private...))

	s.Router.Handle("GET /api/games", Chain(s.ListGamesHandler(), public...))
	s.Router.Handle("POST /api/games", Chain(s.CreateGameHandler(), private...))
	s.Router.Handle("POST /api/games/create", Chain(s.CreateGameHandler(), private...))
	s.Router.Handle("GET /api/games/{id}", Chain(s.GetGameHandler(), public...))
	s.Router.Handle("PUT /api/games/{id}", Chain(s.UpdateGameHandler(), private...))
	s.Router.Handle("DELETE /api/games/{id}", Chain(s.DeleteGameHandler(), private...))
	s.Router.Handle("POST /api/games/{id}/join", Chain(s.JoinGameHandler(), private...))
	s.Router.Handle("PUT /api/games/{id}/teams/manual", Chain(s.ManualTeamsHandler(), private...))
	s.Router.Handle("GET /api/games/{id}/players", Chain(s.GamePlayersHandler(), private...))
	s.Router.Handle("GET /api/games/{id}/messages", Chain(s.GameMessagesHandler(), private...))

	s.Router.Handle("GET /api/community", Chain(s.ListCommunitiesHandler(), private...))
	s.Router.Handle("POST /api/community", Chain(s.CreateCommunityHandler(), private...))
	s.Router.Handle("POST /api/community/create", Chain(s.CreateCommunityHandler(), private...))
	s.Router.Handle("POST /api/community/join-by-code", Chain(s.JoinCommunityHandler(), private...))
	s.Router.Handle("GET /api/community/{id}", Chain(s.GetCommunityHandler(), private...))

	s.Router.Handle("POST /pubsub/teams-formed", Chain(s.TeamsFormedPushHandler(), public...))
	s.Router.Handle("POST /pubsub/game-created", Chain(s.GameCreatedPushHandler(), public...))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

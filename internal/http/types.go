package http

import (
	"net/http"
	"time"

	"github.com/mauv0809/pickup/internal/auth"
	"github.com/mauv0809/pickup/internal/chat"
	"github.com/mauv0809/pickup/internal/community"
	"github.com/mauv0809/pickup/internal/config"
	"github.com/mauv0809/pickup/internal/match"
	"github.com/mauv0809/pickup/internal/metrics"
	"github.com/mauv0809/pickup/internal/pubsub"
	"github.com/mauv0809/pickup/internal/realtime"
	"github.com/mauv0809/pickup/internal/roster"
	"github.com/mauv0809/pickup/internal/teams"
	"github.com/mauv0809/pickup/internal/user"
)

// communityMessageLimit is how many recent messages GET /api/community/{id} returns.
const communityMessageLimit = 300

type Server struct {
	Users          user.UserStore
	Matches        match.MatchStore
	Communities    community.CommunityStore
	Chats          chat.ChatStore
	Roster         *roster.Roster
	Coordinator    *realtime.Coordinator
	Realtime       http.Handler
	Issuer         *auth.Issuer
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *http.ServeMux
	handler        http.Handler
	// pubsub decodes push deliveries. It is nil when no project is configured.
	pubsub pubsub.PubSubClient
}

// Services groups the collaborators a Server routes requests to.
type Services struct {
	Users       user.UserStore
	Matches     match.MatchStore
	Communities community.CommunityStore
	Chats       chat.ChatStore
	Roster      *roster.Roster
	Coordinator *realtime.Coordinator
	Realtime    http.Handler
	Issuer      *auth.Issuer
	PubSub      pubsub.PubSubClient
}

type errorResponse struct {
	Error string `json:"error"`
}

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	SkillLevel *int   `json:"skillLevel"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

type createGameRequest struct {
	Sport            string `json:"sport"`
	DateTime         string `json:"dateTime"`
	Location         string `json:"location"`
	Description      string `json:"description"`
	MaxPlayers       int    `json:"maxPlayers"`
	SkillRequirement int    `json:"skillRequirement"`
	CommunityCode    string `json:"communityCode"`
}

type updateGameRequest struct {
	Sport            *string `json:"sport"`
	DateTime         *string `json:"dateTime"`
	Location         *string `json:"location"`
	Description      *string `json:"description"`
	MaxPlayers       *int    `json:"maxPlayers"`
	SkillRequirement *int    `json:"skillRequirement"`
}

type joinGameRequest struct {
	InviteCode string `json:"inviteCode"`
}

type manualTeamsRequest struct {
	TeamA []string `json:"teamA"`
	TeamB []string `json:"teamB"`
}

// player is a roster entry enriched with live presence.
type player struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SkillLevel int    `json:"skillLevel"`
	IsOnline   bool   `json:"isOnline"`
}

type gameResponse struct {
	ID               string           `json:"id"`
	Sport            string           `json:"sport"`
	Location         string           `json:"location"`
	Description      string           `json:"description"`
	DateTime         time.Time        `json:"dateTime"`
	MaxPlayers       int              `json:"maxPlayers"`
	CurrentPlayers   int              `json:"currentPlayers"`
	SkillRequirement int              `json:"skillRequirement"`
	CommunityCode    string           `json:"communityCode,omitempty"`
	CreatedBy        string           `json:"createdBy"`
	Participants     []player         `json:"participants"`
	Teams            teams.Assignment `json:"teams"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

type createCommunityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InviteCode  string `json:"inviteCode"`
}

type joinCommunityRequest struct {
	InviteCode string `json:"inviteCode"`
}

type communityResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	InviteCode  string    `json:"inviteCode,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	Members     []player  `json:"members"`
	MemberCount int       `json:"memberCount"`
	Joined      bool      `json:"joined"`
	CreatedAt   time.Time `json:"createdAt"`
}

package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup/internal/match"
	"github.com/mauv0809/pickup/internal/roster"
	"github.com/mauv0809/pickup/internal/teams"
	"github.com/mauv0809/pickup/internal/user"
)

// gameBadRequests are the errors a client can fix by changing the request.
var gameBadRequests = []error{
	roster.ErrMissingFields,
	roster.ErrMaxPlayers,
	roster.ErrMaxBelowRoster,
	roster.ErrSkillRange,
	roster.ErrInviteRequired,
	roster.ErrInviteMismatch,
	roster.ErrNotFull,
	roster.ErrInvalidAssignment,
	match.ErrFull,
	teams.ErrIncomplete,
	teams.ErrDuplicate,
	teams.ErrUnknownPlayer,
	teams.ErrUnbalanced,
}

// writeGameError maps roster and store errors to a response. forbidden is the text shown to non-creators.
func writeGameError(w http.ResponseWriter, err error, forbidden, fallback string) {
	switch {
	case errors.Is(err, match.ErrNotFound):
		writeError(w, http.StatusNotFound, "Game not found")
		return
	case errors.Is(err, roster.ErrNotCreator):
		writeError(w, http.StatusForbidden, forbidden)
		return
	case errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, "Creator account not found")
		return
	}
	for _, target := range gameBadRequests {
		if errors.Is(err, target) {
			writeError(w, http.StatusBadRequest, target.Error())
			return
		}
	}
	log.Error(fallback, "error", err)
	writeError(w, http.StatusInternalServerError, fallback)
}

func parseDateTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("dateTime must be a valid date")
}

func (s *Server) CreateGameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createGameRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		m := match.Match{
			Sport:            req.Sport,
			Location:         req.Location,
			Description:      req.Description,
			MaxPlayers:       req.MaxPlayers,
			SkillRequirement: req.SkillRequirement,
			CommunityCode:    strings.ToUpper(strings.TrimSpace(req.CommunityCode)),
			CreatedBy:        userIDFromContext(r),
		}
		if strings.TrimSpace(req.DateTime) != "" {
			start, err := parseDateTime(req.DateTime)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			m.StartTime = start
		}

		created, err := s.Roster.Create(r.Context(), m, isDryRunFromContext(r))
		if err != nil {
			writeGameError(w, err, "", "Unable to create game")
			return
		}
		s.writeGame(w, r, http.StatusCreated, created)
	}
}

func (s *Server) ListGamesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := match.Filter{
			Sport:        strings.TrimSpace(q.Get("sport")),
			Location:     strings.TrimSpace(q.Get("location")),
			UpcomingOnly: !strings.EqualFold(q.Get("upcoming"), "false"),
			Now:          time.Now(),
		}
		if raw := strings.TrimSpace(q.Get("skill")); raw != "" {
			if skill, err := strconv.Atoi(raw); err == nil {
				filter.MaxSkill = skill
			}
		}

		games, err := s.Matches.List(r.Context(), filter)
		if err != nil {
			log.Error("Failed to list games", "error", err)
			writeError(w, http.StatusInternalServerError, "Unable to fetch games")
			return
		}
		views, err := s.gameViews(r.Context(), userIDFromContext(r), games)
		if err != nil {
			log.Error("Failed to load game players", "error", err)
			writeError(w, http.StatusInternalServerError, "Unable to fetch games")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"games": views})
	}
}

func (s *Server) GetGameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.Matches.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeGameError(w, err, "", "Unable to fetch game")
			return
		}
		s.writeGame(w, r, http.StatusOK, m)
	}
}

func (s *Server) UpdateGameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateGameRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		changes := roster.Changes{
			Sport:            req.Sport,
			Location:         req.Location,
			Description:      req.Description,
			MaxPlayers:       req.MaxPlayers,
			SkillRequirement: req.SkillRequirement,
		}
		if req.DateTime != nil {
			start, err := parseDateTime(*req.DateTime)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			changes.StartTime = &start
		}

		updated, err := s.Roster.Update(r.Context(), r.PathValue("id"), userIDFromContext(r), changes)
		if err != nil {
			writeGameError(w, err, "Only the game creator can update this game", "Unable to update game")
			return
		}
		s.writeGame(w, r, http.StatusOK, updated)
	}
}

func (s *Server) DeleteGameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.Roster.Delete(r.Context(), r.PathValue("id"), userIDFromContext(r))
		if err != nil {
			writeGameError(w, err, "Only the game creator can delete this game", "Unable to delete game")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Game deleted successfully"})
	}
}

func (s *Server) JoinGameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinGameRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		m, result, err := s.Roster.Join(r.Context(), r.PathValue("id"), userIDFromContext(r), req.InviteCode, isDryRunFromContext(r))
		if err != nil {
			writeGameError(w, err, "", "Unable to join game")
			return
		}
		view, err := s.gameView(r.Context(), userIDFromContext(r), m)
		if err != nil {
			log.Error("Failed to load game players", "error", err, "match_id", m.ID)
			writeError(w, http.StatusInternalServerError, "Unable to join game")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"game": view, "message": result.Message()})
	}
}

func (s *Server) ManualTeamsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req manualTeamsRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, roster.ErrInvalidAssignment.Error())
			return
		}
		m, err := s.Roster.AssignTeams(r.Context(), r.PathValue("id"), userIDFromContext(r), req.TeamA, req.TeamB, isDryRunFromContext(r))
		if err != nil {
			writeGameError(w, err, "Only the game creator can assign teams", "Unable to assign teams")
			return
		}
		s.writeGame(w, r, http.StatusOK, m)
	}
}

func (s *Server) GamePlayersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := s.Roster.Players(r.Context(), r.PathValue("id"), userIDFromContext(r))
		if err != nil {
			writeGameError(w, err, "Only the game creator can view joined players", "Unable to fetch joined players")
			return
		}
		for i := range users {
			users[i].IsOnline = s.isOnline(users[i].ID)
		}
		writeJSON(w, http.StatusOK, map[string]any{"players": users})
	}
}

func (s *Server) GameMessagesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := r.PathValue("id")
		ok, err := s.Matches.IsParticipant(r.Context(), matchID, userIDFromContext(r))
		if err != nil {
			writeGameError(w, err, "", "Unable to fetch messages")
			return
		}
		if !ok {
			writeError(w, http.StatusForbidden, "Join this game to view chat")
			return
		}
		messages, err := s.Chats.ListByMatch(r.Context(), matchID)
		if err != nil {
			log.Error("Failed to list game messages", "error", err, "match_id", matchID)
			writeError(w, http.StatusInternalServerError, "Unable to fetch messages")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
	}
}

func (s *Server) writeGame(w http.ResponseWriter, r *http.Request, status int, m *match.Match) {
	view, err := s.gameView(r.Context(), userIDFromContext(r), m)
	if err != nil {
		log.Error("Failed to load game players", "error", err, "match_id", m.ID)
		writeError(w, http.StatusInternalServerError, "Unable to fetch game")
		return
	}
	writeJSON(w, status, map[string]any{"game": view})
}

func (s *Server) gameView(ctx context.Context, viewerID string, m *match.Match) (gameResponse, error) {
	views, err := s.gameViews(ctx, viewerID, []match.Match{*m})
	if err != nil {
		return gameResponse{}, err
	}
	return views[0], nil
}

// gameViews loads every participant once and attaches them to their games.
// The community code is only shown to the game's creator.
func (s *Server) gameViews(ctx context.Context, viewerID string, games []match.Match) ([]gameResponse, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, g := range games {
		for _, id := range g.Participants {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	everyone, err := s.players(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]player, len(everyone))
	for _, p := range everyone {
		byID[p.ID] = p
	}

	views := make([]gameResponse, len(games))
	for i, g := range games {
		participants := make([]player, 0, len(g.Participants))
		for _, id := range g.Participants {
			if p, ok := byID[id]; ok {
				participants = append(participants, p)
			}
		}
		views[i] = gameResponse{
			ID:               g.ID,
			Sport:            g.Sport,
			Location:         g.Location,
			Description:      g.Description,
			DateTime:         g.StartTime,
			MaxPlayers:       g.MaxPlayers,
			CurrentPlayers:   len(g.Participants),
			SkillRequirement: g.SkillRequirement,
			CreatedBy:        g.CreatedBy,
			Participants:     participants,
			Teams:            g.Teams,
			CreatedAt:        g.CreatedAt,
			UpdatedAt:        g.UpdatedAt,
		}
		if viewerID != "" && viewerID == g.CreatedBy {
			views[i].CommunityCode = g.CommunityCode
		}
	}
	return views, nil
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup/internal/auth"
	"github.com/mauv0809/pickup/internal/user"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)
		if req.Name == "" || req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "name, email, and password are required")
			return
		}
		skill := user.DefaultSkillLevel
		if req.SkillLevel != nil {
			skill = *req.SkillLevel
		}
		if skill < 1 || skill > 5 {
			writeError(w, http.StatusBadRequest, "skillLevel must be between 1 and 5")
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			log.Error("Failed to hash password", "error", err)
			writeError(w, http.StatusInternalServerError, "Registration failed")
			return
		}
		u, err := s.Users.Create(r.Context(), req.Name, req.Email, hash, skill)
		if errors.Is(err, user.ErrEmailExists) {
			writeError(w, http.StatusConflict, "An account with this email already exists")
			return
		}
		if err != nil {
			log.Error("Failed to register user", "error", err)
			writeError(w, http.StatusInternalServerError, "Registration failed")
			return
		}
		s.respondWithToken(w, http.StatusCreated, u)
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}
		u, err := s.Users.GetByEmail(r.Context(), req.Email)
		if err != nil && !errors.Is(err, user.ErrNotFound) {
			log.Error("Failed to look up user", "error", err)
			writeError(w, http.StatusInternalServerError, "Login failed")
			return
		}
		if u == nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		s.respondWithToken(w, http.StatusOK, u)
	}
}

func (s *Server) respondWithToken(w http.ResponseWriter, status int, u *user.User) {
	token, err := s.Issuer.Issue(u.ID)
	if err != nil {
		log.Error("Failed to issue token", "error", err, "user_id", u.ID)
		writeError(w, http.StatusInternalServerError, "Unable to issue token")
		return
	}
	u.IsOnline = s.isOnline(u.ID)
	writeJSON(w, status, authResponse{Token: token, User: u})
}

func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeUser(w, r, userIDFromContext(r))
	}
}

func (s *Server) GetUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeUser(w, r, r.PathValue("id"))
	}
}

func (s *Server) writeUser(w http.ResponseWriter, r *http.Request, id string) {
	u, err := s.Users.Get(r.Context(), id)
	if errors.Is(err, user.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Error("Failed to fetch user", "error", err, "user_id", id)
		writeError(w, http.StatusInternalServerError, "Unable to fetch user")
		return
	}
	u.IsOnline = s.isOnline(u.ID)
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (s *Server) OnlineUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"userIds": s.onlineUserIDs()})
	}
}

// isOnline reads live presence. The persisted flag on a user row can lag behind it.
func (s *Server) isOnline(userID string) bool {
	return s.Coordinator != nil && s.Coordinator.IsOnline(userID)
}

func (s *Server) onlineUserIDs() []string {
	if s.Coordinator == nil {
		return []string{}
	}
	return s.Coordinator.Online()
}

// players loads the users behind ids, in the order of ids, with their live presence.
func (s *Server) players(ctx context.Context, ids []string) ([]player, error) {
	users, err := s.Users.List(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]user.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]player, 0, len(ids))
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, player{ID: u.ID, Name: u.Name, SkillLevel: u.SkillLevel, IsOnline: s.isOnline(u.ID)})
	}
	return out, nil
}

// decodeBody reads a JSON request body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

package http

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup/internal/community"
)

func (s *Server) CreateCommunityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCommunityRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "Community name is required")
			return
		}

		created, err := s.Communities.Create(r.Context(), community.Community{
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			InviteCode:  req.InviteCode,
			CreatedBy:   userIDFromContext(r),
		})
		switch {
		case errors.Is(err, community.ErrInvalidInviteCode):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, community.ErrInviteCodeTaken):
			writeError(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			log.Error("Failed to create community", "error", err)
			writeError(w, http.StatusInternalServerError, "Unable to create community")
			return
		}
		s.writeCommunity(w, r, http.StatusCreated, created, nil)
	}
}

func (s *Server) ListCommunitiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communities, err := s.Communities.List(r.Context(), r.URL.Query().Get("search"))
		if err != nil {
			log.Error("Failed to list communities", "error", err)
			writeError(w, http.StatusInternalServerError, "Unable to fetch communities")
			return
		}
		viewerID := userIDFromContext(r)
		views := make([]communityResponse, 0, len(communities))
		for i := range communities {
			view, err := s.communityView(r.Context(), viewerID, &communities[i])
			if err != nil {
				log.Error("Failed to load community members", "error", err, "community_id", communities[i].ID)
				writeError(w, http.StatusInternalServerError, "Unable to fetch communities")
				return
			}
			views = append(views, view)
		}
		writeJSON(w, http.StatusOK, map[string]any{"communities": views})
	}
}

func (s *Server) JoinCommunityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinCommunityRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if strings.TrimSpace(req.InviteCode) == "" {
			writeError(w, http.StatusBadRequest, "inviteCode is required")
			return
		}

		c, err := s.Communities.GetByInviteCode(r.Context(), req.InviteCode)
		if errors.Is(err, community.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Community not found for this invite code")
			return
		}
		if err != nil {
			log.Error("Failed to look up invite code", "error", err)
			writeError(w, http.StatusInternalServerError, "Unable to join community by code")
			return
		}
		userID := userIDFromContext(r)
		already, err := s.Communities.AddMember(r.Context(), c.ID, userID)
		if err != nil {
			log.Error("Failed to join community", "error", err, "community_id", c.ID)
			writeError(w, http.StatusInternalServerError, "Unable to join community by code")
			return
		}
		if !already {
			c.Members = append(c.Members, userID)
		}

		view, err := s.communityView(r.Context(), userID, c)
		if err != nil {
			log.Error("Failed to load community members", "error", err, "community_id", c.ID)
			writeError(w, http.StatusInternalServerError, "Unable to join community by code")
			return
		}
		message := "Joined successfully"
		if already {
			message = "Already a member"
		}
		writeJSON(w, http.StatusOK, map[string]any{"community": view, "message": message})
	}
}

func (s *Server) GetCommunityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.Communities.Get(r.Context(), r.PathValue("id"))
		if errors.Is(err, community.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Community not found")
			return
		}
		if err != nil {
			log.Error("Failed to fetch community", "error", err)
			writeError(w, http.StatusInternalServerError, "Unable to fetch community")
			return
		}
		extra := map[string]any{"onlineUserIds": s.onlineUserIDs()}
		// Chat history follows the realtime rule: members only.
		if slices.Contains(c.Members, userIDFromContext(r)) {
			messages, err := s.Chats.ListByCommunity(r.Context(), c.ID, communityMessageLimit)
			if err != nil {
				log.Error("Failed to list community messages", "error", err, "community_id", c.ID)
				writeError(w, http.StatusInternalServerError, "Unable to fetch community")
				return
			}
			extra["messages"] = messages
		}
		s.writeCommunity(w, r, http.StatusOK, c, extra)
	}
}

// writeCommunity responds with the community view merged with extra top-level fields.
func (s *Server) writeCommunity(w http.ResponseWriter, r *http.Request, status int, c *community.Community, extra map[string]any) {
	view, err := s.communityView(r.Context(), userIDFromContext(r), c)
	if err != nil {
		log.Error("Failed to load community members", "error", err, "community_id", c.ID)
		writeError(w, http.StatusInternalServerError, "Unable to fetch community")
		return
	}
	body := map[string]any{"community": view}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// communityView resolves members with presence. The invite code is only shown to the creator.
func (s *Server) communityView(ctx context.Context, viewerID string, c *community.Community) (communityResponse, error) {
	members, err := s.players(ctx, c.Members)
	if err != nil {
		return communityResponse{}, err
	}
	view := communityResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedBy:   c.CreatedBy,
		Members:     members,
		MemberCount: len(members),
		Joined:      slices.Contains(c.Members, viewerID),
		CreatedAt:   c.CreatedAt,
	}
	if viewerID != "" && viewerID == c.CreatedBy {
		view.InviteCode = c.InviteCode
	}
	return view, nil
}

package http

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup/internal/notifier"
	"github.com/mauv0809/pickup/internal/pubsub"
)

// TeamsFormedPushHandler receives teams-formed events from a Pub/Sub push subscription and posts the announcement.
func (s *Server) TeamsFormedPushHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var announcement notifier.TeamsAnnouncement
		if !s.readPushMessage(w, r, &announcement) {
			return
		}
		if err := s.Roster.Announce(r.Context(), announcement, isDryRunFromContext(r)); err != nil {
			log.Error("Failed to announce teams", "error", err, "match_id", announcement.MatchID)
			http.Error(w, "Failed to announce teams", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}

// GameCreatedPushHandler receives game-created events from a Pub/Sub push subscription and posts the announcement.
func (s *Server) GameCreatedPushHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var announcement notifier.GameAnnouncement
		if !s.readPushMessage(w, r, &announcement) {
			return
		}
		if err := s.Roster.AnnounceGame(r.Context(), announcement, isDryRunFromContext(r)); err != nil {
			log.Error("Failed to announce game", "error", err, "match_id", announcement.MatchID)
			http.Error(w, "Failed to announce game", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}

// readPushMessage unwraps a push envelope into v. It writes the error response and returns false on failure.
func (s *Server) readPushMessage(w http.ResponseWriter, r *http.Request, v any) bool {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("Failed to read request body", "error", err)
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return false
	}
	log.Debug("Received push message", "path", r.URL.Path, "body", string(bodyBytes))

	var envelope pubsub.PushEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		log.Error("Failed to unmarshal wrapper JSON", "error", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	rawData, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		log.Error("Failed to decode base64 data", "error", err)
		http.Error(w, "Invalid base64 data", http.StatusBadRequest)
		return false
	}

	decode := pubsub.Decode
	if s.pubsub != nil {
		decode = s.pubsub.ProcessMessage
	}
	if err := decode(rawData, v); err != nil {
		log.Error("Failed to decode push message", "error", err, "message_id", envelope.Message.ID)
		http.Error(w, "Invalid message payload", http.StatusBadRequest)
		return false
	}
	return true
}

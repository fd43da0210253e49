package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mauv0809/pickup/internal/auth"
	"github.com/mauv0809/pickup/internal/user"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendQueueSize  = 64
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserLookup loads the profile behind a verified token.
type UserLookup interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

// HandlerConfig controls how connections are admitted.
type HandlerConfig struct {
	// AllowAnonymous admits connections without valid credentials as guests.
	AllowAnonymous bool
	// AllowedOrigin is matched against the Origin header. "*" or empty allows any origin.
	AllowedOrigin string
}

// Handler upgrades HTTP requests to websocket connections served by a Coordinator.
type Handler struct {
	coord    *Coordinator
	verifier TokenVerifier
	users    UserLookup
	cfg      HandlerConfig
	upgrader websocket.Upgrader
}

// NewHandler creates the websocket endpoint.
func NewHandler(coord *Coordinator, verifier TokenVerifier, users UserLookup, cfg HandlerConfig) *Handler {
	h := &Handler{
		coord:    coord,
		verifier: verifier,
		users:    users,
		cfg:      cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.cfg.AllowedOrigin == "" || h.cfg.AllowedOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == h.cfg.AllowedOrigin
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authenticate(r)
	if err != nil {
		if !h.cfg.AllowAnonymous {
			log.Warn("Rejected realtime connection", "error", err, "remote", r.RemoteAddr)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		log.Warn("Admitting realtime connection as guest", "error", err, "remote", r.RemoteAddr)
		identity = Identity{Name: "Guest", Anonymous: true}
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("WebSocket upgrade failed", "error", err)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	c := &client{
		id:       uuid.New().String(),
		identity: identity,
		ws:       ws,
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
	}
	h.coord.Connect(ctx, c)

	go c.writePump()
	go c.readPump(ctx, h.coord)
}

func (h *Handler) authenticate(r *http.Request) (Identity, error) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		return Identity{}, auth.ErrInvalidToken
	}
	userID, err := h.verifier.Verify(token)
	if err != nil {
		return Identity{}, err
	}
	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: u.ID, Name: u.Name}, nil
}

// client is a websocket backed Conn with a buffered outbound queue drained by writePump.
type client struct {
	id       string
	identity Identity
	ws       *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
}

var _ Conn = (*client)(nil)

func (c *client) ID() string         { return c.id }
func (c *client) Identity() Identity { return c.identity }

func (c *client) Send(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *client) readPump(ctx context.Context, coord *Coordinator) {
	defer func() {
		coord.Disconnect(ctx, c)
		c.close()
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("WebSocket read error", "error", err, "conn_id", c.id)
			}
			return
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			coord.Handle(ctx, c, Event{Type: "malformed"})
			continue
		}
		coord.Handle(ctx, c, ev)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

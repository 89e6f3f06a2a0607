package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// IncidentMessage is pushed to every session of the monitor's owner when an
// incident opens or resolves.
type IncidentMessage struct {
	Type        string    `json:"type"`
	Event       string    `json:"event"`
	MonitorID   string    `json:"monitor_id"`
	MonitorName string    `json:"monitor_name"`
	IncidentID  string    `json:"incident_id"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

// session serialises writes; gorilla connections allow one concurrent writer.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) writeJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

// Hub tracks websocket sessions per user.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*session]bool
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
}

func NewHub(allowedOrigins []string, logger *zap.SugaredLogger) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &Hub{
		clients: make(map[string]map[*session]bool),
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser clients send no origin
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Sessions returns the number of open sessions for userID.
func (h *Hub) Sessions(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) add(userID string, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*session]bool)
	}
	h.clients[userID][s] = true
}

func (h *Hub) remove(userID string, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[userID]; ok {
		delete(clients, s)
		if len(clients) == 0 {
			delete(h.clients, userID)
		}
	}
}

// BroadcastIncident writes msg to all of the user's sessions. Sessions that
// fail the write are dropped.
func (h *Hub) BroadcastIncident(userID string, msg IncidentMessage) {
	msg.Type = "incident"

	h.mu.RLock()
	sessions := make([]*session, 0, len(h.clients[userID]))
	for s := range h.clients[userID] {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		if err := s.writeJSON(msg); err != nil {
			h.logger.Debugw("Dropping websocket session", "user_id", userID, "error", err)
			h.remove(userID, s)
			_ = s.conn.Close()
		}
	}
}

// Serve upgrades the request and blocks until the session ends.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("WebSocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	s := &session{conn: conn}

	err = s.writeJSON(map[string]string{
		"type":    "connected",
		"message": "WebSocket connection established",
	})
	if err != nil {
		_ = conn.Close()
		return
	}

	h.add(userID, s)

	done := make(chan struct{})
	defer func() {
		close(done)
		h.remove(userID, s)
		_ = conn.Close()
		h.logger.Debugw("WebSocket connection closed", "user_id", userID)
	}()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warnw("WebSocket error", "user_id", userID, "error", err)
			}
			return
		}
	}
}

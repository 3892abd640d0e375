// Package websocket streams order lifecycle transitions to connected admin
// dashboards. Broadcast is non-blocking; dashboards that cannot keep up
// are dropped.
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Dashboard origin is enforced by the reverse proxy in production.
		return true
	},
}

type Update struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
	Source    string      `json:"source"`
}

type session struct {
	conn   *websocket.Conn
	send   chan Update
	hub    *Hub
	logger *logrus.Logger
}

type Hub struct {
	sessions   map[*session]bool
	broadcast  chan Update
	register   chan *session
	unregister chan *session
	mutex      sync.RWMutex
	logger     *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		sessions:   make(map[*session]bool),
		broadcast:  make(chan Update, 256),
		register:   make(chan *session),
		unregister: make(chan *session),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case s := <-h.register:
			h.mutex.Lock()
			h.sessions[s] = true
			h.mutex.Unlock()
			h.logger.WithField("session_count", h.SessionCount()).Info("Dashboard connected")

		case s := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				close(s.send)
			}
			h.mutex.Unlock()
			h.logger.WithField("session_count", h.SessionCount()).Info("Dashboard disconnected")

		case update := <-h.broadcast:
			h.mutex.Lock()
			for s := range h.sessions {
				select {
				case s.send <- update:
				default:
					delete(h.sessions, s)
					close(s.send)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Broadcast queues an update for every connected dashboard. When the queue
// is full the update is dropped rather than blocking the caller.
func (h *Hub) Broadcast(messageType string, data interface{}, source string) {
	update := Update{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
		Source:    source,
	}

	select {
	case h.broadcast <- update:
	default:
		h.logger.Warn("Broadcast channel full, dropping update")
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade to WebSocket")
		return
	}

	s := &session{
		conn:   conn,
		send:   make(chan Update, 64),
		hub:    h,
		logger: h.logger,
	}

	h.register <- s

	go s.writePump()
	go s.readPump()
}

func (h *Hub) SessionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.sessions)
}

func (s *session) readPump() {
	defer func() {
		s.hub.unregister <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Dashboards only listen; inbound frames are drained for pong/close
	// handling.
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.WithError(err).Error("WebSocket error")
			}
			break
		}
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case update, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(update)
			if err != nil {
				s.logger.WithError(err).Error("Failed to marshal WebSocket update")
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

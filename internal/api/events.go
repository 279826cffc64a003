package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/daywise/internal/models"
)

const (
	eventGeneration = "generation"
	eventRoadmaps   = "roadmaps"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventMessage is one push on the event stream
type EventMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// handleEvents streams generation state and the roadmap list. Each
// subscriber first receives the latest value of both, then every change.
// Intermediate values may be skipped for slow readers.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	generation, cancelGeneration := s.store.Generation().Subscribe()
	defer cancelGeneration()
	roadmaps, cancelRoadmaps := s.store.Roadmaps().Subscribe()
	defer cancelRoadmaps()

	slog.Info("event stream connected", "remote_addr", r.RemoteAddr)

	// The client never sends anything meaningful; reading keeps pongs and
	// close frames flowing and tells us when it is gone.
	gone := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			slog.Info("event stream disconnected", "remote_addr", r.RemoteAddr)
			return
		case state, ok := <-generation:
			if !ok {
				s.closeEvents(conn)
				return
			}
			if err := sendEvent(conn, eventGeneration, newGenerationView(state)); err != nil {
				return
			}
		case list, ok := <-roadmaps:
			if !ok {
				s.closeEvents(conn)
				return
			}
			if err := sendEvent(conn, eventRoadmaps, roadmapListEvent(list)); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

func roadmapListEvent(list []*models.Roadmap) map[string]interface{} {
	return map[string]interface{}{
		"roadmaps": newRoadmapViews(list),
		"total":    len(list),
	}
}

func sendEvent(conn *websocket.Conn, eventType string, data interface{}) error {
	payload, err := json.Marshal(EventMessage{Type: eventType, Data: data})
	if err != nil {
		slog.Error("failed to marshal event", "type", eventType, "error", err)
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		slog.Debug("failed to send event", "type", eventType, "error", err)
		return err
	}
	return nil
}

// closeEvents tells the client the stream ended because the store shut down
func (s *Server) closeEvents(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

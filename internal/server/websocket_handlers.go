package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/ledmap/internal/mapping"
)

const (
	wsPongWait     = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteWait    = 10 * time.Second
	wsSendBuffer   = 64
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketMessage is one progress stream message.
//
// Types: snapshot (on connect), start, light, complete, error.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// LightUpdate reports the outcome of one activation.
type LightUpdate struct {
	Index    int                     `json:"index"`
	Total    int                     `json:"total"`
	Detected bool                    `json:"detected"`
	Position *mapping.MappedPosition `json:"position,omitempty"`
}

type wsClient struct {
	send chan []byte
}

// hub fans progress messages out to every connected client. Slow clients
// lose messages instead of stalling the session.
type hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	logger  *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	return &hub{clients: make(map[*wsClient]struct{}), logger: logger}
}

func (h *hub) subscribe() *wsClient {
	c := &wsClient{send: make(chan []byte, wsSendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *hub) unsubscribe(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// send queues data for c unless c was already unsubscribed or its buffer is
// full.
func (h *hub) send(c *wsClient, data []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		websocketMessagesTotal.WithLabelValues("dropped").Inc()
		return false
	}
}

func (h *hub) broadcast(msg WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			websocketMessagesTotal.WithLabelValues("dropped").Inc()
		}
	}
}

// hubProgress forwards session progress to the hub.
type hubProgress struct {
	hub       *hub
	sessionID string
}

func (p *hubProgress) OnStart(total int) {
	p.hub.broadcast(WebSocketMessage{Type: "start", SessionID: p.sessionID, Payload: map[string]int{"total": total}})
}

func (p *hubProgress) OnLight(index, total int, pos *mapping.MappedPosition) {
	p.hub.broadcast(WebSocketMessage{Type: "light", SessionID: p.sessionID, Payload: LightUpdate{
		Index:    index,
		Total:    total,
		Detected: pos != nil,
		Position: pos,
	}})
}

func (p *hubProgress) OnComplete(result *mapping.Result) {
	p.hub.broadcast(WebSocketMessage{Type: "complete", SessionID: p.sessionID, Payload: result})
}

func (p *hubProgress) OnError(err error) {
	p.hub.broadcast(WebSocketMessage{Type: "error", SessionID: p.sessionID, Payload: map[string]string{"error": err.Error()}})
}

// progressWebSocketHandler streams session progress to the client.
func (s *Server) progressWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	client := s.hub.subscribe()
	defer s.hub.unsubscribe(client)

	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess != nil {
		snap := sess.Snapshot()
		if data, err := json.Marshal(WebSocketMessage{Type: "snapshot", SessionID: snap.ID, Payload: snap}); err == nil {
			s.hub.send(client, data)
		}
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writePump(conn, client)
	}()

	readPump(conn)
	s.hub.unsubscribe(client)
	<-writerDone
}

// readPump drains client frames so control messages are processed, and
// returns when the connection closes.
func readPump(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("WebSocket closed", "error", err)
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, client *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	// Closing the connection unblocks readPump.
	defer func() { _ = conn.Close() }()
	for {
		select {
		case data, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			websocketMessagesTotal.WithLabelValues("sent").Inc()
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

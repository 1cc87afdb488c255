package sequencer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wireConfig is the JSON form of Config sent to websocket controllers.
type wireConfig struct {
	LEDCount     int    `json:"led_count"`
	DelayMS      int64  `json:"delay_ms"`
	Protocol     string `json:"protocol"`
	StartAddress int    `json:"start_address"`
	Brightness   int    `json:"brightness"`
}

// controlMessage is sent from host to controller.
type controlMessage struct {
	Type   string      `json:"type"`
	Config *wireConfig `json:"config,omitempty"`
}

// WebSocketSequencer drives a network controller that speaks JSON over a
// websocket: {"type":"start","config":{...}} and {"type":"stop"} out, Event
// objects in.
type WebSocketSequencer struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// NewWebSocketSequencer creates a sequencer for the controller at url
// (ws:// or wss://).
func NewWebSocketSequencer(url string, header http.Header, logger *slog.Logger) *WebSocketSequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketSequencer{
		url:    url,
		header: header,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger,
	}
}

func (s *WebSocketSequencer) Start(ctx context.Context, cfg Config) (<-chan Event, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil, ErrAlreadyStarted
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, &SequenceError{Message: "dial " + s.url, Err: err}
	}

	start := controlMessage{Type: "start", Config: &wireConfig{
		LEDCount:     cfg.LEDCount,
		DelayMS:      cfg.PerLightDelay.Milliseconds(),
		Protocol:     cfg.Protocol,
		StartAddress: cfg.StartAddress,
		Brightness:   cfg.Brightness,
	}}
	if err := conn.WriteJSON(start); err != nil {
		_ = conn.Close()
		return nil, &SequenceError{Message: "send start", Err: err}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.conn = conn
	s.cancel = cancel
	s.done = make(chan struct{})
	events := make(chan Event, cfg.LEDCount+2)

	s.logger.Info("websocket sequence started", "url", s.url, "leds", cfg.LEDCount)
	go s.read(runCtx, conn, events)
	return events, nil
}

func (s *WebSocketSequencer) read(ctx context.Context, conn *websocket.Conn, events chan<- Event) {
	defer close(s.done)
	defer close(events)

	emit := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				emit(Failure("controller closed the connection"))
				return
			}
			var ce *websocket.CloseError
			if !errors.As(err, &ce) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			emit(Failure(err.Error()))
			return
		}
		switch ev.Type {
		case EventLEDActive, EventSequenceComplete, EventError:
		default:
			s.logger.Warn("ignoring controller message", "type", string(ev.Type))
			continue
		}
		if !emit(ev) || ev.Type != EventLEDActive {
			return
		}
	}
}

// Stop sends a stop message, closes the connection and waits for the reader.
func (s *WebSocketSequencer) Stop() error {
	s.mu.Lock()
	if s.conn == nil || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	conn, cancel, done := s.conn, s.cancel, s.done
	s.mu.Unlock()

	cancel()
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = conn.WriteJSON(controlMessage{Type: "stop"})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "sequence stopped"))
	err := conn.Close()
	<-done
	s.logger.Info("websocket sequence stopped", "url", s.url)
	if err != nil {
		return &SequenceError{Message: "close connection", Err: err}
	}
	return nil
}

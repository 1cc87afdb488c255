package sequencer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// controllerServer replies to a start message with replies and forwards
// every message it receives to got.
func controllerServer(t *testing.T, replies []Event, got chan<- controlMessage) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		for {
			var msg controlMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			got <- msg
			if msg.Type == "start" {
				for _, ev := range replies {
					if err := conn.WriteJSON(ev); err != nil {
						return
					}
				}
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketSequencer_FullRun(t *testing.T) {
	got := make(chan controlMessage, 4)
	replies := []Event{LEDActive(0, 2), {Type: "heartbeat"}, LEDActive(1, 2), Complete()}
	srv := controllerServer(t, replies, got)
	defer srv.Close()

	seq := NewWebSocketSequencer(wsURL(srv), nil, nil)
	cfg := Config{LEDCount: 2, PerLightDelay: 500 * time.Millisecond, Protocol: "apa102", StartAddress: 3, Brightness: 200}
	events, err := seq.Start(context.Background(), cfg)
	require.NoError(t, err)

	evs := collect(t, events)
	assert.Equal(t, []Event{LEDActive(0, 2), LEDActive(1, 2), Complete()}, evs)

	start := <-got
	assert.Equal(t, "start", start.Type)
	require.NotNil(t, start.Config)
	assert.Equal(t, wireConfig{LEDCount: 2, DelayMS: 500, Protocol: "apa102", StartAddress: 3, Brightness: 200}, *start.Config)

	require.NoError(t, seq.Stop())
	select {
	case stop := <-got:
		assert.Equal(t, "stop", stop.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("controller never received stop")
	}
}

func TestWebSocketSequencer_ControllerError(t *testing.T) {
	got := make(chan controlMessage, 4)
	srv := controllerServer(t, []Event{Failure("bus fault")}, got)
	defer srv.Close()

	seq := NewWebSocketSequencer(wsURL(srv), nil, nil)
	events, err := seq.Start(context.Background(), Config{LEDCount: 5})
	require.NoError(t, err)
	defer func() { _ = seq.Stop() }()

	evs := collect(t, events)
	assert.Equal(t, []Event{Failure("bus fault")}, evs)
}

func TestWebSocketSequencer_DialFailure(t *testing.T) {
	seq := NewWebSocketSequencer("ws://127.0.0.1:1/none", nil, nil)
	_, err := seq.Start(context.Background(), Config{LEDCount: 1})
	var se *SequenceError
	assert.ErrorAs(t, err, &se)
	assert.NoError(t, seq.Stop())
}

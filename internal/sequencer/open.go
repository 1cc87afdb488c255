package sequencer

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MeKo-Tech/ledmap/internal/version"
)

// Transport kinds accepted by Open.
const (
	KindSim       = "sim"
	KindSerial    = "serial"
	KindWebSocket = "websocket"
)

// Options selects a hardware transport.
type Options struct {
	Kind   string
	Port   string
	Serial PortOptions
	URL    string
	// Lighter is switched by the simulated transport; may be nil.
	Lighter Lighter
}

// Open constructs the sequencer described by opts.
func Open(opts Options, logger *slog.Logger) (Sequencer, error) {
	switch opts.Kind {
	case KindSim, "":
		return NewSimSequencer(opts.Lighter), nil
	case KindSerial:
		if opts.Port == "" {
			return nil, errors.New("serial sequencer requires a port")
		}
		return NewSerialSequencer(opts.Port, opts.Serial, logger), nil
	case KindWebSocket:
		if opts.URL == "" {
			return nil, errors.New("websocket sequencer requires a url")
		}
		header := http.Header{}
		header.Set("User-Agent", version.UserAgent())
		return NewWebSocketSequencer(opts.URL, header, logger), nil
	default:
		return nil, fmt.Errorf("unknown sequencer %q", opts.Kind)
	}
}

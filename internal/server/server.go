package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/ledmap/internal/calibrate"
)

// NewServer creates a mapping API server.
func NewServer(config Config) (*Server, error) {
	if config.Hardware == nil {
		return nil, errors.New("server needs a hardware factory")
	}
	if config.CanvasWidth <= 0 || config.CanvasHeight <= 0 {
		return nil, errors.New("server needs a positive canvas size")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	minRect := config.MinRectSize
	if minRect <= 0 {
		minRect = 50
	}
	return &Server{
		corsOrigin:   config.CORSOrigin,
		minRectSize:  minRect,
		canvasWidth:  config.CanvasWidth,
		canvasHeight: config.CanvasHeight,
		cameraBounds: config.CameraBounds,
		template:     config.Session,
		hardware:     config.Hardware,
		logger:       logger,
		hub:          newHub(logger),
		calib:        calibrate.New(logger),
	}, nil
}

// Close cancels a running session and waits for it to finish, then
// disconnects all progress subscribers.
func (s *Server) Close() error {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess != nil {
		sess.Cancel()
		<-sess.Done()
	}
	s.hub.closeAll()
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/calibration", s.corsMiddleware(s.calibrationHandler))
	mux.HandleFunc("/session", s.corsMiddleware(s.sessionHandler))
	mux.HandleFunc("/session/result", s.corsMiddleware(s.resultHandler))
	mux.HandleFunc("/ws", s.progressWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

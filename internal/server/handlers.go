package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/ledmap/internal/calibrate"
	"github.com/MeKo-Tech/ledmap/internal/capture"
	"github.com/MeKo-Tech/ledmap/internal/mapping"
	"github.com/MeKo-Tech/ledmap/internal/sequencer"
	"github.com/MeKo-Tech/ledmap/internal/version"
)

const maxRequestBytes = 1 << 20

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) calibrationHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getCalibration(w)
	case http.MethodPost:
		s.postCalibration(w, r)
	case http.MethodDelete:
		s.deleteCalibration(w)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) getCalibration(w http.ResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.calibrationResponse()
	if !ok {
		s.writeErrorResponse(w, "no calibration confirmed", "not_found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) postCalibration(w http.ResponseWriter, r *http.Request) {
	var req CalibrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErrorResponse(w, err.Error(), "invalid_request", http.StatusBadRequest)
		return
	}
	rect := req.image().Canon()
	if rect.Dx() < s.minRectSize || rect.Dy() < s.minRectSize {
		s.writeErrorResponse(w,
			fmt.Sprintf("calibration rectangle %dx%d is smaller than %dx%d", rect.Dx(), rect.Dy(), s.minRectSize, s.minRectSize),
			"invalid_rectangle", http.StatusUnprocessableEntity)
		return
	}
	if !s.cameraBounds.Empty() && !rect.In(s.cameraBounds) {
		s.writeErrorResponse(w,
			fmt.Sprintf("calibration rectangle %v exceeds camera frame %v", rect, s.cameraBounds),
			"invalid_rectangle", http.StatusUnprocessableEntity)
		return
	}
	cw, ch := req.CanvasWidth, req.CanvasHeight
	if cw <= 0 {
		cw = s.canvasWidth
	}
	if ch <= 0 {
		ch = s.canvasHeight
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runningLocked() {
		s.writeErrorResponse(w, "calibration is locked while a session runs", "session_running", http.StatusConflict)
		return
	}
	if _, err := s.calib.FromRectangle(rect, cw, ch); err != nil {
		s.writeError(w, err)
		return
	}
	s.canvasWidth, s.canvasHeight = cw, ch
	calibrationsTotal.Inc()
	resp, _ := s.calibrationResponse()
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) deleteCalibration(w http.ResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runningLocked() {
		s.writeErrorResponse(w, "calibration is locked while a session runs", "session_running", http.StatusConflict)
		return
	}
	s.calib.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// calibrationResponse requires s.mu.
func (s *Server) calibrationResponse() (CalibrationResponse, bool) {
	t, ok := s.calib.Transform()
	if !ok {
		return CalibrationResponse{}, false
	}
	return CalibrationResponse{
		Rect:            rectOf(s.calib.Rectangle()),
		CanvasWidth:     s.canvasWidth,
		CanvasHeight:    s.canvasHeight,
		Transform:       t,
		Verification:    s.calib.Verification(),
		Correspondences: s.calib.Correspondences(),
	}, true
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		sess := s.session
		s.mu.Unlock()
		if sess == nil {
			s.writeErrorResponse(w, "no session", "not_found", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, sess.Snapshot())
	case http.MethodPost:
		s.startSession(w, r)
	case http.MethodDelete:
		s.mu.Lock()
		sess := s.session
		running := s.runningLocked()
		s.mu.Unlock()
		if !running {
			s.writeErrorResponse(w, "no running session", "not_found", http.StatusNotFound)
			return
		}
		sess.Cancel()
		<-sess.Done()
		s.writeJSON(w, http.StatusOK, sess.Snapshot())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErrorResponse(w, err.Error(), "invalid_request", http.StatusBadRequest)
		return
	}
	cfg := s.sessionConfig(req)
	if err := cfg.Validate(); err != nil {
		s.writeErrorResponse(w, err.Error(), "invalid_request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runningLocked() {
		s.writeErrorResponse(w, "a session is already running", "session_running", http.StatusConflict)
		return
	}
	if _, ok := s.calib.Transform(); !ok {
		s.writeError(w, &calibrate.TransformNotReadyError{Correspondences: len(s.calib.Correspondences())})
		return
	}

	src, seq, err := s.hardware(cfg.LEDCount, s.calib.Rectangle())
	if err != nil {
		s.writeError(w, err)
		return
	}
	id := uuid.NewString()
	sess, err := mapping.NewSession(cfg, s.calib, src, seq,
		mapping.WithID(id),
		mapping.WithLogger(s.logger),
		mapping.WithProgress(&hubProgress{hub: s.hub, sessionID: id}))
	if err != nil {
		_ = src.Close()
		s.writeError(w, err)
		return
	}
	s.session = sess
	s.result = nil

	go s.runSession(sess, src)

	s.logger.Info("session started", "session", id, "leds", cfg.LEDCount)
	s.writeJSON(w, http.StatusAccepted, sess.Snapshot())
}

func (s *Server) runSession(sess *mapping.Session, src capture.FrameSource) {
	res, err := sess.Run(context.Background())
	if cerr := src.Close(); cerr != nil {
		s.logger.Debug("closing frame source", "error", cerr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == sess && err == nil {
		s.result = res
	}
}

func (s *Server) sessionConfig(req SessionRequest) mapping.Config {
	cfg := s.template
	if req.LEDCount > 0 {
		cfg.LEDCount = req.LEDCount
	}
	if req.SettleDelayMs != nil {
		cfg.SettleDelay = time.Duration(*req.SettleDelayMs) * time.Millisecond
	}
	if req.LightTimeoutMs != nil {
		cfg.LightTimeout = time.Duration(*req.LightTimeoutMs) * time.Millisecond
	}
	if req.Normalize != nil {
		cfg.NormalizeOnComplete = *req.Normalize
	}
	return cfg
}

func (s *Server) resultHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	res := s.result
	running := s.runningLocked()
	s.mu.Unlock()
	switch {
	case res != nil:
		s.writeJSON(w, http.StatusOK, res)
	case running:
		s.writeErrorResponse(w, "session still running", "session_running", http.StatusConflict)
	default:
		s.writeErrorResponse(w, "no completed session", "not_found", http.StatusNotFound)
	}
}

// runningLocked requires s.mu.
func (s *Server) runningLocked() bool {
	if s.session == nil {
		return false
	}
	select {
	case <-s.session.Done():
		return false
	default:
		return !s.session.State().Terminal()
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) (int, string) {
	var (
		degenerate *calibrate.DegenerateInputError
		notReady   *calibrate.TransformNotReadyError
		invalid    *calibrate.InvalidTransformError
		capErr     *capture.CaptureUnavailableError
		seqErr     *sequencer.SequenceError
	)
	switch {
	case errors.As(err, &degenerate), errors.As(err, &invalid):
		return http.StatusUnprocessableEntity, "calibration_error"
	case errors.As(err, &notReady):
		return http.StatusPreconditionFailed, "calibration_required"
	case errors.As(err, &capErr):
		return http.StatusServiceUnavailable, "capture_unavailable"
	case errors.As(err, &seqErr):
		return http.StatusBadGateway, "sequence_error"
	case errors.Is(err, mapping.ErrSessionUsed):
		return http.StatusConflict, "session_used"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code, kind := statusFor(err)
	s.writeErrorResponse(w, err.Error(), kind, code)
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message, errorType string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message, ErrorType: errorType})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

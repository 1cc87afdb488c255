package server

import (
	"image"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/ledmap/internal/calibrate"
	"github.com/MeKo-Tech/ledmap/internal/capture"
	"github.com/MeKo-Tech/ledmap/internal/mapping"
	"github.com/MeKo-Tech/ledmap/internal/sequencer"
)

// Hardware opens the frame source and sequencer for a new session of
// ledCount LEDs; rect is the confirmed calibration rectangle. The server
// closes the source when the session ends.
type Hardware func(ledCount int, rect image.Rectangle) (capture.FrameSource, sequencer.Sequencer, error)

// Server holds the HTTP server state and dependencies.
type Server struct {
	corsOrigin   string
	minRectSize  int
	canvasWidth  float64
	canvasHeight float64
	cameraBounds image.Rectangle
	template     mapping.Config
	hardware     Hardware
	logger       *slog.Logger
	hub          *hub

	mu      sync.Mutex
	calib   *calibrate.Calibration
	session *mapping.Session
	result  *mapping.Result
}

// Config holds server configuration.
type Config struct {
	Host       string
	Port       int
	CORSOrigin string

	// MinRectSize is the smallest accepted calibration rectangle side in
	// camera pixels.
	MinRectSize  int
	CanvasWidth  float64
	CanvasHeight float64
	// CameraBounds, when non-empty, must contain every calibration rectangle.
	CameraBounds image.Rectangle

	// Session is the template for new sessions; requests override the LED
	// count and timing.
	Session  mapping.Config
	Hardware Hardware
	Logger   *slog.Logger
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type,omitempty"`
}

// Rect is a camera-space rectangle given by two opposite corners.
type Rect struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

func (r Rect) image() image.Rectangle { return image.Rect(r.X0, r.Y0, r.X1, r.Y1) }

func rectOf(r image.Rectangle) Rect {
	return Rect{X0: r.Min.X, Y0: r.Min.Y, X1: r.Max.X, Y1: r.Max.Y}
}

// CalibrationRequest confirms the rectangle the output canvas maps onto.
type CalibrationRequest struct {
	Rect
	CanvasWidth  float64 `json:"canvas_width,omitempty"`
	CanvasHeight float64 `json:"canvas_height,omitempty"`
}

// CalibrationResponse describes the active calibration.
type CalibrationResponse struct {
	Rect            Rect                       `json:"rect"`
	CanvasWidth     float64                    `json:"canvas_width"`
	CanvasHeight    float64                    `json:"canvas_height"`
	Transform       calibrate.AffineTransform  `json:"transform"`
	Verification    *calibrate.Verification    `json:"verification,omitempty"`
	Correspondences []calibrate.Correspondence `json:"correspondences"`
}

// SessionRequest starts a mapping session. Omitted fields use the server's
// session template.
type SessionRequest struct {
	LEDCount       int   `json:"led_count"`
	SettleDelayMs  *int  `json:"settle_delay_ms,omitempty"`
	LightTimeoutMs *int  `json:"light_timeout_ms,omitempty"`
	Normalize      *bool `json:"normalize,omitempty"`
}

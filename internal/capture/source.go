package capture

import (
	"context"
	"fmt"
	"image"
)

// FrameSource delivers camera frames. A source is exclusively owned by one
// mapping session at a time.
type FrameSource interface {
	// NextFrame blocks until the next frame is available or ctx ends.
	NextFrame(ctx context.Context) (image.Image, error)
	// Bounds returns the frame rectangle in camera pixels.
	Bounds() image.Rectangle
	Close() error
}

// CaptureUnavailableError reports that frames can no longer be read from the
// device. It is fatal for a session.
type CaptureUnavailableError struct {
	Source string
	Err    error
}

func (e *CaptureUnavailableError) Error() string {
	return fmt.Sprintf("capture source %s unavailable: %v", e.Source, e.Err)
}

func (e *CaptureUnavailableError) Unwrap() error { return e.Err }

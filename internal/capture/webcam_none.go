//go:build !gocv

package capture

import (
	"context"
	"errors"
	"image"
)

// ErrNoWebcam is returned when the binary was built without the gocv tag.
var ErrNoWebcam = errors.New("capture: webcam support not linked; build with -tags=gocv")

// WebcamAvailable reports whether this binary was built with camera support.
const WebcamAvailable = false

// Webcam is a placeholder so callers compile without OpenCV.
type Webcam struct{}

// OpenWebcam always fails without the gocv build tag.
func OpenWebcam(device string, _, _ int) (*Webcam, error) {
	return nil, &CaptureUnavailableError{Source: device, Err: ErrNoWebcam}
}

func (w *Webcam) Bounds() image.Rectangle { return image.Rectangle{} }

func (w *Webcam) NextFrame(context.Context) (image.Image, error) {
	return nil, &CaptureUnavailableError{Source: "webcam", Err: ErrNoWebcam}
}

func (w *Webcam) Close() error { return nil }

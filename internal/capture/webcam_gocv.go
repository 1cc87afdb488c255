//go:build gocv

package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Webcam reads frames from a camera device through OpenCV.
type Webcam struct {
	mu     sync.Mutex
	device string
	vc     *gocv.VideoCapture
	frame  gocv.Mat
	bounds image.Rectangle
}

// WebcamAvailable reports whether this binary was built with camera support.
const WebcamAvailable = true

// OpenWebcam opens a camera by numeric id or a video file path. Width and
// height are requested from the driver when positive.
func OpenWebcam(device string, width, height int) (*Webcam, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, &CaptureUnavailableError{Source: device, Err: err}
	}
	if width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	w := &Webcam{device: device, vc: vc, frame: gocv.NewMat()}

	// Read one frame to learn the actual resolution.
	if ok := vc.Read(&w.frame); !ok || w.frame.Empty() {
		_ = w.Close()
		return nil, &CaptureUnavailableError{Source: device, Err: errors.New("no frame from device")}
	}
	w.bounds = image.Rect(0, 0, w.frame.Cols(), w.frame.Rows())
	return w, nil
}

func (w *Webcam) Bounds() image.Rectangle { return w.bounds }

func (w *Webcam) NextFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.vc == nil {
		return nil, &CaptureUnavailableError{Source: w.device, Err: errors.New("device closed")}
	}
	if ok := w.vc.Read(&w.frame); !ok || w.frame.Empty() {
		return nil, &CaptureUnavailableError{Source: w.device, Err: errors.New("read failed")}
	}
	img, err := w.frame.ToImage()
	if err != nil {
		return nil, &CaptureUnavailableError{Source: w.device, Err: fmt.Errorf("convert frame: %w", err)}
	}
	return img, nil
}

func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.vc == nil {
		return nil
	}
	err := w.vc.Close()
	_ = w.frame.Close()
	w.vc = nil
	return err
}

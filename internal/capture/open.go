package capture

import (
	"errors"
	"fmt"
	"time"
)

// Source kinds accepted by Open.
const (
	KindWebcam    = "webcam"
	KindDirectory = "directory"
	KindSynthetic = "synthetic"
)

// Options selects and configures a frame source.
type Options struct {
	Kind          string
	Device        string
	Directory     string
	Loop          bool
	Width         int
	Height        int
	FrameInterval time.Duration
}

// Open constructs a webcam or directory source. Synthetic scenes need LED
// positions and are built with NewSyntheticScene instead.
func Open(opts Options) (FrameSource, error) {
	switch opts.Kind {
	case KindWebcam, "":
		w, err := OpenWebcam(opts.Device, opts.Width, opts.Height)
		if err != nil {
			return nil, err
		}
		return w, nil
	case KindDirectory:
		d, err := NewDirectorySource(opts.Directory, opts.Loop, opts.FrameInterval)
		if err != nil {
			return nil, err
		}
		return d, nil
	case KindSynthetic:
		return nil, errors.New("synthetic sources are created with NewSyntheticScene")
	default:
		return nil, fmt.Errorf("unknown capture source %q", opts.Kind)
	}
}

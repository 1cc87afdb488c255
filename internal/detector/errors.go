package detector

import (
	"fmt"
	"time"
)

// DetectionTimeoutError is returned when no qualifying light was seen before
// the per-light deadline.
type DetectionTimeoutError struct {
	Timeout time.Duration
	Frames  int
}

func (e *DetectionTimeoutError) Error() string {
	return fmt.Sprintf("no light detected within %v (%d frames examined)", e.Timeout, e.Frames)
}

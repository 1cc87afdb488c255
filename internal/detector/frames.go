package detector

import (
	"context"
	"errors"

	"github.com/MeKo-Tech/ledmap/internal/capture"
)

// nextGray captures one frame and converts it. Context errors are returned
// unchanged; every other failure becomes a CaptureUnavailableError.
func nextGray(ctx context.Context, src capture.FrameSource) (*capture.GrayFrame, error) {
	img, err := src.NextFrame(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var cue *capture.CaptureUnavailableError
		if errors.As(err, &cue) {
			return nil, err
		}
		return nil, &capture.CaptureUnavailableError{Source: "camera", Err: err}
	}
	if img == nil {
		return nil, &capture.CaptureUnavailableError{Source: "camera", Err: errors.New("nil frame")}
	}
	return capture.ToGray(img), nil
}

package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/MeKo-Tech/ledmap/internal/utils"
)

// DirectorySource replays pre-recorded frames from a directory in lexical
// file order. Useful for offline mapping and for reproducing field captures.
type DirectorySource struct {
	mu       sync.Mutex
	dir      string
	paths    []string
	next     int
	loop     bool
	interval time.Duration
	bounds   image.Rectangle
	closed   bool
}

// NewDirectorySource lists dir and decodes the first frame to learn the
// frame bounds. With loop set the sequence restarts after the last frame;
// otherwise exhausting it is a capture failure.
func NewDirectorySource(dir string, loop bool, interval time.Duration) (*DirectorySource, error) {
	paths, err := utils.ListImages(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frames found in %s", dir)
	}
	first, err := utils.LoadImage(paths[0])
	if err != nil {
		return nil, err
	}
	return &DirectorySource{
		dir:      dir,
		paths:    paths,
		loop:     loop,
		interval: interval,
		bounds:   first.Bounds(),
	}, nil
}

// Len returns the number of frames in the directory.
func (d *DirectorySource) Len() int { return len(d.paths) }

func (d *DirectorySource) Bounds() image.Rectangle { return d.bounds }

func (d *DirectorySource) NextFrame(ctx context.Context) (image.Image, error) {
	if err := waitInterval(ctx, d.interval); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, &CaptureUnavailableError{Source: d.dir, Err: errors.New("source closed")}
	}
	if d.next >= len(d.paths) {
		if !d.loop {
			return nil, &CaptureUnavailableError{Source: d.dir, Err: io.EOF}
		}
		d.next = 0
	}
	path := d.paths[d.next]
	d.next++

	img, err := utils.LoadImage(path)
	if err != nil {
		return nil, &CaptureUnavailableError{Source: d.dir, Err: err}
	}
	if img.Bounds() != d.bounds {
		return nil, &CaptureUnavailableError{
			Source: d.dir,
			Err:    fmt.Errorf("frame %s has bounds %v, expected %v", path, img.Bounds(), d.bounds),
		}
	}
	return img, nil
}

func (d *DirectorySource) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// waitInterval sleeps for the frame interval unless ctx ends first.
func waitInterval(ctx context.Context, interval time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if interval <= 0 {
		return nil
	}
	t := time.NewTimer(interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

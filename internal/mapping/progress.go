package mapping

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ProgressListener observes a running session. Calls happen on the session
// goroutine; implementations must not block.
type ProgressListener interface {
	// OnStart is called once the sequence has been started.
	OnStart(total int)
	// OnLight is called after each light was handled; pos is nil on failure.
	OnLight(index, total int, pos *MappedPosition)
	// OnComplete is called when the sequence completed.
	OnComplete(result *Result)
	// OnError is called when the session fails.
	OnError(err error)
}

// NoOpProgress implements ProgressListener but does nothing.
type NoOpProgress struct{}

func (NoOpProgress) OnStart(int)                        {}
func (NoOpProgress) OnLight(int, int, *MappedPosition) {}
func (NoOpProgress) OnComplete(*Result)                 {}
func (NoOpProgress) OnError(error)                      {}

// ConsoleProgress prints one line per light.
type ConsoleProgress struct {
	mu     sync.Mutex
	writer io.Writer
	prefix string
	mapped int
}

// NewConsoleProgress writes to writer, or stderr when nil.
func NewConsoleProgress(writer io.Writer, prefix string) *ConsoleProgress {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleProgress{writer: writer, prefix: prefix}
}

func (c *ConsoleProgress) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mapped = 0
	_, _ = fmt.Fprintf(c.writer, "%smapping %d LEDs\n", c.prefix, total)
}

func (c *ConsoleProgress) OnLight(index, total int, pos *MappedPosition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pos == nil {
		_, _ = fmt.Fprintf(c.writer, "%s[%d/%d] LED %d not found\n", c.prefix, index+1, total, index)
		return
	}
	c.mapped++
	_, _ = fmt.Fprintf(c.writer, "%s[%d/%d] LED %d at (%.1f, %.1f) confidence %.2f\n",
		c.prefix, index+1, total, index, pos.Output.X, pos.Output.Y, pos.Confidence)
}

func (c *ConsoleProgress) OnComplete(result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.writer, "%scompleted: %d/%d mapped (%.1f%%) in %v\n",
		c.prefix, len(result.Positions), result.Total, result.SuccessRate*100, result.Duration().Round(1e6))
}

func (c *ConsoleProgress) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.writer, "%serror: %v\n", c.prefix, err)
}

// multiProgress fans out to several listeners.
type multiProgress []ProgressListener

func (m multiProgress) OnStart(total int) {
	for _, l := range m {
		l.OnStart(total)
	}
}

func (m multiProgress) OnLight(index, total int, pos *MappedPosition) {
	for _, l := range m {
		l.OnLight(index, total, pos)
	}
}

func (m multiProgress) OnComplete(result *Result) {
	for _, l := range m {
		l.OnComplete(result)
	}
}

func (m multiProgress) OnError(err error) {
	for _, l := range m {
		l.OnError(err)
	}
}

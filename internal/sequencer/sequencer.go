// Package sequencer drives the LED activation hardware. A Sequencer lights
// one LED at a time in index order and reports each activation as an Event.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventType names the activation events.
type EventType string

const (
	EventLEDActive        EventType = "led_active"
	EventSequenceComplete EventType = "sequence_complete"
	EventError            EventType = "error"
)

// Event is a single notification from the activation hardware.
type Event struct {
	Type    EventType `json:"type"`
	Index   int       `json:"index,omitempty"`
	Total   int       `json:"total,omitempty"`
	Message string    `json:"message,omitempty"`
}

// LEDActive reports that LED index of total is lit.
func LEDActive(index, total int) Event {
	return Event{Type: EventLEDActive, Index: index, Total: total}
}

// Complete reports the end of the sequence.
func Complete() Event { return Event{Type: EventSequenceComplete} }

// Failure reports a hardware error.
func Failure(msg string) Event { return Event{Type: EventError, Message: msg} }

// Config describes one activation run.
type Config struct {
	LEDCount      int           `json:"led_count"`
	PerLightDelay time.Duration `json:"-"`
	Protocol      string        `json:"protocol"`
	StartAddress  int           `json:"start_address"`
	Brightness    int           `json:"brightness"`
}

// Validate checks the run parameters.
func (c Config) Validate() error {
	var errs []error
	if c.LEDCount < 1 {
		errs = append(errs, fmt.Errorf("led count must be >= 1, got %d", c.LEDCount))
	}
	if c.PerLightDelay < 0 {
		errs = append(errs, fmt.Errorf("per-light delay must not be negative, got %v", c.PerLightDelay))
	}
	if c.StartAddress < 0 {
		errs = append(errs, fmt.Errorf("start address must not be negative, got %d", c.StartAddress))
	}
	if c.Brightness < 0 || c.Brightness > 255 {
		errs = append(errs, fmt.Errorf("brightness must be in [0,255], got %d", c.Brightness))
	}
	return errors.Join(errs...)
}

// Sequencer drives activation hardware. Start begins a run and returns the
// event channel, which is closed after the terminal event or after Stop.
// Stop is idempotent.
type Sequencer interface {
	Start(ctx context.Context, cfg Config) (<-chan Event, error)
	Stop() error
}

var (
	// ErrAlreadyStarted is returned by Start on a running sequencer.
	ErrAlreadyStarted = errors.New("sequencer already started")
)

// SequenceError is a failure reported by, or while talking to, the hardware.
type SequenceError struct {
	Message string
	Err     error
}

func (e *SequenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sequence error: %s: %v", e.Message, e.Err)
	}
	return "sequence error: " + e.Message
}

func (e *SequenceError) Unwrap() error { return e.Err }

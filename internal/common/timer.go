// Package common provides timing helpers shared by the mapping pipeline.
package common

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Timer measures one pipeline stage and optionally reports it to a
// prometheus observer when stopped.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
	stopped  bool
	observer prometheus.Observer
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer creates a new timer with the given name.
func NewNamedTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// NewStageTimer creates a named timer whose first Stop observes the elapsed
// seconds on obs.
func NewStageTimer(name string, obs prometheus.Observer) *Timer {
	t := NewNamedTimer(name)
	t.observer = obs
	return t
}

// Stop stops the timer and returns the elapsed duration. Later calls return
// the first measurement.
func (t *Timer) Stop() time.Duration {
	if t.stopped {
		return t.duration
	}
	t.stopped = true
	t.duration = time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(t.duration.Seconds())
	}
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Name returns the timer name (empty string if unnamed).
func (t *Timer) Name() string {
	return t.name
}

func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return fmt.Sprintf("%v", t.duration)
}

package common

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestTimer(t *testing.T) {
	timer := NewNamedTimer("detect")
	assert.Equal(t, "detect", timer.Name())

	time.Sleep(10 * time.Millisecond)

	duration := timer.Stop()
	assert.GreaterOrEqual(t, duration, 10*time.Millisecond)
	assert.Equal(t, duration, timer.Duration())

	str := timer.String()
	assert.Contains(t, str, "detect")
	assert.Contains(t, str, "ms")
}

func TestStageTimer_ObservesOnce(t *testing.T) {
	var observed []float64
	timer := NewStageTimer("baseline", prometheus.ObserverFunc(func(v float64) {
		observed = append(observed, v)
	}))

	first := timer.Stop()
	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, first, timer.Stop())

	assert.Len(t, observed, 1)
	assert.InDelta(t, first.Seconds(), observed[0], 1e-9)
}

func TestTimer_Unnamed(t *testing.T) {
	timer := NewTimer()
	timer.Stop()
	assert.Empty(t, timer.Name())
	assert.NotContains(t, timer.String(), ":")
}

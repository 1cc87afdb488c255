package sequencer

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// pipePort connects the sequencer to an in-memory fake controller.
type pipePort struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipePort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipePort) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipePort) Close() error {
	_ = p.r.Close()
	return p.w.Close()
}

// fakeController answers START with the scripted reply and records every
// line the host sent.
type fakeController struct {
	mu       sync.Mutex
	received []string
	done     chan struct{}
}

func (c *fakeController) Received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.received...)
}

func newFakeController(t *testing.T, reply string, hangUp bool) (*fakeController, OpenFunc) {
	t.Helper()
	hostR, devW := io.Pipe()
	devR, hostW := io.Pipe()
	ctrl := &fakeController{done: make(chan struct{})}

	go func() {
		defer close(ctrl.done)
		scan := bufio.NewScanner(devR)
		for scan.Scan() {
			line := scan.Text()
			ctrl.mu.Lock()
			ctrl.received = append(ctrl.received, line)
			ctrl.mu.Unlock()
			if len(line) >= 5 && line[:5] == "START" {
				_, _ = io.WriteString(devW, reply)
				if hangUp {
					_ = devW.Close()
				}
			}
		}
	}()

	open := func(path string, mode *serial.Mode) (Port, error) {
		assert.Equal(t, "/dev/ttyFAKE", path)
		assert.Equal(t, 115200, mode.BaudRate)
		return &pipePort{r: hostR, w: hostW}, nil
	}
	return ctrl, open
}

func TestSerialSequencer_FullRun(t *testing.T) {
	ctrl, open := newFakeController(t, "# hello\nLED 0 3\nLED 1 3\nbogus\nLED 2 3\nDONE\n", false)
	seq := NewSerialSequencerWithOpener("/dev/ttyFAKE", PortOptions{}, open, nil)

	cfg := Config{LEDCount: 3, PerLightDelay: 0, Protocol: "ws2812", Brightness: 128}
	events, err := seq.Start(context.Background(), cfg)
	require.NoError(t, err)

	got := collect(t, events)
	require.NoError(t, seq.Stop())
	<-ctrl.done

	assert.Equal(t, []Event{LEDActive(0, 3), LEDActive(1, 3), LEDActive(2, 3), Complete()}, got)
	assert.Equal(t, []string{"START 3 0 ws2812 0 128", "STOP"}, ctrl.Received())
	assert.NoError(t, seq.Stop())
}

func TestSerialSequencer_DeviceError(t *testing.T) {
	ctrl, open := newFakeController(t, "LED 0 2\nERR strip overheated\n", false)
	seq := NewSerialSequencerWithOpener("/dev/ttyFAKE", PortOptions{}, open, nil)

	events, err := seq.Start(context.Background(), Config{LEDCount: 2})
	require.NoError(t, err)
	got := collect(t, events)
	require.NoError(t, seq.Stop())
	<-ctrl.done

	require.Len(t, got, 2)
	assert.Equal(t, Failure("strip overheated"), got[1])
}

func TestSerialSequencer_DeviceHangsUp(t *testing.T) {
	ctrl, open := newFakeController(t, "LED 0 2\n", true)
	seq := NewSerialSequencerWithOpener("/dev/ttyFAKE", PortOptions{}, open, nil)

	events, err := seq.Start(context.Background(), Config{LEDCount: 2})
	require.NoError(t, err)
	got := collect(t, events)
	_ = seq.Stop()
	<-ctrl.done

	require.Len(t, got, 2)
	assert.Equal(t, EventError, got[1].Type)
}

func TestSerialSequencer_OpenFailure(t *testing.T) {
	open := func(string, *serial.Mode) (Port, error) { return nil, errors.New("no such device") }
	seq := NewSerialSequencerWithOpener("/dev/ttyNONE", PortOptions{}, open, nil)

	_, err := seq.Start(context.Background(), Config{LEDCount: 1})
	var se *SequenceError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Error(), "no such device")
	assert.NoError(t, seq.Stop(), "stop without start")
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 115200, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.NoParity, mode.Parity)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)

	mode, err = PortOptions{BaudRate: 9600, StopBits: 2, Parity: "even"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 9600, mode.BaudRate)
	assert.Equal(t, serial.EvenParity, mode.Parity)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)

	_, err = PortOptions{DataBits: 9}.SerialMode()
	assert.Error(t, err)
	_, err = PortOptions{StopBits: 3}.SerialMode()
	assert.Error(t, err)
	_, err = PortOptions{Parity: "mark"}.SerialMode()
	assert.Error(t, err)
}

package sequencer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"go.bug.st/serial"
)

// Port is the minimal serial port surface the sequencer needs.
type Port interface {
	io.ReadWriter
	io.Closer
}

// PortOptions describes the serial line settings.
type PortOptions struct {
	BaudRate int    `json:"baud_rate" yaml:"baud_rate" mapstructure:"baud_rate"`
	DataBits int    `json:"data_bits" yaml:"data_bits" mapstructure:"data_bits"`
	StopBits int    `json:"stop_bits" yaml:"stop_bits" mapstructure:"stop_bits"`
	Parity   string `json:"parity"    yaml:"parity"    mapstructure:"parity"`
}

// SerialMode converts the options to a go.bug.st/serial mode, applying
// defaults of 115200 8N1.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	mode := &serial.Mode{BaudRate: o.BaudRate, DataBits: o.DataBits}
	if mode.BaudRate <= 0 {
		mode.BaudRate = 115200
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	if mode.DataBits < 5 || mode.DataBits > 8 {
		return nil, fmt.Errorf("invalid data bits %d: must be between 5 and 8", mode.DataBits)
	}
	switch o.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}
	switch strings.ToUpper(strings.TrimSpace(o.Parity)) {
	case "", "N", "NONE":
		mode.Parity = serial.NoParity
	case "E", "EVEN":
		mode.Parity = serial.EvenParity
	case "O", "ODD":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	return mode, nil
}

// OpenFunc opens a serial port.
type OpenFunc func(path string, mode *serial.Mode) (Port, error)

func openSerial(path string, mode *serial.Mode) (Port, error) {
	return serial.Open(path, mode)
}

// SerialSequencer talks the line protocol to a controller on a serial port.
type SerialSequencer struct {
	path   string
	opts   PortOptions
	open   OpenFunc
	logger *slog.Logger

	mu      sync.Mutex
	port    Port
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
	stopErr error
}

// NewSerialSequencer creates a sequencer for the port at path.
func NewSerialSequencer(path string, opts PortOptions, logger *slog.Logger) *SerialSequencer {
	return NewSerialSequencerWithOpener(path, opts, openSerial, logger)
}

// NewSerialSequencerWithOpener uses open instead of go.bug.st/serial, which
// lets tests substitute an in-memory port.
func NewSerialSequencerWithOpener(path string, opts PortOptions, open OpenFunc, logger *slog.Logger) *SerialSequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SerialSequencer{path: path, opts: opts, open: open, logger: logger}
}

func (s *SerialSequencer) Start(ctx context.Context, cfg Config) (<-chan Event, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := s.opts.SerialMode()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil, ErrAlreadyStarted
	}

	port, err := s.open(s.path, mode)
	if err != nil {
		return nil, &SequenceError{Message: "open " + s.path, Err: err}
	}
	if err := writeLine(port, FormatStart(cfg)); err != nil {
		_ = port.Close()
		return nil, &SequenceError{Message: "send START", Err: err}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.port = port
	s.cancel = cancel
	s.done = make(chan struct{})
	events := make(chan Event, cfg.LEDCount+2)

	s.logger.Info("serial sequence started", "port", s.path, "leds", cfg.LEDCount)
	go s.monitor(runCtx, port, events)
	return events, nil
}

// monitor scans device lines until a terminal event, EOF or cancellation.
func (s *SerialSequencer) monitor(ctx context.Context, port Port, events chan<- Event) {
	defer close(s.done)
	defer close(events)

	emit := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scan := bufio.NewScanner(port)
		for scan.Scan() {
			select {
			case lines <- scan.Text():
			case <-ctx.Done():
				scanErr <- nil
				return
			}
		}
		scanErr <- scan.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				err := <-scanErr
				if ctx.Err() != nil {
					return
				}
				msg := "serial connection closed"
				if err != nil {
					msg = err.Error()
				}
				emit(Failure(msg))
				return
			}
			ev, ok, err := ParseLine(line)
			if err != nil {
				s.logger.Warn("ignoring device line", "line", line, "error", err)
				continue
			}
			if !ok {
				continue
			}
			if !emit(ev) || ev.Type != EventLEDActive {
				return
			}
		}
	}
}

// Stop sends STOP, closes the port and waits for the monitor to exit.
func (s *SerialSequencer) Stop() error {
	s.mu.Lock()
	if s.port == nil || s.stopped {
		err := s.stopErr
		s.mu.Unlock()
		return err
	}
	s.stopped = true
	port, cancel, done := s.port, s.cancel, s.done
	s.mu.Unlock()

	cancel()
	werr := writeLine(port, "STOP")
	cerr := port.Close()
	<-done

	var err error
	switch {
	case werr != nil && !errors.Is(werr, io.ErrClosedPipe):
		err = &SequenceError{Message: "send STOP", Err: werr}
	case cerr != nil:
		err = &SequenceError{Message: "close port", Err: cerr}
	}
	s.mu.Lock()
	s.stopErr = err
	s.mu.Unlock()
	s.logger.Info("serial sequence stopped", "port", s.path)
	return err
}

func writeLine(w io.Writer, line string) error {
	_, err := io.WriteString(w, line+"\n")
	return err
}

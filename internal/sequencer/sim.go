package sequencer

import (
	"context"
	"sync"
	"time"
)

// Lighter is the simulated hardware a SimSequencer switches. Indices are
// strip positions from 0; StartAddress only applies to real controllers.
type Lighter interface {
	SetActive(index int)
	ClearActive()
}

// SimSequencer is an in-process sequencer. Events are delivered on an
// unbuffered channel and LED i is only lit after the receiver took event i,
// so a slow consumer never sees the next LED early. PerLightDelay is the
// minimum gap between activations.
type SimSequencer struct {
	lighter Lighter
	// FailAt makes the run report an error instead of lighting that index.
	// Negative disables it.
	FailAt int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSimSequencer creates a simulator driving lighter, which may be nil.
func NewSimSequencer(lighter Lighter) *SimSequencer {
	return &SimSequencer{lighter: lighter, FailAt: -1}
}

func (s *SimSequencer) Start(ctx context.Context, cfg Config) (<-chan Event, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil, ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	events := make(chan Event)

	go s.run(runCtx, cfg, events)
	return events, nil
}

func (s *SimSequencer) run(ctx context.Context, cfg Config, events chan<- Event) {
	defer close(s.done)
	defer close(events)
	defer s.clear()

	send := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for i := range cfg.LEDCount {
		if i == s.FailAt {
			send(Failure("simulated hardware fault"))
			return
		}
		if i > 0 && cfg.PerLightDelay > 0 {
			t := time.NewTimer(cfg.PerLightDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		if !send(LEDActive(i, cfg.LEDCount)) {
			return
		}
		if s.lighter != nil {
			s.lighter.SetActive(i)
		}
	}
	// The last LED stays lit until the consumer is done with it.
	send(Complete())
}

func (s *SimSequencer) clear() {
	if s.lighter != nil {
		s.lighter.ClearActive()
	}
}

// Stop cancels the run and waits for it to wind down.
func (s *SimSequencer) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

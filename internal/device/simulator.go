package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/sadopc/hydrate/internal/reminder"
)

// Simulator stands in for the bottle firmware. It decodes every payload the
// way the microcontroller does and records the resulting state.
type Simulator struct {
	mu       sync.Mutex
	attached bool
	running  bool
	interval int
	received []reminder.Command
	fail     error
}

// NewSimulator returns an attached simulator.
func NewSimulator() *Simulator {
	return &Simulator{attached: true}
}

func (s *Simulator) Send(ctx context.Context, cmd reminder.Command) error {
	if err := ctx.Err(); err != nil {
		return &reminder.TransportError{Command: cmd, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return fmt.Errorf("send %s: %w", cmd, reminder.ErrTransportUnavailable)
	}
	if s.fail != nil {
		return &reminder.TransportError{Command: cmd, Err: s.fail}
	}

	parsed, secs, err := reminder.ParseCommand(cmd.Bytes())
	if err != nil {
		return &reminder.TransportError{Command: cmd, Err: err}
	}
	switch parsed {
	case reminder.CommandStart:
		s.running = true
	case reminder.CommandStop:
		s.running = false
	default:
		s.interval = secs
	}
	s.received = append(s.received, parsed)
	return nil
}

// Attach connects or disconnects the simulated transport.
func (s *Simulator) Attach(attached bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = attached
}

// FailWith makes every following write fail with err; nil clears it.
func (s *Simulator) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Running reports the firmware's running flag.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval is the last SET value, 0 if none was received.
func (s *Simulator) Interval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Received returns the decoded commands in arrival order.
func (s *Simulator) Received() []reminder.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reminder.Command(nil), s.received...)
}

// Unattached is the sink used when no bottle is configured.
type Unattached struct{}

func (Unattached) Send(_ context.Context, cmd reminder.Command) error {
	return fmt.Errorf("send %s: %w", cmd, reminder.ErrTransportUnavailable)
}

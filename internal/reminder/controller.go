// Package reminder owns the drink-water countdown and turns its transitions
// into status text, alarms and commands for the bottle.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// TickPeriod is the countdown resolution; Remaining is in seconds.
	TickPeriod = time.Second
	// DefaultInterval is used until Start or SetInterval supply one.
	DefaultInterval = 3600
)

// Controller runs a single countdown. It is safe for concurrent use; sinks are
// always called with the internal lock released.
type Controller struct {
	mu        sync.Mutex
	session   Session
	cancel    func()
	outOfSync bool

	clock       Clock
	commands    CommandSink
	status      StatusSink
	alarm       AlarmSink
	sendTimeout time.Duration
	logger      zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

func WithStatusSink(s StatusSink) Option {
	return func(c *Controller) { c.status = s }
}

func WithAlarmSink(s AlarmSink) Option {
	return func(c *Controller) { c.alarm = s }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithSendTimeout bounds each command write. Zero leaves the caller's
// context untouched.
func WithSendTimeout(d time.Duration) Option {
	return func(c *Controller) { c.sendTimeout = d }
}

// WithInterval sets the interval reported before the first Start.
func WithInterval(secs int) Option {
	return func(c *Controller) {
		if secs > 0 {
			c.session.Interval = secs
		}
	}
}

// NewController returns an idle controller.
func NewController(clk Clock, commands CommandSink, opts ...Option) *Controller {
	c := &Controller{
		session:  Session{Interval: DefaultInterval},
		clock:    clk,
		commands: commands,
		status:   StatusFunc(func(Topic, string) {}),
		alarm:    AlarmFunc(func() {}),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "reminder").Logger()
	return c
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Start (re)starts the countdown at intervalSeconds and sends START. A
// transport error is returned but the countdown keeps running.
func (c *Controller) Start(ctx context.Context, intervalSeconds int) error {
	if intervalSeconds <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidArgument, intervalSeconds)
	}

	c.mu.Lock()
	c.cancelLocked()
	c.session.Generation++
	gen := c.session.Generation
	c.session.Interval = intervalSeconds
	c.session.Remaining = intervalSeconds
	c.session.Running = true
	c.cancel = c.clock.Every(TickPeriod, func() { c.tick(gen) })
	c.mu.Unlock()

	c.logger.Info().
		Int("interval", intervalSeconds).
		Uint64("generation", gen).
		Msg("Reminder started")

	c.publish(gen, ReminderText(intervalSeconds))
	return c.send(ctx, CommandStart)
}

// Stop halts the countdown and sends STOP. Stopping an idle controller only
// repeats the status line.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	wasRunning := c.session.Running
	c.cancelLocked()
	if wasRunning {
		c.session.Running = false
		c.session.Generation++
	}
	gen := c.session.Generation
	c.mu.Unlock()

	c.publish(gen, StoppedText)
	if !wasRunning {
		return nil
	}

	c.logger.Info().Msg("Reminder stopped")
	return c.send(ctx, CommandStop)
}

// SetInterval changes the interval used from the next reset on and sends
// SET:<seconds>. A running countdown is not restarted; Remaining is clamped
// to the new interval.
func (c *Controller) SetInterval(ctx context.Context, intervalSeconds int) error {
	if intervalSeconds <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidArgument, intervalSeconds)
	}

	c.mu.Lock()
	c.session.Interval = intervalSeconds
	clamped := false
	if c.session.Remaining > intervalSeconds {
		c.session.Remaining = intervalSeconds
		clamped = true
	}
	running := c.session.Running
	gen := c.session.Generation
	c.mu.Unlock()

	c.logger.Info().Int("interval", intervalSeconds).Msg("Reminder interval changed")

	if running && clamped {
		c.publish(gen, ReminderText(intervalSeconds))
	}
	return c.send(ctx, SetCommand(intervalSeconds))
}

// Tick advances the current cycle by one second.
func (c *Controller) Tick() {
	c.mu.Lock()
	gen := c.session.Generation
	c.mu.Unlock()
	c.tick(gen)
}

// Close cancels any scheduled tick and leaves the session idle, without
// talking to the device or the sinks.
func (c *Controller) Close() {
	c.mu.Lock()
	c.cancelLocked()
	if c.session.Running {
		c.session.Running = false
		c.session.Generation++
	}
	c.mu.Unlock()
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if !c.session.Running || gen != c.session.Generation {
		c.mu.Unlock()
		c.logger.Debug().Uint64("generation", gen).Msg("Ignoring stale tick")
		return
	}

	c.session.Remaining--
	fired := false
	if c.session.Remaining <= 0 {
		fired = true
		c.session.Remaining = c.session.Interval
	}
	remaining := c.session.Remaining
	resync := fired && c.outOfSync
	c.mu.Unlock()

	if fired {
		c.logger.Info().Int("interval", remaining).Msg("Reminder alarm")
		c.alarm.Alarm()
	}
	c.publish(gen, ReminderText(remaining))

	if resync {
		// the last command never reached the bottle; restart its cycle with ours
		if err := c.send(context.Background(), CommandStart); err != nil {
			c.logger.Debug().Err(err).Msg("Resync after alarm failed")
		}
	}
}

// publish emits the reminder line computed for generation gen. If Start,
// Stop or Close moved the session on while the sink ran, the current line is
// emitted again so the last one a sink sees always matches the session.
func (c *Controller) publish(gen uint64, text string) {
	for {
		c.status.SetStatus(TopicReminder, text)

		c.mu.Lock()
		cur := c.session.Generation
		current := StoppedText
		if c.session.Running {
			current = ReminderText(c.session.Remaining)
		}
		c.mu.Unlock()

		if cur == gen {
			return
		}
		gen, text = cur, current
	}
}

func (c *Controller) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) send(ctx context.Context, cmd Command) error {
	if c.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()
	}

	var err error
	if c.commands == nil {
		err = ErrTransportUnavailable
	} else {
		err = c.commands.Send(ctx, cmd)
	}

	c.mu.Lock()
	c.outOfSync = err != nil
	c.mu.Unlock()

	if err != nil {
		if !IsTransport(err) {
			err = &TransportError{Command: cmd, Err: err}
		}
		c.logger.Warn().Err(err).Str("command", cmd.String()).Msg("Command not delivered")
		c.status.SetStatus(TopicConnection, ConnectionText(err))
		return err
	}

	c.logger.Debug().Str("command", cmd.String()).Msg("Command sent")
	c.status.SetStatus(TopicConnection, ConnectedText)
	return nil
}

// ConnectionText renders a send outcome as the connection status line.
func ConnectionText(err error) string {
	switch {
	case err == nil:
		return ConnectedText
	case errors.Is(err, ErrTransportUnavailable):
		return DisconnectedText
	}
	return "Bluetooth: Error: " + err.Error()
}

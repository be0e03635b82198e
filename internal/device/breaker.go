package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/sadopc/hydrate/internal/reminder"
)

const (
	defaultBreakerMaxFailures uint32        = 3
	defaultBreakerTimeout     time.Duration = 30 * time.Second
)

// BreakerConfig configures Breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failed writes that opens the circuit.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before one probe is let through.
	Timeout time.Duration
}

// Breaker stops hammering a bottle that keeps rejecting writes. While open,
// sends fail immediately with reminder.ErrTransportUnavailable. Nothing is
// retried.
type Breaker struct {
	inner   reminder.CommandSink
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreaker wraps inner. Zero config values fall back to defaults.
func NewBreaker(inner reminder.CommandSink, cfg BreakerConfig, logger zerolog.Logger) *Breaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "bottle",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// no device attached is not the device misbehaving
			return err == nil || errors.Is(err, reminder.ErrTransportUnavailable)
		},
	})

	return &Breaker{inner: inner, breaker: cb}
}

func (b *Breaker) Send(ctx context.Context, cmd reminder.Command) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.inner.Send(ctx, cmd)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("send %s: %w: %v", cmd, reminder.ErrTransportUnavailable, err)
	}
	return err
}

// State is the breaker state, for status display.
func (b *Breaker) State() string {
	return b.breaker.State().String()
}

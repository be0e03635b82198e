package device

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/sadopc/hydrate/internal/metrics"
	"github.com/sadopc/hydrate/internal/reminder"
)

// CommandRecorder persists the outcome of each write.
type CommandRecorder interface {
	RecordCommand(command string, sendErr error) error
}

// Instrumented logs, counts and records every command passing through it.
type Instrumented struct {
	inner    reminder.CommandSink
	recorder CommandRecorder
	logger   zerolog.Logger
}

// NewInstrumented wraps inner. recorder may be nil.
func NewInstrumented(inner reminder.CommandSink, recorder CommandRecorder, logger zerolog.Logger) *Instrumented {
	return &Instrumented{
		inner:    inner,
		recorder: recorder,
		logger:   logger.With().Str("component", "device").Logger(),
	}
}

func (i *Instrumented) Send(ctx context.Context, cmd reminder.Command) error {
	start := time.Now()
	err := i.inner.Send(ctx, cmd)
	metrics.CommandDuration.WithLabelValues(cmd.Name()).Observe(time.Since(start).Seconds())
	metrics.CommandsTotal.WithLabelValues(cmd.Name(), resultLabel(err)).Inc()

	if err != nil {
		metrics.DeviceConnected.Set(0)
		i.logger.Warn().Err(err).Str("command", cmd.String()).Msg("Command failed")
	} else {
		metrics.DeviceConnected.Set(1)
		i.logger.Info().Str("command", cmd.String()).Msg("Command sent")
	}

	if i.recorder != nil {
		if rerr := i.recorder.RecordCommand(cmd.String(), err); rerr != nil {
			i.logger.Error().Err(rerr).Msg("Failed to record command")
		}
	}
	return err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, reminder.ErrTransportUnavailable):
		return "unavailable"
	}
	return "error"
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sadopc/hydrate/internal/config"
	"github.com/sadopc/hydrate/internal/device"
	"github.com/sadopc/hydrate/internal/metrics"
	"github.com/sadopc/hydrate/internal/reminder"
	"github.com/sadopc/hydrate/internal/store"
)

// runtime holds what every command needs: config, logger and the store.
type runtime struct {
	cfg     *config.Config
	logger  zerolog.Logger
	logFile io.Closer
	store   *store.Store
	metrics *metrics.Server
}

func newRuntime() (*runtime, error) {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if simulate {
		cfg.Device.Simulate = true
	}

	// Setup logger
	logger, logFile, err := setupLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Bool("simulate", cfg.Device.Simulate).
		Msg("Starting hydrate")

	s, err := store.New(cfg.Storage.Path)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	logger.Info().Str("path", cfg.Storage.Path).Msg("Database initialized")

	return &runtime{cfg: cfg, logger: logger, logFile: logFile, store: s}, nil
}

func (rt *runtime) Close() {
	if rt.metrics != nil {
		if err := rt.metrics.Stop(); err != nil {
			rt.logger.Error().Err(err).Msg("Failed to stop metrics server")
		}
	}
	if err := rt.store.Close(); err != nil {
		rt.logger.Error().Err(err).Msg("Failed to close database")
	}
	if rt.logFile != nil {
		rt.logFile.Close()
	}
}

func (rt *runtime) startMetrics() error {
	if rt.cfg.Metrics.Addr == "" {
		return nil
	}
	srv := metrics.NewServer(rt.cfg.Metrics.Addr, rt.logger)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}
	rt.metrics = srv
	return nil
}

// interval is the countdown the terminal UI starts with: the one saved from
// the settings view, else the configured one.
func (rt *runtime) interval() int {
	return rt.store.GetInterval(rt.cfg.Reminder.Interval)
}

// transport is the assembled command path. ble is nil when simulating.
type transport struct {
	sink    reminder.CommandSink
	ble     *device.BLE
	breaker *device.Breaker
}

// describe summarizes the link under the connection status line.
func (tr *transport) describe() string {
	link := "Simulated bottle"
	if tr.ble != nil {
		link = "No bottle attached"
		if tr.ble.Connected() {
			link = "Bottle " + tr.ble.Address()
		}
	}
	return link + " · circuit " + tr.breaker.State()
}

// commandSink builds the transport chain: instrumentation, then the circuit
// breaker, then the bottle or its simulator.
func (rt *runtime) commandSink(status reminder.StatusSink) (*transport, error) {
	var (
		inner reminder.CommandSink
		ble   *device.BLE
	)
	if rt.cfg.Device.Simulate {
		inner = device.NewSimulator()
	} else {
		b, err := device.NewBLE(device.BLEConfig{
			Name:               rt.cfg.Device.Name,
			ServiceUUID:        rt.cfg.Device.ServiceUUID,
			CharacteristicUUID: rt.cfg.Device.CharacteristicUUID,
		}, status, rt.logger)
		if err != nil {
			return nil, err
		}
		inner, ble = b, b
	}

	breaker := device.NewBreaker(inner, device.BreakerConfig{
		MaxFailures: rt.cfg.Device.Breaker.MaxFailures,
		Timeout:     rt.cfg.Device.Breaker.Timeout,
	}, rt.logger)

	return &transport{
		sink:    device.NewInstrumented(breaker, rt.store, rt.logger),
		ble:     ble,
		breaker: breaker,
	}, nil
}

// statusLogger mirrors status lines into the log and the remaining gauge.
func (rt *runtime) statusLogger() reminder.StatusSink {
	logger := rt.logger.With().Str("component", "status").Logger()
	return reminder.StatusFunc(func(topic reminder.Topic, text string) {
		if topic == reminder.TopicConnection {
			logger.Info().Str("topic", topic.String()).Msg(text)
			return
		}
		logger.Debug().Str("topic", topic.String()).Msg(text)
	})
}

// observer records each alarm in the store and the metrics, and keeps the
// remaining gauge current. ctrl is set once the controller exists.
type observer struct {
	store  *store.Store
	ctrl   *reminder.Controller
	logger zerolog.Logger
}

func (o *observer) Alarm() {
	metrics.AlarmsTotal.Inc()

	interval := reminder.DefaultInterval
	if o.ctrl != nil {
		interval = o.ctrl.Snapshot().Interval
	}
	if _, err := o.store.RecordAlarm(interval); err != nil {
		o.logger.Error().Err(err).Msg("Failed to record alarm")
	}
	o.logger.Info().Int("interval", interval).Msg("Time to drink water")
}

func (o *observer) SetStatus(topic reminder.Topic, _ string) {
	if topic != reminder.TopicReminder || o.ctrl == nil {
		return
	}
	sess := o.ctrl.Snapshot()
	if !sess.Running {
		metrics.ReminderRemaining.Set(0)
		return
	}
	metrics.ReminderRemaining.Set(float64(sess.Remaining))
}

func setupLogger(cfg config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	var (
		out    io.Writer
		closer io.Closer
	)
	switch cfg.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, NoColor: closer != nil}).With().Timestamp().Logger(), closer, nil
	}

	// Default to JSON
	return zerolog.New(out).With().Timestamp().Logger(), closer, nil
}

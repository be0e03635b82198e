package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sadopc/hydrate/internal/reminder"
)

var headlessInterval int

var headlessCmd = &cobra.Command{
	Use:   "headless",
	Short: "Run reminders without the terminal UI",
	Long: `Run the countdown on the wall clock until interrupted. Alarms are printed
to stdout with a terminal bell; everything else goes to the log.`,
	RunE: runHeadless,
}

func init() {
	headlessCmd.Flags().IntVar(&headlessInterval, "interval", 0, "Reminder interval in seconds (default from config)")
	rootCmd.AddCommand(headlessCmd)
}

func runHeadless(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	interval := rt.cfg.Reminder.Interval
	if headlessInterval != 0 {
		interval = headlessInterval
	}

	console := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	obs := &observer{store: rt.store, logger: rt.logger}
	status := reminder.Statuses(obs, rt.statusLogger(), consoleConnection(console))

	tr, err := rt.commandSink(status)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if ble := tr.ble; ble != nil {
		connectCtx, cancel := context.WithTimeout(ctx, rt.cfg.Device.ScanTimeout)
		if err := ble.Connect(connectCtx); err != nil {
			rt.logger.Warn().Err(err).Msg("Bottle not connected, running without it")
		}
		cancel()
		defer ble.Disconnect()
	}
	console.Info().Msg(tr.describe())

	bell := reminder.AlarmFunc(func() {
		console.Info().Msg("Time to drink water! 💧")
		fmt.Fprint(os.Stdout, "\a")
	})

	ctrl := reminder.NewController(reminder.NewTickerClock(nil), tr.sink,
		reminder.WithStatusSink(status),
		reminder.WithAlarmSink(reminder.Alarms(obs, bell)),
		reminder.WithLogger(rt.logger),
		reminder.WithSendTimeout(rt.cfg.Device.SendTimeout),
	)
	obs.ctrl = ctrl
	defer ctrl.Close()

	if err := rt.startMetrics(); err != nil {
		return err
	}

	startedAt := time.Now()
	if today, err := rt.store.GetTodayAlarms(); err == nil && today > 0 {
		console.Info().Int("today", today).Msg("Reminders already fired today")
	}

	if err := ctrl.Start(ctx, interval); err != nil {
		if !reminder.IsTransport(err) {
			return err
		}
		rt.logger.Warn().Err(err).Msg("Bottle did not receive START")
	}
	console.Info().Str("every", reminder.FormatRemaining(interval)).Msg("Reminders running, press Ctrl+C to stop")

	<-ctx.Done()

	console.Info().Msg("Stopping")
	if err := ctrl.Stop(context.Background()); err != nil {
		rt.logger.Warn().Err(err).Msg("Bottle did not receive STOP")
	}
	if n, err := rt.store.CountAlarmsSince(startedAt); err == nil {
		console.Info().Int("alarms", n).Msg("Session finished")
	}
	return nil
}

// consoleConnection prints connection changes for someone watching the terminal.
func consoleConnection(console zerolog.Logger) reminder.StatusSink {
	var (
		mu   sync.Mutex
		last string
	)
	return reminder.StatusFunc(func(topic reminder.Topic, text string) {
		if topic != reminder.TopicConnection {
			return
		}
		mu.Lock()
		changed := text != last
		last = text
		mu.Unlock()
		if changed {
			console.Info().Msg(text)
		}
	})
}

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/hydrate/internal/reminder"
	"github.com/sadopc/hydrate/internal/tui"
)

var (
	version    = "dev"
	configPath string
	simulate   bool
)

// rootCmd runs the terminal UI when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hydrate",
	Short: "hydrate - drink-water reminders synced to a Bluetooth bottle",
	Long: `hydrate counts down to your next drink of water, rings when it is time,
and keeps a Bluetooth LE smart bottle's own countdown in step with it.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default ~/.config/hydrate/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Use a simulated bottle instead of Bluetooth")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	board := tui.NewBoard()
	obs := &observer{store: rt.store, logger: rt.logger}
	status := reminder.Statuses(board, obs, rt.statusLogger())

	tr, err := rt.commandSink(status)
	if err != nil {
		return err
	}

	clk := &reminder.ManualClock{}
	ctrl := reminder.NewController(clk, tr.sink,
		reminder.WithStatusSink(status),
		reminder.WithAlarmSink(reminder.Alarms(board, obs)),
		reminder.WithLogger(rt.logger),
		reminder.WithSendTimeout(rt.cfg.Device.SendTimeout),
		reminder.WithInterval(rt.interval()),
	)
	obs.ctrl = ctrl
	defer ctrl.Close()

	if err := rt.startMetrics(); err != nil {
		return err
	}

	opts := tui.Options{
		Store:          rt.store,
		Controller:     ctrl,
		Clock:          clk,
		Board:          board,
		ConnectTimeout: rt.cfg.Device.ScanTimeout,
		Bell:           os.Stderr,
		Link:           tr.describe,
		Logger:         rt.logger,
	}
	if tr.ble != nil {
		opts.Connector = tr.ble
		defer tr.ble.Disconnect()
	}

	p := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

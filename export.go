package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/hydrate/internal/export"
	"github.com/sadopc/hydrate/internal/store"
)

var (
	exportFormat string
	exportOut    string
	exportDays   int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export alarm history as CSV or JSON",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Output format: csv or json")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default hydrate-export-<date>.<format>)")
	exportCmd.Flags().IntVar(&exportDays, "days", 0, "Only export the last N days (0 = everything)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "csv" && exportFormat != "json" {
		return fmt.Errorf("unknown format %q (want csv or json)", exportFormat)
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	var filter store.AlarmFilter
	if exportDays > 0 {
		from := time.Now().UTC().AddDate(0, 0, -exportDays)
		filter.From = &from
	}
	alarms, err := rt.store.ListAlarms(filter)
	if err != nil {
		return err
	}

	path := exportOut
	if path == "" {
		path = fmt.Sprintf("hydrate-export-%s.%s", time.Now().Format("2006-01-02"), exportFormat)
	}

	if exportFormat == "csv" {
		err = export.ToCSV(alarms, path)
	} else {
		err = export.ToJSON(alarms, path)
	}
	if err != nil {
		return err
	}

	abs, _ := filepath.Abs(path)
	rt.logger.Info().Str("path", abs).Int("alarms", len(alarms)).Msg("Exported alarm history")
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d alarms to %s\n", len(alarms), abs)
	return nil
}

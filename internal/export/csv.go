package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/hydrate/internal/store"
)

func ToCSV(alarms []store.Alarm, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "Fired", "Interval (s)", "Interval", "Acknowledged", "Response (s)"}); err != nil {
		return err
	}

	for _, a := range alarms {
		ackStr, respStr := "", ""
		if a.AcknowledgedAt != nil {
			ackStr = a.AcknowledgedAt.Local().Format(time.RFC3339)
			respStr = fmt.Sprintf("%d", responseSeconds(a))
		}

		row := []string{
			fmt.Sprintf("%d", a.ID),
			a.FiredAt.Local().Format(time.RFC3339),
			fmt.Sprintf("%d", a.IntervalSeconds),
			formatDuration(int64(a.IntervalSeconds)),
			ackStr,
			respStr,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// responseSeconds is how long the alarm waited for a drink.
func responseSeconds(a store.Alarm) int64 {
	if a.AcknowledgedAt == nil {
		return 0
	}
	d := int64(a.AcknowledgedAt.Sub(a.FiredAt).Seconds())
	if d < 0 {
		return 0
	}
	return d
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

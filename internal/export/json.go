package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/hydrate/internal/store"
)

type jsonExport struct {
	ExportedAt   string      `json:"exported_at"`
	Count        int         `json:"count"`
	Acknowledged int         `json:"acknowledged"`
	Alarms       []jsonAlarm `json:"alarms"`
}

type jsonAlarm struct {
	ID             int64  `json:"id"`
	FiredAt        string `json:"fired_at"`
	IntervalSec    int    `json:"interval_seconds"`
	Interval       string `json:"interval"`
	AcknowledgedAt string `json:"acknowledged_at,omitempty"`
	ResponseSec    *int64 `json:"response_seconds,omitempty"`
}

func ToJSON(alarms []store.Alarm, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(alarms),
		Alarms:     []jsonAlarm{},
	}

	for _, a := range alarms {
		entry := jsonAlarm{
			ID:          a.ID,
			FiredAt:     a.FiredAt.Local().Format(time.RFC3339),
			IntervalSec: a.IntervalSeconds,
			Interval:    formatDuration(int64(a.IntervalSeconds)),
		}
		if a.AcknowledgedAt != nil {
			resp := responseSeconds(a)
			entry.AcknowledgedAt = a.AcknowledgedAt.Local().Format(time.RFC3339)
			entry.ResponseSec = &resp
			export.Acknowledged++
		}
		export.Alarms = append(export.Alarms, entry)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

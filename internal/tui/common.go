package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/hydrate/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewBottle viewState = iota
	viewHistory
	viewSettings
)

var viewNames = []string{"Bottle", "History", "Settings"}

// alarmBanner is shown until the next keypress after a reminder fires.
const alarmBanner = "Time to drink water! 💧"

// --- Messages ---

// commandDoneMsg reports the outcome of a controller call run off the event loop.
type commandDoneMsg struct {
	action string
	err    error
}

type connectDoneMsg struct {
	err error
}

type drinkMsg struct {
	alarm *store.Alarm
	err   error
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

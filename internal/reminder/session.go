package reminder

import "fmt"

// Session is the countdown state owned by a Controller.
type Session struct {
	Remaining  int // seconds, always within [0, Interval]
	Interval   int // seconds
	Running    bool
	Generation uint64
}

// Fraction is Remaining/Interval, 0 when no interval is configured.
func (s Session) Fraction() float64 {
	if s.Interval <= 0 {
		return 0
	}
	return float64(s.Remaining) / float64(s.Interval)
}

const (
	StoppedText      = "Next reminder: stopped"
	ConnectedText    = "Bluetooth: Connected"
	DisconnectedText = "Bluetooth: Disconnected"
)

// ReminderText is the status line shown while the countdown runs.
func ReminderText(remaining int) string {
	return "Next reminder: " + FormatRemaining(remaining)
}

// FormatRemaining renders seconds as "2 minutes 5 seconds", dropping zero
// seconds once the value reaches a minute.
func FormatRemaining(secs int) string {
	if secs < 0 {
		secs = 0
	}
	if secs < 60 {
		return plural(secs, "second")
	}
	m, s := secs/60, secs%60
	if s == 0 {
		return plural(m, "minute")
	}
	return plural(m, "minute") + " " + plural(s, "second")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

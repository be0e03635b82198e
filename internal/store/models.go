package store

import "time"

// Alarm is one zero crossing of the reminder countdown.
type Alarm struct {
	ID              int64
	FiredAt         time.Time
	IntervalSeconds int
	AcknowledgedAt  *time.Time
}

// CommandLog is one write attempted to the bottle.
type CommandLog struct {
	ID      int64
	Command string
	OK      bool
	Error   string
	SentAt  time.Time
}

type Setting struct {
	Key   string
	Value string
}

// AlarmFilter is used to filter alarms in queries.
type AlarmFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

// DailyAlarms is the number of reminders per day.
type DailyAlarms struct {
	Date         string
	Count        int
	Acknowledged int
}

package reminder

import "context"

// CommandSink transmits a command to the bottle. Implementations return an
// error wrapping ErrTransportUnavailable or ErrTransportError on failure.
type CommandSink interface {
	Send(ctx context.Context, cmd Command) error
}

// Topic selects which status line a message belongs to.
type Topic int

const (
	TopicReminder Topic = iota
	TopicConnection
)

func (t Topic) String() string {
	switch t {
	case TopicReminder:
		return "reminder"
	case TopicConnection:
		return "connection"
	}
	return "unknown"
}

// StatusSink receives human readable status lines.
type StatusSink interface {
	SetStatus(topic Topic, text string)
}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(topic Topic, text string)

func (f StatusFunc) SetStatus(topic Topic, text string) { f(topic, text) }

// AlarmSink is notified each time the countdown crosses zero.
type AlarmSink interface {
	Alarm()
}

// AlarmFunc adapts a function to AlarmSink.
type AlarmFunc func()

func (f AlarmFunc) Alarm() { f() }

type multiAlarm []AlarmSink

func (m multiAlarm) Alarm() {
	for _, s := range m {
		s.Alarm()
	}
}

// Alarms fans one alarm out to every sink in order. Nil sinks are skipped.
func Alarms(sinks ...AlarmSink) AlarmSink {
	var m multiAlarm
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

type multiStatus []StatusSink

func (m multiStatus) SetStatus(topic Topic, text string) {
	for _, s := range m {
		s.SetStatus(topic, text)
	}
}

// Statuses fans status lines out to every sink in order. Nil sinks are skipped.
func Statuses(sinks ...StatusSink) StatusSink {
	var m multiStatus
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

package tui

import (
	"sync"

	"github.com/sadopc/hydrate/internal/reminder"
)

// Board collects controller output for the UI. The controller may call it
// from command goroutines, so the model copies it out under lock on each
// tick instead of receiving program messages.
type Board struct {
	mu         sync.Mutex
	reminder   string
	connection string
	alarms     int
}

// NewBoard returns a board showing the idle state.
func NewBoard() *Board {
	return &Board{
		reminder:   reminder.StoppedText,
		connection: reminder.DisconnectedText,
	}
}

func (b *Board) SetStatus(topic reminder.Topic, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch topic {
	case reminder.TopicReminder:
		b.reminder = text
	case reminder.TopicConnection:
		b.connection = text
	}
}

func (b *Board) Alarm() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alarms++
}

// Lines returns the current reminder and connection status lines.
func (b *Board) Lines() (reminderLine, connectionLine string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reminder, b.connection
}

// TakeAlarms returns the alarms raised since the last call and resets the count.
func (b *Board) TakeAlarms() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.alarms
	b.alarms = 0
	return n
}

package store

import (
	"fmt"
	"time"
)

// RecordCommand logs one write to the bottle. sendErr is the transport
// outcome, nil on success.
func (s *Store) RecordCommand(command string, sendErr error) error {
	ok, msg := 1, ""
	if sendErr != nil {
		ok, msg = 0, sendErr.Error()
	}
	_, err := s.db.Exec(
		`INSERT INTO commands (command, ok, error, sent_at) VALUES (?, ?, ?, ?)`,
		command, ok, msg, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record command: %w", err)
	}
	return nil
}

// ListCommands returns the newest commands first.
func (s *Store) ListCommands(limit int) ([]CommandLog, error) {
	query := `SELECT id, command, ok, error, sent_at FROM commands ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	defer rows.Close()

	var logs []CommandLog
	for rows.Next() {
		var c CommandLog
		var ok int
		var sentAt string
		if err := rows.Scan(&c.ID, &c.Command, &ok, &c.Error, &sentAt); err != nil {
			return nil, err
		}
		c.OK = ok == 1
		c.SentAt, _ = time.Parse(time.RFC3339, sentAt)
		logs = append(logs, c)
	}
	return logs, rows.Err()
}

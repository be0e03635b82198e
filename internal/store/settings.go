package store

import (
	"fmt"
	"strconv"
)

const (
	SettingInterval  = "reminder_interval"
	SettingDailyGoal = "daily_goal"
)

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// GetInterval returns the stored reminder interval in seconds, or fallback
// when unset or not a positive integer.
func (s *Store) GetInterval(fallback int) int {
	v, err := s.GetSetting(SettingInterval)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func (s *Store) SetInterval(secs int) error {
	if secs <= 0 {
		return fmt.Errorf("set interval: must be positive, got %d", secs)
	}
	return s.SetSetting(SettingInterval, strconv.Itoa(secs))
}

package store

import (
	"database/sql"
	"fmt"
	"time"
)

func (s *Store) RecordAlarm(intervalSeconds int) (*Alarm, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`INSERT INTO alarms (fired_at, interval_seconds) VALUES (?, ?)`,
		now, intervalSeconds,
	)
	if err != nil {
		return nil, fmt.Errorf("record alarm: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetAlarm(id)
}

func (s *Store) GetAlarm(id int64) (*Alarm, error) {
	row := s.db.QueryRow(
		`SELECT id, fired_at, interval_seconds, acknowledged_at FROM alarms WHERE id = ?`, id,
	)
	a, err := scanAlarm(row)
	if err != nil {
		return nil, fmt.Errorf("get alarm %d: %w", id, err)
	}
	return a, nil
}

// AcknowledgeLatestAlarm marks the newest unacknowledged alarm as drunk.
// It returns nil, nil when every alarm is already acknowledged.
func (s *Store) AcknowledgeLatestAlarm() (*Alarm, error) {
	var id int64
	err := s.db.QueryRow(
		`SELECT id FROM alarms WHERE acknowledged_at IS NULL ORDER BY id DESC LIMIT 1`,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find unacknowledged alarm: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.Exec(`UPDATE alarms SET acknowledged_at = ? WHERE id = ?`, now, id); err != nil {
		return nil, fmt.Errorf("acknowledge alarm %d: %w", id, err)
	}
	return s.GetAlarm(id)
}

func (s *Store) ListAlarms(f AlarmFilter) ([]Alarm, error) {
	query := `SELECT id, fired_at, interval_seconds, acknowledged_at FROM alarms WHERE 1=1`
	var args []any

	if f.From != nil {
		query += ` AND fired_at >= ?`
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		query += ` AND fired_at < ?`
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY fired_at DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	defer rows.Close()

	var alarms []Alarm
	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, err
		}
		alarms = append(alarms, *a)
	}
	return alarms, rows.Err()
}

func (s *Store) GetDailyAlarms(from, to time.Time) ([]DailyAlarms, error) {
	rows, err := s.db.Query(`
		SELECT date(fired_at) AS day, COUNT(*), COUNT(acknowledged_at)
		FROM alarms
		WHERE fired_at >= ? AND fired_at < ?
		GROUP BY day
		ORDER BY day`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("daily alarms: %w", err)
	}
	defer rows.Close()

	var days []DailyAlarms
	for rows.Next() {
		var d DailyAlarms
		if err := rows.Scan(&d.Date, &d.Count, &d.Acknowledged); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// CountAlarmsSince counts alarms fired at or after since.
func (s *Store) CountAlarmsSince(since time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM alarms WHERE fired_at >= ?`,
		since.UTC().Format(time.RFC3339),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count alarms: %w", err)
	}
	return n, nil
}

func (s *Store) GetTodayAlarms() (int, error) {
	now := time.Now().UTC()
	return s.CountAlarmsSince(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlarm(sc scanner) (*Alarm, error) {
	a := &Alarm{}
	var firedAt string
	var ackAt sql.NullString
	if err := sc.Scan(&a.ID, &firedAt, &a.IntervalSeconds, &ackAt); err != nil {
		return nil, err
	}
	a.FiredAt, _ = time.Parse(time.RFC3339, firedAt)
	if ackAt.Valid {
		t, _ := time.Parse(time.RFC3339, ackAt.String)
		a.AcknowledgedAt = &t
	}
	return a, nil
}

package telemetry

import (
	"fmt"
	"time"
)

// IncrementErrorCounter bumps the persisted count for kind (one of
// spec.md §7's closed error kinds: BadChecksum, MalformedSentence,
// FixBelowMinimum, NoGuidance, TurnSynthesisFailed, OutOfBoundary,
// TransportSendFailed, PersistenceIOError).
func (db *DB) IncrementErrorCounter(kind string) error {
	_, err := db.Exec(`
		INSERT INTO cycle_error_counter (kind, count) VALUES (?, 1)
		ON CONFLICT(kind) DO UPDATE SET count = count + 1`, kind)
	if err != nil {
		return fmt.Errorf("telemetry: increment counter %s: %w", kind, err)
	}
	return nil
}

// ErrorCounters returns every recorded kind and its cumulative count.
func (db *DB) ErrorCounters() (map[string]int64, error) {
	rows, err := db.Query(`SELECT kind, count FROM cycle_error_counter`)
	if err != nil {
		return nil, fmt.Errorf("telemetry: query counters: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("telemetry: scan counter row: %w", err)
		}
		out[kind] = count
	}
	return out, rows.Err()
}

// RecordLatencySample persists one cycle's timing breakdown.
func (db *DB) RecordLatencySample(at time.Time, total, parse, guidance time.Duration) error {
	_, err := db.Exec(`
		INSERT INTO latency_sample (recorded_unix_nanos, total_nanos, parse_nanos, guidance_nanos)
		VALUES (?, ?, ?, ?)`, at.UnixNano(), total.Nanoseconds(), parse.Nanoseconds(), guidance.Nanoseconds())
	if err != nil {
		return fmt.Errorf("telemetry: record latency sample: %w", err)
	}
	return nil
}

// RecordNotification persists one user-visible notification (spec.md
// §7: "one notification per 10 rejected fixes").
func (db *DB) RecordNotification(at time.Time, kind, message string) error {
	_, err := db.Exec(`
		INSERT INTO notification (recorded_unix_nanos, kind, message) VALUES (?, ?, ?)`,
		at.UnixNano(), kind, message)
	if err != nil {
		return fmt.Errorf("telemetry: record notification: %w", err)
	}
	return nil
}

// RecentNotifications returns up to limit of the most recent
// notifications, newest first.
func (db *DB) RecentNotifications(limit int) ([]Notification, error) {
	rows, err := db.Query(`
		SELECT recorded_unix_nanos, kind, message FROM notification
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("telemetry: query notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var nanos int64
		if err := rows.Scan(&nanos, &n.Kind, &n.Message); err != nil {
			return nil, fmt.Errorf("telemetry: scan notification row: %w", err)
		}
		n.At = time.Unix(0, nanos)
		out = append(out, n)
	}
	return out, rows.Err()
}

// Notification is one entry from the notification log.
type Notification struct {
	At      time.Time
	Kind    string
	Message string
}

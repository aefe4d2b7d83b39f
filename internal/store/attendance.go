package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rollcall/internal/services"
)

// RecordPresence appends an attendance record for the person unless their
// cooldown window is still running. The check-then-append is atomic per
// person: a keyed mutex serializes concurrent confirmations so that N
// simultaneous calls inside one window yield exactly one accepted record.
//
// A rejection is a normal outcome. A replay with a timestamp identical to the
// latest record is treated as a duplicate and rejected regardless of the
// cooldown, which keeps the write path idempotent.
func (s *Store) RecordPresence(ctx context.Context, personID string, at time.Time, cooldown time.Duration) (PresenceResult, error) {
	person, err := s.GetPerson(ctx, personID)
	if err != nil {
		return PresenceResult{}, err
	}

	mu := s.lockFor(personID)
	mu.Lock()
	defer mu.Unlock()

	at = at.UTC()
	last, err := s.latestRecord(ctx, personID)
	if err != nil {
		return PresenceResult{}, err
	}

	if last != nil {
		if last.RecordedAt.Equal(at) {
			return PresenceResult{Accepted: false, Remaining: 0}, nil
		}
		elapsed := at.Sub(last.RecordedAt)
		if elapsed < cooldown {
			return PresenceResult{Accepted: false, Remaining: cooldown - elapsed}, nil
		}
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO attendance_records (person_id, category, recorded_at) VALUES (?, ?, ?)`,
		personID,
		string(person.Category),
		formatTime(at),
	)
	if err != nil {
		// The UNIQUE(person_id, recorded_at) constraint cannot fire while the
		// per-person lock is held; if it does, concurrency control is broken.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return PresenceResult{}, services.Wrap(services.ErrConflict, "ledger", "record presence", personID, err)
		}
		return PresenceResult{}, fmt.Errorf("insert attendance record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return PresenceResult{}, fmt.Errorf("last insert id: %w", err)
	}

	record := &AttendanceRecord{
		ID:         id,
		PersonID:   personID,
		Category:   person.Category,
		RecordedAt: at,
	}
	return PresenceResult{Accepted: true, Record: record}, nil
}

// AttendanceForPerson returns the person's records within [from, to],
// timestamp ascending.
func (s *Store) AttendanceForPerson(ctx context.Context, personID string, from, to time.Time) ([]*AttendanceRecord, error) {
	if _, err := s.GetPerson(ctx, personID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM attendance_records
         WHERE person_id = ? AND recorded_at >= ? AND recorded_at <= ?
         ORDER BY recorded_at`,
		personID,
		formatTime(from),
		formatTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("query attendance by person: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// AttendanceForDay returns all records whose timestamp falls on the given UTC
// calendar day, timestamp ascending.
func (s *Store) AttendanceForDay(ctx context.Context, day time.Time) ([]*AttendanceRecord, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM attendance_records
         WHERE recorded_at >= ? AND recorded_at < ?
         ORDER BY recorded_at`,
		formatTime(start),
		formatTime(end),
	)
	if err != nil {
		return nil, fmt.Errorf("query attendance by day: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *Store) latestRecord(ctx context.Context, personID string) (*AttendanceRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM attendance_records WHERE person_id = ? ORDER BY recorded_at DESC LIMIT 1`,
		personID,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest record: %w", err)
	}
	return record, nil
}

const recordColumns = "id, person_id, category, recorded_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*AttendanceRecord, error) {
	var (
		id          int64
		personID    string
		category    string
		recordedRaw string
	)
	if err := scanner.Scan(&id, &personID, &category, &recordedRaw); err != nil {
		return nil, err
	}
	record := &AttendanceRecord{ID: id, PersonID: personID, Category: Category(category)}
	if recorded, err := parseTimeString(recordedRaw); err == nil {
		record.RecordedAt = recorded
	}
	return record, nil
}

func collectRecords(rows *sql.Rows) ([]*AttendanceRecord, error) {
	var records []*AttendanceRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

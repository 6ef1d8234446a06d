package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thatsimonsguy/sprinkler-controller/internal/model"
)

// TimerStore is the persistence adapter consumed by the scheduler: load all
// records at startup, save or delete one record per management operation.
type TimerStore struct {
	db *sql.DB
}

func NewTimerStore(dbConn *sql.DB) *TimerStore {
	return &TimerStore{db: dbConn}
}

// LoadAll retrieves every persisted timer, ordered by id.
func (s *TimerStore) LoadAll() ([]model.Timer, error) {
	rows, err := s.db.Query(`SELECT id, name, description, output_id, start_time, duration_seconds, enabled, days FROM timers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query timers: %w", err)
	}
	defer rows.Close()

	var timers []model.Timer
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}
		timers = append(timers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timers: %w", err)
	}
	return timers, nil
}

// Save upserts one timer record.
func (s *TimerStore) Save(t model.Timer) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO timers (id, name, description, output_id, start_time, duration_seconds, enabled, days) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, t.OutputID, t.StartTime.String(), int(t.Duration/time.Second), t.Enabled, marshalJSON(t.Days))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("save timer %s: %w", t.ID, err)
	}
	return tx.Commit()
}

// Delete removes one timer record. Deleting an id that is not present is not
// an error; the scheduler's in-memory set is authoritative for NotFound.
func (s *TimerStore) Delete(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	_, err = tx.Exec(`DELETE FROM timers WHERE id = ?`, id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("delete timer %s: %w", id, err)
	}
	return tx.Commit()
}

// GetTimer retrieves a single timer record by id.
func (s *TimerStore) GetTimer(id string) (*model.Timer, error) {
	row := s.db.QueryRow(`SELECT id, name, description, output_id, start_time, duration_seconds, enabled, days FROM timers WHERE id = ?`, id)
	t, err := scanTimer(row)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTimer(row rowScanner) (model.Timer, error) {
	var t model.Timer
	var startTime, days string
	var durationSeconds int

	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.OutputID, &startTime, &durationSeconds, &t.Enabled, &days)
	if err != nil {
		return model.Timer{}, fmt.Errorf("failed to scan timer: %w", err)
	}

	t.StartTime, err = model.ParseTimeOfDay(startTime)
	if err != nil {
		return model.Timer{}, fmt.Errorf("timer %s has malformed start_time %q: %w", t.ID, startTime, err)
	}
	t.Duration = time.Duration(durationSeconds) * time.Second
	json.Unmarshal([]byte(days), &t.Days)
	return t, nil
}

package db

import (
	"fmt"
	"time"
)

// ListTimersCLI prints every persisted timer straight from a database file.
// Used by cmd/debug against a stopped controller.
func ListTimersCLI(dbPath string) error {
	dbConn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	timers, err := NewTimerStore(dbConn).LoadAll()
	if err != nil {
		return err
	}

	if len(timers) == 0 {
		fmt.Println("No timers configured")
		return nil
	}
	for _, t := range timers {
		days := "every day"
		if len(t.Days) > 0 {
			days = fmt.Sprint(t.Days)
		}
		fmt.Printf("%s  %-20s  output=%s  at=%s  for=%s  enabled=%v  days=%s\n",
			t.ID, t.Name, t.OutputID, t.StartTime, t.Duration.Round(time.Second), t.Enabled, days)
	}
	return nil
}

// SetTimerEnabledCLI flips the enabled flag on one timer record by id.
func SetTimerEnabledCLI(dbPath, id string, enabled bool) error {
	dbConn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	res, err := dbConn.Exec(`UPDATE timers SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("update timer enabled: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("no timer with id %s", id)
	}
	return nil
}

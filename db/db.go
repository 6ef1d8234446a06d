package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS timers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	output_id TEXT NOT NULL,
	start_time TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL,
	enabled BOOLEAN NOT NULL,
	days TEXT NOT NULL DEFAULT '[]'
);
`

// Open opens the SQLite database and applies the schema.
func Open(path string) (*sql.DB, error) {
	dbConn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := dbConn.Exec(schema); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return dbConn, nil
}

func marshalJSON(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}

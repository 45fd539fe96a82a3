package db

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS dispatch_log (
		id TEXT PRIMARY KEY,
		caller_id TEXT NOT NULL,
		intent TEXT NOT NULL,
		sheet TEXT NOT NULL,
		body_json TEXT NOT NULL,
		sink_status INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dispatch_log_caller
		ON dispatch_log(caller_id, created_at)`,
}

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			CREATE TABLE IF NOT EXISTS scans (
				id TEXT PRIMARY KEY,
				file TEXT NOT NULL,
				pattern TEXT NOT NULL,
				threshold TEXT NOT NULL DEFAULT '',
				started_at_ns INTEGER NOT NULL,
				ended_at_ns INTEGER NOT NULL,
				duration_ns INTEGER NOT NULL,
				lines INTEGER NOT NULL,
				headers INTEGER NOT NULL,
				qualifying INTEGER NOT NULL
			);

			CREATE TABLE IF NOT EXISTS scan_levels (
				scan_id TEXT NOT NULL,
				level TEXT NOT NULL,
				hits INTEGER NOT NULL,
				PRIMARY KEY (scan_id, level),
				FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
			);

			CREATE TABLE IF NOT EXISTS scan_messages (
				scan_id TEXT NOT NULL,
				message TEXT NOT NULL,
				hits INTEGER NOT NULL,
				PRIMARY KEY (scan_id, message),
				FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
			);
		`,
	},
	{
		Version: 2,
		Name:    "scan_lookup_indexes",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_scans_file_started ON scans(file, started_at_ns DESC);
			CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at_ns DESC);
		`,
	},
}

// runMigrations applies all migrations newer than the recorded schema version.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at_ns INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at_ns) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now().UnixNano(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

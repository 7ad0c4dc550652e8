package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current applied schema revision. Migrate is
// idempotent: it may be called against a database already at this
// version, or one freshly created, with the same effect.
const SchemaVersion = 1

// Migrate creates the schema (if absent) and brings schema_meta up to
// SchemaVersion. It runs inside a single transaction so a failure never
// leaves the database partially migrated.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			schema_version INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS execution (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			tag TEXT,
			created_by TEXT,
			time_created INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_execution_time_created ON execution(time_created)`,
		`CREATE INDEX IF NOT EXISTS idx_execution_name ON execution(name)`,
		`CREATE INDEX IF NOT EXISTS idx_execution_created_by ON execution(created_by)`,
		`CREATE TABLE IF NOT EXISTS test_result (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			execution_id INTEGER NOT NULL REFERENCES execution(id),
			name TEXT NOT NULL,
			platform TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL,
			execution_time_ms INTEGER,
			counter INTEGER NOT NULL DEFAULT 1,
			log TEXT,
			screenshot_id TEXT,
			created_by TEXT,
			time_created INTEGER NOT NULL,
			UNIQUE(execution_id, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_test_result_execution_id ON test_result(execution_id)`,
		`CREATE INDEX IF NOT EXISTS idx_test_result_time_created ON test_result(time_created)`,
		`CREATE INDEX IF NOT EXISTS idx_test_result_status ON test_result(status)`,
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: apply schema statement: %w", err)
		}
	}

	var current int
	err = tx.QueryRowContext(ctx, `SELECT schema_version FROM schema_meta WHERE id = 1`).Scan(&current)
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_meta(id, schema_version) VALUES (1, ?)`, SchemaVersion); err != nil {
			return fmt.Errorf("store: seed schema_meta: %w", err)
		}
	case err != nil:
		return fmt.Errorf("store: read schema_meta: %w", err)
	case current < SchemaVersion:
		if _, err := tx.ExecContext(ctx, `UPDATE schema_meta SET schema_version = ? WHERE id = 1`, SchemaVersion); err != nil {
			return fmt.Errorf("store: bump schema_meta: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit migration: %w", err)
	}
	return nil
}

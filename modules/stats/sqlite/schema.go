package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements create the counter table. Module and sub use '' rather
// than NULL so the primary key is a plain four-column tuple.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS counters (
		counter    TEXT    NOT NULL,
		room       TEXT    NOT NULL DEFAULT '',
		module     TEXT    NOT NULL DEFAULT '',
		sub        TEXT    NOT NULL DEFAULT '',
		value      INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
		PRIMARY KEY (counter, room, module, sub)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_counters_room ON counters(room)`,
}

// migrate creates or updates the schema. All DDL is idempotent.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}
	return nil
}

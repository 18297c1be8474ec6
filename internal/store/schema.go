package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is the initial schema for the SQLite store.
const schemaV1 = `
-- One row per tempering run
CREATE TABLE IF NOT EXISTS runs (
    run_id           TEXT PRIMARY KEY,
    label            TEXT,
    levels           TEXT NOT NULL,  -- JSON array of level parameter values
    cutoff           REAL NOT NULL,
    base_temperature REAL NOT NULL,
    created_at       TEXT NOT NULL
);

-- Gauge-shifted weight vectors captured at Wang-Landau stage boundaries
CREATE TABLE IF NOT EXISTS weight_snapshots (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id        TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    step          INTEGER NOT NULL,
    stage         INTEGER NOT NULL,
    update_factor REAL NOT NULL,
    weights       TEXT NOT NULL,  -- JSON array, entry 0 always zero
    converged     INTEGER NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_run ON weight_snapshots(run_id, id);

CREATE TABLE IF NOT EXISTS schema_info (
    version INTEGER NOT NULL
);
`

// InitSchema creates tables if needed and records the schema version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_info`).Scan(&count); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if count == 0 {
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_info (version) VALUES (?)`, SchemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	}
	return nil
}

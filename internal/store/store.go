// Package store persists estimated weight vectors in SQLite. Each run gets
// a row, and every Wang-Landau stage boundary adds a snapshot of the
// gauge-shifted weights; the latest converged snapshot can seed a later run
// with pre-equilibrated weights.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// Run identifies one tempering run.
type Run struct {
	ID              string
	Label           string
	Levels          []float64
	Cutoff          float64
	BaseTemperature float64
	CreatedAt       time.Time
}

// Snapshot is one persisted weight vector.
type Snapshot struct {
	RunID        string
	Step         int
	Stage        int
	UpdateFactor float64
	Weights      []float64
	Converged    bool
	CreatedAt    time.Time
}

// Store persists runs and weight snapshots in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and runs
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun records a new run and returns it with a fresh ID.
func (s *Store) CreateRun(ctx context.Context, label string, levels []float64, cutoff, baseTemperature float64) (Run, error) {
	run := Run{
		ID:              uuid.New().String(),
		Label:           label,
		Levels:          levels,
		Cutoff:          cutoff,
		BaseTemperature: baseTemperature,
		CreatedAt:       time.Now().UTC(),
	}

	levelsJSON, err := json.Marshal(levels)
	if err != nil {
		return Run{}, fmt.Errorf("marshal levels: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, label, levels, cutoff, base_temperature, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Label, string(levelsJSON), run.Cutoff, run.BaseTemperature,
		run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// SaveSnapshot appends a weight snapshot to a run.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	weightsJSON, err := json.Marshal(snap.Weights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}

	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO weight_snapshots (run_id, step, stage, update_factor, weights, converged, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.RunID, snap.Step, snap.Stage, snap.UpdateFactor, string(weightsJSON),
		boolToInt(snap.Converged), createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot for a run.
func (s *Store) LatestSnapshot(ctx context.Context, runID string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, step, stage, update_factor, weights, converged, created_at
		 FROM weight_snapshots WHERE run_id = ? ORDER BY id DESC LIMIT 1`, runID)

	snap, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, fmt.Errorf("latest snapshot for %s: %w", runID, err)
	}
	return snap, nil
}

// ListRuns returns the most recent runs, newest first. Insertion order is
// used rather than created_at: RFC3339Nano trims trailing zeros from the
// fractional seconds, so the string column does not sort chronologically
// for near-simultaneous runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, label, levels, cutoff, base_temperature, created_at
		 FROM runs ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var levelsJSON, createdStr string
		if err := rows.Scan(&r.ID, &r.Label, &levelsJSON, &r.Cutoff, &r.BaseTemperature, &createdStr); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(levelsJSON), &r.Levels); err != nil {
			return nil, fmt.Errorf("unmarshal levels: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListSnapshots returns every snapshot of a run in capture order.
func (s *Store) ListSnapshots(ctx context.Context, runID string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, step, stage, update_factor, weights, converged, created_at
		 FROM weight_snapshots WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (Snapshot, error) {
	var snap Snapshot
	var weightsJSON, createdStr string
	var converged int

	err := row.Scan(&snap.RunID, &snap.Step, &snap.Stage, &snap.UpdateFactor,
		&weightsJSON, &converged, &createdStr)
	if err != nil {
		return Snapshot{}, err
	}
	if err := json.Unmarshal([]byte(weightsJSON), &snap.Weights); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal weights: %w", err)
	}
	snap.Converged = converged != 0
	snap.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return snap, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

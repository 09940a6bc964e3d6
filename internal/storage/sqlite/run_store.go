// Package sqlite persists tracker simulation runs and their per-step
// results to a SQLite database.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/banshee-data/particle.tracker/internal/monitoring"
	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tracker_runs (
	run_id            TEXT PRIMARY KEY,
	started_unix_nanos BIGINT NOT NULL,
	num_particles     INTEGER NOT NULL,
	num_targets       INTEGER NOT NULL,
	seed              BIGINT NOT NULL,
	notes             TEXT
);
CREATE TABLE IF NOT EXISTS tracker_steps (
	run_id            TEXT NOT NULL,
	step_index        INTEGER NOT NULL,
	ts_unix_nanos     BIGINT NOT NULL,
	measurement       TEXT NOT NULL,
	associations      TEXT NOT NULL,
	clutter_count     INTEGER NOT NULL,
	effective_sample_size DOUBLE NOT NULL,
	max_weight        DOUBLE NOT NULL,
	estimates         TEXT NOT NULL,
	resampled         INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, step_index)
);
CREATE INDEX IF NOT EXISTS idx_tracker_steps_run ON tracker_steps(run_id, ts_unix_nanos);
`

// Run describes one simulation or live tracking run.
type Run struct {
	RunID            string
	StartedUnixNanos int64
	NumParticles     int
	NumTargets       int
	Seed             int64
	Notes            string
}

// StepRecord captures the outcome of one measurement-update step:
// which origin each particle associated the measurement with, the
// weight health of the particle set, and the weighted posterior mean
// per target.
type StepRecord struct {
	RunID       string
	StepIndex   int
	TSUnixNanos int64

	// Measurement is the measurement vector for this step.
	Measurement []float64

	// Associations holds one entry per particle: 0 for clutter,
	// 1..NT for a target.
	Associations []int

	// ClutterCount is the number of particles that drew clutter.
	ClutterCount int

	// EffectiveSampleSize of the post-step normalized weights.
	EffectiveSampleSize float64

	// MaxWeight is the largest post-step particle weight.
	MaxWeight float64

	// Estimates[i] is the weighted posterior mean of target i.
	Estimates [][]float64

	// Resampled records whether resampling ran after this step.
	Resampled bool
}

// RunStore manages persistence for tracker runs and steps.
type RunStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) a run store at path.
func Open(path string) (*RunStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise run store schema: %w", err)
	}
	monitoring.Logf("initialised tracker run store at %s", path)
	return &RunStore{db: db}, nil
}

// Close closes the underlying database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// InsertRun records a new run.
func (s *RunStore) InsertRun(run *Run) error {
	query := `
		INSERT INTO tracker_runs (
			run_id, started_unix_nanos, num_particles, num_targets, seed, notes
		) VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		run.RunID,
		run.StartedUnixNanos,
		run.NumParticles,
		run.NumTargets,
		run.Seed,
		run.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// InsertStep records one step of a run.
func (s *RunStore) InsertStep(rec *StepRecord) error {
	measurement, err := json.Marshal(rec.Measurement)
	if err != nil {
		return fmt.Errorf("encode measurement: %w", err)
	}
	associations, err := json.Marshal(rec.Associations)
	if err != nil {
		return fmt.Errorf("encode associations: %w", err)
	}
	estimates, err := json.Marshal(rec.Estimates)
	if err != nil {
		return fmt.Errorf("encode estimates: %w", err)
	}

	query := `
		INSERT INTO tracker_steps (
			run_id, step_index, ts_unix_nanos,
			measurement, associations, clutter_count,
			effective_sample_size, max_weight, estimates, resampled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query,
		rec.RunID,
		rec.StepIndex,
		rec.TSUnixNanos,
		string(measurement),
		string(associations),
		rec.ClutterCount,
		rec.EffectiveSampleSize,
		rec.MaxWeight,
		string(estimates),
		boolToInt(rec.Resampled),
	)
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}
	return nil
}

// GetRun returns the run with the given ID.
func (s *RunStore) GetRun(runID string) (*Run, error) {
	query := `
		SELECT run_id, started_unix_nanos, num_particles, num_targets, seed, notes
		FROM tracker_runs WHERE run_id = ?
	`
	run := &Run{}
	err := s.db.QueryRow(query, runID).Scan(
		&run.RunID,
		&run.StartedUnixNanos,
		&run.NumParticles,
		&run.NumTargets,
		&run.Seed,
		&run.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// GetSteps returns the steps of a run in step order, up to limit
// (0 for no limit).
func (s *RunStore) GetSteps(runID string, limit int) ([]*StepRecord, error) {
	query := `
		SELECT run_id, step_index, ts_unix_nanos,
			measurement, associations, clutter_count,
			effective_sample_size, max_weight, estimates, resampled
		FROM tracker_steps WHERE run_id = ? ORDER BY step_index
	`
	args := []interface{}{runID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query steps for run %s: %w", runID, err)
	}
	defer rows.Close()

	var steps []*StepRecord
	for rows.Next() {
		rec := &StepRecord{}
		var measurement, associations, estimates string
		var resampled int
		if err := rows.Scan(
			&rec.RunID,
			&rec.StepIndex,
			&rec.TSUnixNanos,
			&measurement,
			&associations,
			&rec.ClutterCount,
			&rec.EffectiveSampleSize,
			&rec.MaxWeight,
			&estimates,
			&resampled,
		); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if err := json.Unmarshal([]byte(measurement), &rec.Measurement); err != nil {
			return nil, fmt.Errorf("decode measurement: %w", err)
		}
		if err := json.Unmarshal([]byte(associations), &rec.Associations); err != nil {
			return nil, fmt.Errorf("decode associations: %w", err)
		}
		if err := json.Unmarshal([]byte(estimates), &rec.Estimates); err != nil {
			return nil, fmt.Errorf("decode estimates: %w", err)
		}
		rec.Resampled = resampled != 0
		steps = append(steps, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

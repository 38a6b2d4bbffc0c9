package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"linkbias/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations. The statements use the
// subset of SQL shared by Postgres and SQLite.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createSimulationRunsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create simulation_runs table", err)
	}

	if err := r.createSimulationTrialsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create simulation_trials table", err)
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError("failed to create indexes", err)
	}

	return nil
}

func (r *MigrationRunner) createSimulationRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS simulation_runs (
			id VARCHAR(36) PRIMARY KEY,
			kind VARCHAR(32) NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			code_version VARCHAR(64) NOT NULL,
			manifest TEXT NOT NULL,
			summaries TEXT NOT NULL,
			runtime_ms BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createSimulationTrialsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS simulation_trials (
			run_id VARCHAR(36) NOT NULL REFERENCES simulation_runs(id) ON DELETE CASCADE,
			set_index INTEGER NOT NULL,
			trial INTEGER NOT NULL,
			mode VARCHAR(32) NOT NULL,
			intercept DOUBLE PRECISION NOT NULL,
			slope DOUBLE PRECISION NOT NULL,
			ci_lower DOUBLE PRECISION,
			ci_upper DOUBLE PRECISION,
			sample_size INTEGER NOT NULL,
			retained INTEGER NOT NULL,
			mismatched INTEGER NOT NULL,
			mismatched_retained INTEGER NOT NULL,
			error TEXT,
			PRIMARY KEY (run_id, set_index, trial)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_simulation_runs_created_at ON simulation_runs(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_simulation_runs_fingerprint ON simulation_runs(fingerprint)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

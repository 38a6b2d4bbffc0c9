package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"linkbias/domain/core"
	"linkbias/domain/run"
	"linkbias/domain/stats"
	"linkbias/internal/errors"
	"linkbias/ports"
)

// RunRepositoryImpl implements ports.RunRepository over sqlx. Postgres trials are
// bulk-loaded with COPY; other drivers use a prepared insert.
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

type runRow struct {
	ID        string `db:"id"`
	Manifest  string `db:"manifest"`
	Summaries string `db:"summaries"`
	RuntimeMs int64  `db:"runtime_ms"`
}

type trialRow struct {
	SetIndex           int             `db:"set_index"`
	Trial              int             `db:"trial"`
	Mode               string          `db:"mode"`
	Intercept          float64         `db:"intercept"`
	Slope              float64         `db:"slope"`
	CILower            sql.NullFloat64 `db:"ci_lower"`
	CIUpper            sql.NullFloat64 `db:"ci_upper"`
	SampleSize         int             `db:"sample_size"`
	Retained           int             `db:"retained"`
	Mismatched         int             `db:"mismatched"`
	MismatchedRetained int             `db:"mismatched_retained"`
	Error              sql.NullString  `db:"error"`
}

// SaveRun stores a run and its trials in one transaction
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, record *run.Record) error {
	if record == nil {
		return errors.InvalidInput("run record is nil")
	}
	if err := record.Manifest.Validate(); err != nil {
		return err
	}

	manifestJSON, err := json.Marshal(record.Manifest)
	if err != nil {
		return errors.Wrap(err, "failed to marshal manifest")
	}
	summariesJSON, err := json.Marshal(record.Summaries)
	if err != nil {
		return errors.Wrap(err, "failed to marshal summaries")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO simulation_runs (id, kind, fingerprint, code_version, manifest, summaries, runtime_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), record.Manifest.RunID.String(), string(record.Manifest.Kind), string(record.Manifest.Fingerprint),
		record.Manifest.CodeVersion, string(manifestJSON), string(summariesJSON), record.RuntimeMs,
		record.Manifest.CreatedAt)
	if err != nil {
		return errors.DatabaseError("failed to insert simulation run", err)
	}

	if len(record.Trials) > 0 {
		if r.db.DriverName() == DriverPostgres {
			err = r.copyTrials(ctx, tx, record)
		} else {
			err = r.insertTrials(ctx, tx, record)
		}
		if err != nil {
			return errors.DatabaseError("failed to insert simulation trials", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit simulation run", err)
	}
	return nil
}

func (r *RunRepositoryImpl) copyTrials(ctx context.Context, tx *sqlx.Tx, record *run.Record) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("simulation_trials",
		"run_id", "set_index", "trial", "mode", "intercept", "slope", "ci_lower", "ci_upper",
		"sample_size", "retained", "mismatched", "mismatched_retained", "error"))
	if err != nil {
		return err
	}

	if err := eachTrial(record, func(args []any) error {
		_, err := stmt.ExecContext(ctx, args...)
		return err
	}); err != nil {
		stmt.Close()
		return err
	}

	// an argument-less Exec flushes the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return err
	}
	return stmt.Close()
}

func (r *RunRepositoryImpl) insertTrials(ctx context.Context, tx *sqlx.Tx, record *run.Record) error {
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO simulation_trials (run_id, set_index, trial, mode, intercept, slope, ci_lower, ci_upper,
			sample_size, retained, mismatched, mismatched_retained, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	return eachTrial(record, func(args []any) error {
		_, err := stmt.ExecContext(ctx, args...)
		return err
	})
}

func eachTrial(record *run.Record, fn func(args []any) error) error {
	id := record.Manifest.RunID.String()
	for set, trials := range record.Trials {
		for _, t := range trials {
			var lower, upper sql.NullFloat64
			if t.SlopeCI != nil {
				lower = sql.NullFloat64{Float64: t.SlopeCI.Lower, Valid: true}
				upper = sql.NullFloat64{Float64: t.SlopeCI.Upper, Valid: true}
			}
			var msg sql.NullString
			if t.Failed() {
				msg = sql.NullString{String: trialError(t), Valid: true}
			}
			if err := fn([]any{id, set, t.Trial, string(t.Mode), t.Intercept, t.Slope, lower, upper,
				t.SampleSize, t.Retained, t.Mismatched, t.MismatchedRetained, msg}); err != nil {
				return fmt.Errorf("trial %d of set %d: %w", t.Trial, set, err)
			}
		}
	}
	return nil
}

func trialError(t stats.TrialResult) string {
	if t.Error != "" {
		return t.Error
	}
	return t.Err.Error()
}

// GetRun loads a run with its trials
func (r *RunRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (*run.Record, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, manifest, summaries, runtime_ms
		FROM simulation_runs
		WHERE id = ?
	`), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load simulation run", err)
	}

	record := &run.Record{RuntimeMs: row.RuntimeMs}
	if err := json.Unmarshal([]byte(row.Manifest), &record.Manifest); err != nil {
		return nil, errors.Wrap(err, "failed to decode manifest")
	}
	if err := json.Unmarshal([]byte(row.Summaries), &record.Summaries); err != nil {
		return nil, errors.Wrap(err, "failed to decode summaries")
	}

	var trials []trialRow
	err = r.db.SelectContext(ctx, &trials, r.db.Rebind(`
		SELECT set_index, trial, mode, intercept, slope, ci_lower, ci_upper,
			sample_size, retained, mismatched, mismatched_retained, error
		FROM simulation_trials
		WHERE run_id = ?
		ORDER BY set_index, trial
	`), id.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to load simulation trials", err)
	}
	record.Trials = groupTrials(trials)

	return record, nil
}

func groupTrials(rows []trialRow) [][]stats.TrialResult {
	if len(rows) == 0 {
		return nil
	}
	sets := make([][]stats.TrialResult, rows[len(rows)-1].SetIndex+1)
	for _, row := range rows {
		t := stats.TrialResult{
			Trial:              row.Trial,
			Mode:               stats.CorrectionMode(row.Mode),
			Intercept:          row.Intercept,
			Slope:              row.Slope,
			SampleSize:         row.SampleSize,
			Retained:           row.Retained,
			Mismatched:         row.Mismatched,
			MismatchedRetained: row.MismatchedRetained,
		}
		if row.CILower.Valid && row.CIUpper.Valid {
			t.SlopeCI = &stats.Interval{Lower: row.CILower.Float64, Upper: row.CIUpper.Float64}
		}
		if row.Error.Valid {
			t.Error = row.Error.String
		}
		sets[row.SetIndex] = append(sets[row.SetIndex], t)
	}
	return sets
}

// ListRuns returns manifests newest first
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]run.Manifest, error) {
	if limit <= 0 {
		limit = 50
	}

	var raw []string
	err := r.db.SelectContext(ctx, &raw, r.db.Rebind(`
		SELECT manifest
		FROM simulation_runs
		ORDER BY created_at DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, errors.DatabaseError("failed to list simulation runs", err)
	}

	manifests := make([]run.Manifest, 0, len(raw))
	for _, m := range raw {
		var manifest run.Manifest
		if err := json.Unmarshal([]byte(m), &manifest); err != nil {
			return nil, errors.Wrap(err, "failed to decode manifest")
		}
		manifests = append(manifests, manifest)
	}
	return manifests, nil
}

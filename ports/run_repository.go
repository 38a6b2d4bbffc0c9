package ports

import (
	"context"

	"linkbias/domain/core"
	"linkbias/domain/run"
)

// RunRepository persists completed simulation runs.
type RunRepository interface {
	// SaveRun stores the manifest, summaries and per-trial results of a run
	SaveRun(ctx context.Context, record *run.Record) error

	// GetRun loads a run by ID, returning core.ErrRunNotFound when absent
	GetRun(ctx context.Context, id core.RunID) (*run.Record, error)

	// ListRuns returns manifests newest first
	ListRuns(ctx context.Context, limit int) ([]run.Manifest, error)
}

package testkit

import (
	"context"
	"sort"
	"sync"

	"linkbias/adapters/rng"
	"linkbias/domain/core"
	"linkbias/domain/run"
	"linkbias/domain/stats"
	"linkbias/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	repo *InMemoryRunRepository
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{repo: NewInMemoryRunRepository()}
}

// RunRepository returns the shared in-memory repository
func (t *TestKit) RunRepository() *InMemoryRunRepository {
	return t.repo
}

// RNGAdapter returns the seeded RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return rng.NewSeededAdapter()
}

// SmallPopulation is a population large enough for n=1000 at p >= 0.5 while
// keeping generation fast in tests.
func SmallPopulation() run.PopulationParams {
	p := run.DefaultPopulationParams()
	p.Size = 20000
	return p
}

// QuickSimulation is a short run over SmallPopulation.
func QuickSimulation() run.SimulationParams {
	s := run.DefaultSimulationParams()
	s.Trials = 20
	s.SampleSize = 500
	return s
}

// InMemoryRunRepository implements ports.RunRepository over a map. It is the
// repository used when no database is configured.
type InMemoryRunRepository struct {
	runs map[core.RunID]*run.Record
	mu   sync.RWMutex
}

var _ ports.RunRepository = (*InMemoryRunRepository)(nil)

func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{runs: make(map[core.RunID]*run.Record)}
}

func (r *InMemoryRunRepository) SaveRun(ctx context.Context, record *run.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := record.Manifest.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[record.Manifest.RunID] = cloneRecord(record)
	return nil
}

func (r *InMemoryRunRepository) GetRun(ctx context.Context, id core.RunID) (*run.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.runs[id]
	if !ok {
		return nil, core.ErrRunNotFound
	}
	return cloneRecord(rec), nil
}

func (r *InMemoryRunRepository) ListRuns(ctx context.Context, limit int) ([]run.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]run.Manifest, 0, len(r.runs))
	for _, rec := range r.runs {
		out = append(out, rec.Manifest)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].RunID > out[j].RunID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored runs
func (r *InMemoryRunRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

func cloneRecord(rec *run.Record) *run.Record {
	cp := *rec
	cp.Summaries = append(cp.Summaries[:0:0], rec.Summaries...)
	if rec.Trials != nil {
		cp.Trials = make([][]stats.TrialResult, len(rec.Trials))
		for i, trials := range rec.Trials {
			cp.Trials[i] = append(trials[:0:0], trials...)
		}
	}
	return &cp
}

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"linkbias/domain/core"
	"linkbias/domain/linkage"
	"linkbias/domain/run"
	"linkbias/domain/stats"
	"linkbias/internal"
	"linkbias/internal/population"
	"linkbias/internal/sampler"
	"linkbias/internal/simulation"
	"linkbias/ports"
)

// CodeVersion is stamped on every manifest. Bump it when a change alters
// trial outcomes for the same parameters.
const CodeVersion = "linkbias/1"

// sampleStreamName names the stream used by one-off sample draws.
const sampleStreamName = "linkage-sample"

const (
	// DefaultPopulationCache is how many generated populations stay in memory.
	DefaultPopulationCache = 4
	// DefaultMaxPopulation caps the size of a generated population.
	DefaultMaxPopulation = 5_000_000
)

// SimulationService builds populations, runs the harness and persists runs
type SimulationService struct {
	repo    ports.RunRepository
	rngPort ports.RNGPort
	logger  *internal.Logger
	workers int

	maxPopulation int

	mu          sync.Mutex
	populations *lru.Cache
}

// ServiceOption configures a SimulationService
type ServiceOption func(*SimulationService)

// WithPopulationCache bounds the number of cached populations. The least
// recently used population is evicted first.
func WithPopulationCache(entries int) ServiceOption {
	return func(s *SimulationService) {
		if entries > 0 {
			s.populations = lru.New(entries)
		}
	}
}

// WithMaxPopulation caps the size of generated populations. Zero or less
// removes the cap.
func WithMaxPopulation(size int) ServiceOption {
	return func(s *SimulationService) {
		s.maxPopulation = size
	}
}

// SimulationRequest defines the inputs for one study run
type SimulationRequest struct {
	Kind       run.Kind
	Population run.PopulationParams
	Simulation run.SimulationParams
	Modes      []stats.CorrectionMode // KindCompare
	Cutoffs    []int                  // KindSweepCutoff
	Precisions []float64              // KindSweepPrecision
	Workers    int                    // 0 uses the service default
	FailFast   bool
	KeepTrials bool
}

// NewSimulationService creates a simulation service. repo may be nil, in which
// case runs are returned but not stored.
func NewSimulationService(repo ports.RunRepository, rngPort ports.RNGPort, logger *internal.Logger, workers int, opts ...ServiceOption) *SimulationService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &SimulationService{
		repo:          repo,
		rngPort:       rngPort,
		logger:        logger.WithComponent("service"),
		workers:       workers,
		maxPopulation: DefaultMaxPopulation,
		populations:   lru.New(DefaultPopulationCache),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxPopulation returns the generated population size cap, or zero when unbounded
func (s *SimulationService) MaxPopulation() int {
	if s.maxPopulation < 0 {
		return 0
	}
	return s.maxPopulation
}

// CachedPopulations returns the number of populations held in memory
func (s *SimulationService) CachedPopulations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.populations.Len()
}

func (s *SimulationService) checkPopulationSize(params run.PopulationParams) error {
	if params.File == "" && s.maxPopulation > 0 && params.Size > s.maxPopulation {
		return core.NewConfigError("population.size", fmt.Sprintf("%d exceeds the limit of %d", params.Size, s.maxPopulation))
	}
	return nil
}

// Population returns the population for params, generating it on first use.
func (s *SimulationService) Population(params run.PopulationParams) (*linkage.Population, error) {
	if err := s.checkPopulationSize(params); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.populations.Get(params); ok {
		return cached.(*linkage.Population), nil
	}
	start := time.Now()
	pop, err := population.Load(params)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("generated population of %d rows in %v", pop.Size(), time.Since(start).Round(time.Millisecond))
	s.populations.Add(params, pop)
	return pop, nil
}

// DrawSample draws a single linked sample. Unlike trials, any sampler error
// fails the call.
func (s *SimulationService) DrawSample(ctx context.Context, params run.PopulationParams, opts sampler.Options, seed int64) (*linkage.Sample, error) {
	pop, err := s.Population(params)
	if err != nil {
		return nil, err
	}
	rng, err := s.rngPort.SeededStream(ctx, sampleStreamName, seed)
	if err != nil {
		return nil, err
	}
	return sampler.NewSampler(pop).Draw(rng, opts)
}

// Execute runs the request end to end and returns the record, persisted when a
// repository is configured.
func (s *SimulationService) Execute(ctx context.Context, req SimulationRequest) (*run.Record, error) {
	startTime := time.Now()

	kind, err := run.ParseKind(string(req.Kind))
	if err != nil {
		return nil, err
	}
	if err := req.Population.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkPopulationSize(req.Population); err != nil {
		return nil, err
	}
	if err := req.Simulation.Validate(); err != nil {
		return nil, err
	}

	manifest := run.NewManifest(kind, req.Population, req.Simulation, CodeVersion)
	switch kind {
	case run.KindCompare:
		modes := req.Modes
		if len(modes) == 0 {
			modes = stats.AllModes()
		}
		manifest.WithModes(modes)
	case run.KindSweepCutoff:
		manifest.WithCutoffs(req.Cutoffs)
	case run.KindSweepPrecision:
		manifest.WithPrecisions(req.Precisions)
	}

	pop, err := s.Population(req.Population)
	if err != nil {
		return nil, err
	}

	workers := req.Workers
	if workers < 1 {
		workers = s.workers
	}
	cfg := simulation.ConfigFromParams(req.Simulation, workers)
	cfg.FailFast = req.FailFast

	harness := simulation.NewHarness(sampler.NewSampler(pop), s.rngPort, simulation.WithLogger(s.logger))

	s.logger.Info("run %s: kind=%s trials=%d n=%d p=%.3f fingerprint=%s",
		manifest.RunID, kind, cfg.Trials, cfg.SampleSize, cfg.Precision, manifest.Fingerprint.Short())

	var sets []*simulation.ResultSet
	switch kind {
	case run.KindSimulate:
		var rs *simulation.ResultSet
		rs, err = harness.Run(ctx, cfg)
		if rs != nil {
			sets = []*simulation.ResultSet{rs}
		}
	case run.KindCompare:
		sets, err = harness.Compare(ctx, cfg, manifest.Modes)
	case run.KindSweepCutoff:
		sets, err = harness.SweepCutoffs(ctx, cfg, manifest.Cutoffs)
	case run.KindSweepPrecision:
		sets, err = harness.SweepPrecisions(ctx, cfg, manifest.Precisions)
	}
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", manifest.RunID, err)
	}

	// a population read from a file has no known slope
	var trueSlope *float64
	if req.Population.File == "" {
		trueSlope = &req.Population.Slope
	}
	summaries, err := s.summarize(sets, trueSlope)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", manifest.RunID, err)
	}

	record := &run.Record{
		Manifest:  *manifest,
		Summaries: summaries,
		RuntimeMs: time.Since(startTime).Milliseconds(),
	}
	if req.KeepTrials {
		record.Trials = make([][]stats.TrialResult, len(sets))
		for i, rs := range sets {
			record.Trials[i] = rs.Trials
		}
	}

	if s.repo != nil {
		if err := s.repo.SaveRun(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to store run %s: %w", manifest.RunID, err)
		}
	}
	return record, nil
}

// summarize keeps the partial summary of a result set with no successes so the
// failure count is reported. It fails only when no result set succeeded at all.
func (s *SimulationService) summarize(sets []*simulation.ResultSet, trueSlope *float64) ([]stats.Summary, error) {
	summaries := make([]stats.Summary, 0, len(sets))
	var firstErr error
	failedSets := 0
	for _, rs := range sets {
		sum, err := simulation.Summarize(rs, trueSlope)
		if err != nil {
			if !errors.Is(err, core.ErrFitFailure) {
				return nil, err
			}
			failedSets++
			if firstErr == nil {
				firstErr = fmt.Errorf("%w (first trial error: %v)", err, rs.FirstError())
			}
			s.logger.Warn("mode=%s cutoff=%d p=%.3f: no successful trials", rs.Config.Mode, rs.Config.Cutoff, rs.Config.Precision)
		}
		summaries = append(summaries, sum)
	}
	if failedSets == len(sets) && firstErr != nil {
		return nil, firstErr
	}
	return summaries, nil
}

// Get loads a stored run
func (s *SimulationService) Get(ctx context.Context, id core.RunID) (*run.Record, error) {
	if s.repo == nil {
		return nil, core.ErrRunNotFound
	}
	return s.repo.GetRun(ctx, id)
}

// List returns stored run manifests, newest first
func (s *SimulationService) List(ctx context.Context, limit int) ([]run.Manifest, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListRuns(ctx, limit)
}

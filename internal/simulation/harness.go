package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"linkbias/domain/stats"
	"linkbias/internal"
	"linkbias/internal/sampler"
	"linkbias/ports"
)

// Harness runs Monte Carlo trials of draw, fit and correct over one population.
// Trials share nothing but the read-only population; each draws from its own
// RNG stream, so results do not depend on Workers or scheduling order.
type Harness struct {
	sampler    *sampler.Sampler
	rng        ports.RNGPort
	estimators Estimators
	logger     *internal.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger overrides the default logger.
func WithLogger(l *internal.Logger) Option {
	return func(h *Harness) { h.logger = l.WithComponent("simulation") }
}

// WithEstimators swaps the fitting collaborators.
func WithEstimators(e Estimators) Option {
	return func(h *Harness) { h.estimators = e }
}

// NewHarness creates a harness drawing from s with per-trial streams from rng.
func NewHarness(s *sampler.Sampler, rng ports.RNGPort, opts ...Option) *Harness {
	h := &Harness{
		sampler:    s,
		rng:        rng,
		estimators: DefaultEstimators(),
		logger:     internal.DefaultLogger.WithComponent("simulation"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Sampler returns the sampler the harness draws from.
func (h *Harness) Sampler() *sampler.Sampler {
	return h.sampler
}

// Run executes cfg.Trials trials under cfg.Mode. Individual trial failures are
// recorded in the result set; the returned error is non-nil only for an
// unusable config, cancellation, or the first failure under FailFast.
func (h *Harness) Run(ctx context.Context, cfg Config) (*ResultSet, error) {
	sets, err := h.runVariants(ctx, cfg, []variant{{mode: cfg.Mode, cutoff: cfg.Cutoff}})
	if len(sets) == 0 {
		return nil, err
	}
	return sets[0], err
}

// variant is one correction applied to the shared per-trial sample.
type variant struct {
	mode   stats.CorrectionMode
	cutoff int
}

func (h *Harness) runVariants(ctx context.Context, base Config, variants []variant) ([]*ResultSet, error) {
	base = base.withDefaults()

	configs := make([]Config, len(variants))
	correctors := make([]Corrector, len(variants))
	for i, v := range variants {
		cfg := base
		cfg.Mode = v.mode
		cfg.Cutoff = v.cutoff
		cfg = cfg.withDefaults()
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		corr, err := NewCorrector(cfg.Mode, h.estimators)
		if err != nil {
			return nil, err
		}
		if cfg.Mode == stats.ModeInfluenceTrim && cfg.Cutoff >= cfg.SampleSize {
			h.logger.Warn("influence-trim cutoff %d >= sample size %d: every row is kept and the estimate is untrimmed OLS",
				cfg.Cutoff, cfg.SampleSize)
		}
		configs[i] = cfg
		correctors[i] = corr
	}

	sets := make([]*ResultSet, len(variants))
	for i := range sets {
		sets[i] = &ResultSet{Config: configs[i], Trials: make([]stats.TrialResult, base.Trials)}
	}

	start := time.Now()
	h.logger.Debug("starting %d trials x %d variants (n=%d p=%.3f workers=%d seed=%d)",
		base.Trials, len(variants), base.SampleSize, base.Precision, base.Workers, base.Seed)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(base.Workers)
	for t := 0; t < base.Trials; t++ {
		if gctx.Err() != nil {
			break
		}
		trial := t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results := h.trial(gctx, trial, base, configs, correctors)
			for i, res := range results {
				sets[i].Trials[trial] = res
			}
			if base.FailFast {
				for _, res := range results {
					if res.Err != nil {
						return fmt.Errorf("trial %d (%s): %w", trial, res.Mode, res.Err)
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.logger.Warn("run stopped early: %v", err)
		return sets, err
	}
	if err := ctx.Err(); err != nil {
		return sets, err
	}

	for _, rs := range sets {
		if failed := rs.FailedCount(); failed > 0 {
			h.logger.Warn("mode=%s cutoff=%d: %d/%d trials failed, first: %v",
				rs.Config.Mode, rs.Config.Cutoff, failed, len(rs.Trials), rs.FirstError())
		}
	}
	h.logger.Info("completed %d trials x %d variants in %v", base.Trials, len(variants), time.Since(start).Round(time.Millisecond))
	return sets, nil
}

// trial draws one sample and applies every corrector to it.
func (h *Harness) trial(ctx context.Context, t int, base Config, configs []Config, correctors []Corrector) []stats.TrialResult {
	out := make([]stats.TrialResult, len(correctors))

	fail := func(err error) []stats.TrialResult {
		for i, cfg := range configs {
			out[i] = failedTrial(t, cfg, err)
		}
		return out
	}

	rng, err := h.rng.TrialStream(ctx, TrialStreamName, t, base.Seed)
	if err != nil {
		return fail(err)
	}
	sample, err := h.sampler.Draw(rng, base.SamplerOptions())
	if err != nil {
		return fail(err)
	}

	for i, corr := range correctors {
		res, err := corr.Correct(sample, configs[i])
		if err != nil {
			out[i] = failedTrial(t, configs[i], err)
			out[i].Mismatched = sample.MismatchedCount()
			h.logger.Trace("trial %d mode=%s failed: %v", t, configs[i].Mode, err)
			continue
		}
		res.Trial = t
		res.Mode = configs[i].Mode
		res.SampleSize = sample.Len()
		res.Mismatched = sample.MismatchedCount()
		out[i] = res
	}
	return out
}

func failedTrial(t int, cfg Config, err error) stats.TrialResult {
	return stats.TrialResult{
		Trial:      t,
		Mode:       cfg.Mode,
		SampleSize: cfg.SampleSize,
		Err:        err,
		Error:      err.Error(),
	}
}

// IsCancelled reports whether err came from context cancellation or deadline.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

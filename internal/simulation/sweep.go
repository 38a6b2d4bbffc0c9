package simulation

import (
	"context"
	"fmt"
	"math"

	"linkbias/domain/core"
	"linkbias/domain/stats"
)

// Compare applies each mode to the same per-trial samples, so differences
// between the result sets come from the correction alone. cfg.Mode is ignored.
func (h *Harness) Compare(ctx context.Context, cfg Config, modes []stats.CorrectionMode) ([]*ResultSet, error) {
	if len(modes) == 0 {
		modes = stats.AllModes()
	}
	variants := make([]variant, len(modes))
	for i, m := range modes {
		variants[i] = variant{mode: m, cutoff: cfg.Cutoff}
	}
	return h.runVariants(ctx, cfg, variants)
}

// SweepCutoffs runs influence-trim at each cutoff over the same per-trial samples.
func (h *Harness) SweepCutoffs(ctx context.Context, cfg Config, cutoffs []int) ([]*ResultSet, error) {
	if len(cutoffs) == 0 {
		return nil, core.NewConfigError("cutoffs", "at least one cutoff is required")
	}
	variants := make([]variant, len(cutoffs))
	for i, c := range cutoffs {
		if c <= 0 {
			return nil, core.NewConfigError("cutoffs", fmt.Sprintf("%d must be > 0", c))
		}
		variants[i] = variant{mode: stats.ModeInfluenceTrim, cutoff: c}
	}
	return h.runVariants(ctx, cfg, variants)
}

// SweepPrecisions runs cfg.Mode once per precision. Every run uses cfg.Seed, so
// trial i at each precision starts from the same stream.
func (h *Harness) SweepPrecisions(ctx context.Context, cfg Config, precisions []float64) ([]*ResultSet, error) {
	if len(precisions) == 0 {
		return nil, core.NewConfigError("precisions", "at least one precision is required")
	}
	out := make([]*ResultSet, 0, len(precisions))
	for _, p := range precisions {
		c := cfg
		c.Precision = p
		rs, err := h.Run(ctx, c)
		if err != nil {
			return out, fmt.Errorf("precision %v: %w", p, err)
		}
		out = append(out, rs)
	}
	return out, nil
}

// CutoffGrid returns from, from+step, ... up to and including to.
func CutoffGrid(from, to, step int) ([]int, error) {
	if step <= 0 || from <= 0 || to < from {
		return nil, core.NewConfigError("cutoff grid", fmt.Sprintf("bad range %d..%d step %d", from, to, step))
	}
	var grid []int
	for c := from; c <= to; c += step {
		grid = append(grid, c)
	}
	return grid, nil
}

// OracleBest picks the summary whose mean slope lands closest to trueSlope,
// ignoring summaries where every trial failed.
// This is selection against ground truth, only available in simulation; it is
// not an estimator and must not be used to choose a cutoff on real data.
func OracleBest(summaries []stats.Summary, trueSlope float64) (stats.Summary, bool) {
	best, bestDist := -1, math.Inf(1)
	for i, s := range summaries {
		if s.Trials > 0 && s.Failed == s.Trials {
			continue
		}
		if d := math.Abs(s.Mean - trueSlope); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return stats.Summary{}, false
	}
	return summaries[best], true
}

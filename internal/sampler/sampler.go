package sampler

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"linkbias/domain/core"
	"linkbias/domain/linkage"
)

// Options configures one draw.
type Options struct {
	Size      int     // n
	Precision float64 // p in [0,1]
	Center    bool    // subtract column means after assembly
}

// Sampler draws biased linked samples from a read-only population.
// It is safe for concurrent use as long as each goroutine passes its own rng.
type Sampler struct {
	pop *linkage.Population
}

// NewSampler creates a sampler over pop.
func NewSampler(pop *linkage.Population) *Sampler {
	return &Sampler{pop: pop}
}

// Population returns the population the sampler draws from.
func (s *Sampler) Population() *linkage.Population {
	return s.pop
}

// Counts splits n into correct and false links for precision p.
// Half-way cases round to even.
func Counts(n int, p float64) (matched, mismatched int) {
	matched = int(math.RoundToEven(p * float64(n)))
	if matched > n {
		matched = n
	}
	if matched < 0 {
		matched = 0
	}
	return matched, n - matched
}

// RequiredDraws returns how many distinct population records one sample consumes.
func RequiredDraws(n int, p float64) int {
	matched, mismatched := Counts(n, p)
	return matched + 2*mismatched
}

// Validate checks opts against a population of size popSize without drawing.
func Validate(opts Options, popSize int) error {
	if opts.Size <= 0 {
		return fmt.Errorf("%w: %d must be > 0", core.ErrInvalidSampleSize, opts.Size)
	}
	if math.IsNaN(opts.Precision) || opts.Precision < 0 || opts.Precision > 1 {
		return core.NewInvalidPrecisionError(opts.Precision)
	}
	if required := RequiredDraws(opts.Size, opts.Precision); required > popSize {
		return core.NewInsufficientPopulationError(required, popSize)
	}
	return nil
}

// Draw produces one sample. Correct links come first, then false links, each in
// draw order. When the false-link count rounds to zero this reduces to a single
// draw of n records, all flagged correct.
func (s *Sampler) Draw(rng *rand.Rand, opts Options) (*linkage.Sample, error) {
	if err := Validate(opts, s.pop.Size()); err != nil {
		return nil, err
	}

	matched, mismatched := Counts(opts.Size, opts.Precision)
	d := newDrawer(s.pop.Size(), rng)
	rows := make([]linkage.Row, 0, opts.Size)

	for i := 0; i < matched; i++ {
		rec, _ := s.pop.At(d.next())
		rows = append(rows, linkage.Row{
			X:       rec.X,
			Y:       rec.Y,
			Matched: true,
			SourceX: rec.Index,
			SourceY: rec.Index,
		})
	}

	if mismatched > 0 {
		xIdx := make([]int, mismatched)
		for i := range xIdx {
			xIdx[i] = d.next()
		}
		yIdx := make([]int, mismatched)
		for i := range yIdx {
			yIdx[i] = d.next()
		}
		for i := 0; i < mismatched; i++ {
			xr, _ := s.pop.At(xIdx[i])
			yr, _ := s.pop.At(yIdx[i])
			rows = append(rows, linkage.Row{
				X:       xr.X,
				Y:       yr.Y,
				Matched: false,
				SourceX: xr.Index,
				SourceY: yr.Index,
			})
		}
	}

	sample := &linkage.Sample{Rows: rows}
	if opts.Center {
		sample = MeanCenter(sample)
	}
	return sample, nil
}

// MeanCenter returns a copy of sample with both numeric columns shifted to mean
// zero. Match flags and source indices are untouched.
func MeanCenter(sample *linkage.Sample) *linkage.Sample {
	if sample.Len() == 0 {
		return &linkage.Sample{Centered: true}
	}
	mx := stat.Mean(sample.Xs(), nil)
	my := stat.Mean(sample.Ys(), nil)

	rows := make([]linkage.Row, len(sample.Rows))
	for i, r := range sample.Rows {
		r.X -= mx
		r.Y -= my
		rows[i] = r
	}
	return &linkage.Sample{Rows: rows, Centered: true}
}

// drawer samples 1-based indices from 1..n without replacement using a partial
// Fisher-Yates shuffle over a virtual identity array. Only displaced slots are
// stored, so k draws cost O(k) time and memory regardless of n.
type drawer struct {
	n       int
	pos     int
	swapped map[int]int
	rng     *rand.Rand
}

func newDrawer(n int, rng *rand.Rand) *drawer {
	return &drawer{n: n, swapped: make(map[int]int), rng: rng}
}

func (d *drawer) at(k int) int {
	if v, ok := d.swapped[k]; ok {
		return v
	}
	return k
}

func (d *drawer) next() int {
	j := d.pos + d.rng.Intn(d.n-d.pos)
	picked := d.at(j)
	d.swapped[j] = d.at(d.pos)
	delete(d.swapped, d.pos)
	d.pos++
	return picked + 1
}

package sampler

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbias/domain/core"
	"linkbias/domain/linkage"
)

// testPopulation builds a population whose fields encode their own index so a
// row's origin can be read back from its values.
func testPopulation(size int) *linkage.Population {
	xs := make([]float64, size)
	ys := make([]float64, size)
	for i := 0; i < size; i++ {
		xs[i] = float64(i + 1)
		ys[i] = -float64(i+1) * 10
	}
	return linkage.NewPopulation(xs, ys)
}

func TestCounts(t *testing.T) {
	cases := []struct {
		n          int
		p          float64
		matched    int
		mismatched int
	}{
		{1000, 0.95, 950, 50},
		{1000, 1, 1000, 0},
		{1000, 0, 0, 1000},
		{10, 0.25, 2, 8}, // 2.5 rounds to even
		{10, 0.35, 4, 6}, // 3.5 rounds to even
		{7, 0.5, 4, 3},   // 3.5 rounds to even
		{3, 0.9, 3, 0},
	}
	for _, tc := range cases {
		m, mm := Counts(tc.n, tc.p)
		assert.Equal(t, tc.matched, m, "matched n=%d p=%v", tc.n, tc.p)
		assert.Equal(t, tc.mismatched, mm, "mismatched n=%d p=%v", tc.n, tc.p)
		assert.Equal(t, tc.n, m+mm)
	}
	assert.Equal(t, 1050, RequiredDraws(1000, 0.95))
}

func TestDraw_FlagCountsAcrossPrecisions(t *testing.T) {
	s := NewSampler(testPopulation(5000))
	rng := rand.New(rand.NewSource(1))

	for _, p := range []float64{0, 0.1, 0.33, 0.5, 0.8, 0.95, 0.999, 1} {
		for _, n := range []int{1, 7, 100, 1000} {
			sample, err := s.Draw(rng, Options{Size: n, Precision: p})
			require.NoError(t, err, "n=%d p=%v", n, p)
			matched, mismatched := Counts(n, p)
			assert.Equal(t, n, sample.Len())
			assert.Equal(t, matched, sample.MatchedCount(), "n=%d p=%v", n, p)
			assert.Equal(t, mismatched, sample.MismatchedCount(), "n=%d p=%v", n, p)
		}
	}
}

func TestDraw_RowsTraceToPopulation(t *testing.T) {
	pop := testPopulation(3000)
	s := NewSampler(pop)
	sample, err := s.Draw(rand.New(rand.NewSource(7)), Options{Size: 1000, Precision: 0.8})
	require.NoError(t, err)

	used := make(map[int]bool)
	for i, row := range sample.Rows {
		xr, ok := pop.At(row.SourceX)
		require.True(t, ok)
		yr, ok := pop.At(row.SourceY)
		require.True(t, ok)
		assert.Equal(t, xr.X, row.X, "row %d", i)
		assert.Equal(t, yr.Y, row.Y, "row %d", i)

		if row.Matched {
			assert.Equal(t, row.SourceX, row.SourceY, "row %d", i)
			// the pair must be an exact population record
			assert.Equal(t, row.X*-10, row.Y)
		} else {
			assert.NotEqual(t, row.SourceX, row.SourceY, "row %d", i)
			assert.NotEqual(t, row.X*-10, row.Y)
		}

		if row.Matched {
			assert.False(t, used[row.SourceX], "index %d reused", row.SourceX)
			used[row.SourceX] = true
		} else {
			assert.False(t, used[row.SourceX], "index %d reused", row.SourceX)
			assert.False(t, used[row.SourceY], "index %d reused", row.SourceY)
			used[row.SourceX] = true
			used[row.SourceY] = true
		}
	}
	assert.Len(t, used, RequiredDraws(1000, 0.8))
}

func TestDraw_PrecisionOneAllCorrect(t *testing.T) {
	s := NewSampler(testPopulation(1000))
	sample, err := s.Draw(rand.New(rand.NewSource(3)), Options{Size: 1000, Precision: 1})
	require.NoError(t, err)
	for _, row := range sample.Rows {
		assert.True(t, row.Matched)
		assert.Equal(t, row.SourceX, row.SourceY)
	}
}

func TestDraw_PrecisionZeroAllIncorrect(t *testing.T) {
	s := NewSampler(testPopulation(2000))
	sample, err := s.Draw(rand.New(rand.NewSource(3)), Options{Size: 1000, Precision: 0})
	require.NoError(t, err)
	for _, row := range sample.Rows {
		assert.False(t, row.Matched)
	}
}

func TestDraw_Deterministic(t *testing.T) {
	s := NewSampler(testPopulation(5000))
	opts := Options{Size: 500, Precision: 0.9}

	a, err := s.Draw(rand.New(rand.NewSource(99)), opts)
	require.NoError(t, err)
	b, err := s.Draw(rand.New(rand.NewSource(99)), opts)
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed produced different samples (-a +b):\n%s", diff)
	}

	c, err := s.Draw(rand.New(rand.NewSource(100)), opts)
	require.NoError(t, err)
	assert.NotEqual(t, a.Rows, c.Rows)
}

func TestDraw_InsufficientPopulation(t *testing.T) {
	s := NewSampler(testPopulation(1000))

	// 950 + 2*50 = 1050 > 1000
	_, err := s.Draw(rand.New(rand.NewSource(1)), Options{Size: 1000, Precision: 0.95})
	assert.ErrorIs(t, err, core.ErrInsufficientPopulation)

	// exactly P draws is fine
	sample, err := s.Draw(rand.New(rand.NewSource(1)), Options{Size: 500, Precision: 0})
	require.NoError(t, err)
	assert.Equal(t, 500, sample.Len())
}

func TestDraw_InvalidInputs(t *testing.T) {
	s := NewSampler(testPopulation(100))
	rng := rand.New(rand.NewSource(1))

	for _, p := range []float64{-0.01, 1.01, math.NaN()} {
		_, err := s.Draw(rng, Options{Size: 10, Precision: p})
		assert.ErrorIs(t, err, core.ErrInvalidPrecision, "p=%v", p)
	}
	_, err := s.Draw(rng, Options{Size: 0, Precision: 0.5})
	assert.ErrorIs(t, err, core.ErrInvalidSampleSize)
}

func TestDraw_MeanCentering(t *testing.T) {
	s := NewSampler(testPopulation(5000))
	raw, err := s.Draw(rand.New(rand.NewSource(5)), Options{Size: 800, Precision: 0.7})
	require.NoError(t, err)
	centered, err := s.Draw(rand.New(rand.NewSource(5)), Options{Size: 800, Precision: 0.7, Center: true})
	require.NoError(t, err)

	assert.True(t, centered.Centered)
	assert.False(t, raw.Centered)

	var sx, sy float64
	for _, row := range centered.Rows {
		sx += row.X
		sy += row.Y
	}
	assert.InDelta(t, 0, sx/800, 1e-9)
	assert.InDelta(t, 0, sy/800, 1e-9)
	assert.Equal(t, raw.Flags(), centered.Flags())
	for i := range raw.Rows {
		assert.Equal(t, raw.Rows[i].SourceX, centered.Rows[i].SourceX)
	}
}

func TestMeanCenter_DoesNotMutateInput(t *testing.T) {
	in := &linkage.Sample{Rows: []linkage.Row{{X: 1, Y: 2, Matched: true}, {X: 3, Y: 6}}}
	out := MeanCenter(in)
	assert.Equal(t, 1.0, in.Rows[0].X)
	assert.Equal(t, -1.0, out.Rows[0].X)
	assert.Equal(t, 2.0, out.Rows[1].Y)
	assert.True(t, out.Rows[0].Matched)
	assert.False(t, out.Rows[1].Matched)
}

func TestDrawer_CoversRangeWithoutRepeats(t *testing.T) {
	d := newDrawer(50, rand.New(rand.NewSource(11)))
	seen := make(map[int]bool)
	for i := 0; i < 50; i++ {
		v := d.next()
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 50)
		require.False(t, seen[v], "repeat %d", v)
		seen[v] = true
	}
}

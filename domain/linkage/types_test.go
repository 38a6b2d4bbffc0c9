package linkage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPopulation_CopiesInputAndIndexesFromOne(t *testing.T) {
	xs := []float64{1, 2, 3}
	ys := []float64{10, 20, 30}
	pop := NewPopulation(xs, ys)
	xs[0] = 99

	assert.Equal(t, 3, pop.Size())
	rec, ok := pop.At(1)
	assert.True(t, ok)
	assert.Equal(t, Record{Index: 1, X: 1, Y: 10}, rec)

	_, ok = pop.At(0)
	assert.False(t, ok)
	_, ok = pop.At(4)
	assert.False(t, ok)

	cx, cy := pop.Columns()
	assert.Equal(t, []float64{1, 2, 3}, cx)
	assert.Equal(t, []float64{10, 20, 30}, cy)
}

func TestSample_Accessors(t *testing.T) {
	s := &Sample{Rows: []Row{
		{X: 1, Y: 2, Matched: true, SourceX: 4, SourceY: 4},
		{X: 3, Y: 4, Matched: true, SourceX: 7, SourceY: 7},
		{X: 5, Y: 6, Matched: false, SourceX: 1, SourceY: 9},
	}}

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{1, 3, 5}, s.Xs())
	assert.Equal(t, []float64{2, 4, 6}, s.Ys())
	assert.Equal(t, []bool{true, true, false}, s.Flags())
	assert.Equal(t, 2, s.MatchedCount())
	assert.Equal(t, 1, s.MismatchedCount())

	sub := s.Subset([]int{0, 2})
	assert.Equal(t, 2, sub.Len())
	assert.Equal(t, 1, sub.MismatchedCount())
	assert.Equal(t, []float64{1, 5}, sub.Xs())
}

package linkage

// ============================================================================
// POPULATION (created once, read-only afterwards)
// ============================================================================

// Record is one population row. Index is 1-based and equals the record's
// position in the population plus one.
type Record struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Population is the fixed, ordered table that samples are drawn from.
// INVARIANTS:
// - records[i].Index == i+1
// - never mutated after NewPopulation returns
type Population struct {
	records []Record
}

// NewPopulation builds a population from parallel columns. The slices are copied.
func NewPopulation(xs, ys []float64) *Population {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	records := make([]Record, n)
	for i := 0; i < n; i++ {
		records[i] = Record{Index: i + 1, X: xs[i], Y: ys[i]}
	}
	return &Population{records: records}
}

// Size returns P.
func (p *Population) Size() int {
	if p == nil {
		return 0
	}
	return len(p.records)
}

// At returns the record with the given 1-based index.
func (p *Population) At(index int) (Record, bool) {
	if p == nil || index < 1 || index > len(p.records) {
		return Record{}, false
	}
	return p.records[index-1], true
}

// Columns returns copies of the predictor and response columns.
func (p *Population) Columns() (xs, ys []float64) {
	xs = make([]float64, len(p.records))
	ys = make([]float64, len(p.records))
	for i, r := range p.records {
		xs[i] = r.X
		ys[i] = r.Y
	}
	return xs, ys
}

// ============================================================================
// SAMPLE (fresh per trial, discarded after use)
// ============================================================================

// Row is one linked pair. SourceX and SourceY are the population indices the
// predictor and response were taken from; they are equal iff Matched.
type Row struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Matched bool    `json:"matched"`
	SourceX int     `json:"source_x"`
	SourceY int     `json:"source_y"`
}

// Sample is the output of the biased linked-sample generator.
type Sample struct {
	Rows     []Row `json:"rows"`
	Centered bool  `json:"centered"`
}

// Len returns the number of rows.
func (s *Sample) Len() int { return len(s.Rows) }

// Xs returns the predictor column.
func (s *Sample) Xs() []float64 {
	out := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.X
	}
	return out
}

// Ys returns the response column.
func (s *Sample) Ys() []float64 {
	out := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Y
	}
	return out
}

// Flags returns the match-flag column.
func (s *Sample) Flags() []bool {
	out := make([]bool, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Matched
	}
	return out
}

// MatchedCount returns the number of correct links.
func (s *Sample) MatchedCount() int {
	count := 0
	for _, r := range s.Rows {
		if r.Matched {
			count++
		}
	}
	return count
}

// MismatchedCount returns the number of false-positive links.
func (s *Sample) MismatchedCount() int {
	return len(s.Rows) - s.MatchedCount()
}

// Subset returns a new sample holding the rows at the given positions, in order.
func (s *Sample) Subset(positions []int) *Sample {
	rows := make([]Row, len(positions))
	for i, pos := range positions {
		rows[i] = s.Rows[pos]
	}
	return &Sample{Rows: rows, Centered: s.Centered}
}

package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"linkbias/domain/run"
	"linkbias/domain/stats"
	"linkbias/internal/testkit"
)

func sweepRecord() *run.Record {
	m := run.NewManifest(run.KindSweepCutoff, testkit.SmallPopulation(), testkit.QuickSimulation(), "test")
	m.WithCutoffs([]int{470, 480})
	coverage := 0.94
	return &run.Record{
		Manifest: *m,
		Summaries: []stats.Summary{
			{Mode: stats.ModeInfluenceTrim, Cutoff: 470, Precision: 0.95, Trials: 20, Mean: 2.05, Coverage: &coverage},
			{Mode: stats.ModeInfluenceTrim, Cutoff: 480, Precision: 0.95, Trials: 20, Failed: 2, Mean: 1.99},
		},
	}
}

func TestMarkdown(t *testing.T) {
	rec := sweepRecord()
	md := string(Markdown(rec))

	assert.Contains(t, md, "# Run "+rec.Manifest.RunID.String())
	assert.Contains(t, md, "| influence-trim | 470 |")
	assert.Contains(t, md, "| 0.940 |")
	assert.Contains(t, md, "2 trial(s) failed")
	assert.Contains(t, md, "closest to the true slope: 480")
}

func TestMarkdown_NoOracleForSimulate(t *testing.T) {
	rec := sweepRecord()
	rec.Manifest.Kind = run.KindSimulate
	assert.NotContains(t, string(Markdown(rec)), "closest to the true slope")
}

func TestSummaryTable_RowPerSummary(t *testing.T) {
	table := SummaryTable(sweepRecord().Summaries)
	lines := strings.Split(strings.TrimSpace(table), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[3], "| - | - |", "missing bias and coverage render as dashes")
}

func TestPage_RendersTable(t *testing.T) {
	page := string(Page(sweepRecord()))
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<td>influence-trim</td>")
}

// Package report renders simulation runs as markdown tables and HTML pages.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"linkbias/domain/run"
	"linkbias/domain/stats"
	"linkbias/internal/simulation"
)

// Markdown renders the run header and its summary table.
func Markdown(rec *run.Record) []byte {
	var b bytes.Buffer
	m := rec.Manifest

	fmt.Fprintf(&b, "# Run %s\n\n", m.RunID)
	fmt.Fprintf(&b, "- **Kind:** %s\n", m.Kind)
	fmt.Fprintf(&b, "- **Created:** %s\n", m.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- **Fingerprint:** `%s`\n", m.Fingerprint.Short())
	if m.Population.File != "" {
		fmt.Fprintf(&b, "- **Population:** %s\n", m.Population.File)
	} else {
		fmt.Fprintf(&b, "- **Population:** %d records, y = %g + %g·x (seed %d)\n",
			m.Population.Size, m.Population.Intercept, m.Population.Slope, m.Population.Seed)
	}
	fmt.Fprintf(&b, "- **Trials:** %d × n = %d, p = %g, seed %d\n",
		m.Simulation.Trials, m.Simulation.SampleSize, m.Simulation.Precision, m.Simulation.Seed)
	if rec.RuntimeMs > 0 {
		fmt.Fprintf(&b, "- **Runtime:** %d ms\n", rec.RuntimeMs)
	}
	b.WriteString("\n## Slope estimates\n\n")
	b.WriteString(SummaryTable(rec.Summaries))

	if failed := failedCount(rec.Summaries); failed > 0 {
		fmt.Fprintf(&b, "\n%d trial(s) failed and are excluded from the statistics above.\n", failed)
	}
	if m.Kind == run.KindSweepCutoff && m.Population.File == "" {
		if best, ok := simulation.OracleBest(rec.Summaries, m.Population.Slope); ok {
			fmt.Fprintf(&b, "\nCutoff with mean closest to the true slope: %d (ground-truth selection, not an estimator).\n", best.Cutoff)
		}
	}
	return b.Bytes()
}

// SummaryTable renders one markdown table row per summary.
func SummaryTable(summaries []stats.Summary) string {
	var b strings.Builder
	b.WriteString("| Mode | Cutoff | p | Trials | Failed | Mean | SD | 2.5% | 97.5% | Mean CI | Bias | Coverage |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|---:|---|---:|---:|\n")
	for _, s := range summaries {
		cutoff := "-"
		if s.Cutoff > 0 {
			cutoff = fmt.Sprintf("%d", s.Cutoff)
		}
		meanCI := "-"
		if s.MeanCI != nil {
			meanCI = fmt.Sprintf("[%.4f, %.4f]", s.MeanCI.Lower, s.MeanCI.Upper)
		}
		fmt.Fprintf(&b, "| %s | %s | %g | %d | %d | %.4f | %.4f | %.4f | %.4f | %s | %s | %s |\n",
			s.Mode, cutoff, s.Precision, s.Trials, s.Failed, s.Mean, s.SD, s.Lower, s.Upper,
			meanCI, optional(s.Bias, "%+.4f"), optional(s.Coverage, "%.3f"))
	}
	return b.String()
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func failedCount(summaries []stats.Summary) int {
	n := 0
	for _, s := range summaries {
		n += s.Failed
	}
	return n
}

// HTML renders markdown to an HTML fragment with table support.
func HTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.ToHTML(md, p, r)
}

// Page renders a complete standalone HTML document for a run.
func Page(rec *run.Record) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Run %s</title>\n", rec.Manifest.RunID)
	b.WriteString("<style>body{font-family:sans-serif;max-width:72em;margin:2em auto}table{border-collapse:collapse}td,th{padding:.25em .6em;border-bottom:1px solid #ddd}</style>\n")
	b.WriteString("</head>\n<body>\n")
	b.Write(HTML(Markdown(rec)))
	b.WriteString("</body>\n</html>\n")
	return b.Bytes()
}

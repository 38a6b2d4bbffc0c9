// Package export writes simulation runs to CSV and XLSX for downstream
// plotting and tables.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"linkbias/domain/linkage"
	"linkbias/domain/run"
	"linkbias/domain/stats"
)

// SummaryHeaders is the column order of summary exports.
var SummaryHeaders = []string{
	"mode", "cutoff", "precision", "trials", "failed", "mean", "sd", "q025", "q975",
	"mean_ci_lower", "mean_ci_upper", "coverage", "bias", "mean_mismatch_trimmed",
}

// TrialHeaders is the column order of trial exports.
var TrialHeaders = []string{
	"set", "trial", "mode", "intercept", "slope", "ci_lower", "ci_upper",
	"sample_size", "retained", "mismatched", "mismatched_retained", "error",
}

// Sheet names used in workbook exports.
const (
	SummarySheet = "Summary"
	TrialsSheet  = "Trials"
	RunSheet     = "Run"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func summaryRecord(s stats.Summary) []string {
	lower, upper := "", ""
	if s.MeanCI != nil {
		lower, upper = formatFloat(s.MeanCI.Lower), formatFloat(s.MeanCI.Upper)
	}
	cutoff := ""
	if s.Cutoff > 0 {
		cutoff = strconv.Itoa(s.Cutoff)
	}
	return []string{
		string(s.Mode), cutoff, formatFloat(s.Precision), strconv.Itoa(s.Trials), strconv.Itoa(s.Failed),
		formatFloat(s.Mean), formatFloat(s.SD), formatFloat(s.Lower), formatFloat(s.Upper),
		lower, upper, optFloat(s.Coverage), optFloat(s.Bias), formatFloat(s.MeanTrimmed),
	}
}

func trialRecord(set int, t stats.TrialResult) []string {
	lower, upper := "", ""
	if t.SlopeCI != nil {
		lower, upper = formatFloat(t.SlopeCI.Lower), formatFloat(t.SlopeCI.Upper)
	}
	msg := t.Error
	if msg == "" && t.Err != nil {
		msg = t.Err.Error()
	}
	return []string{
		strconv.Itoa(set), strconv.Itoa(t.Trial), string(t.Mode), formatFloat(t.Intercept), formatFloat(t.Slope),
		lower, upper, strconv.Itoa(t.SampleSize), strconv.Itoa(t.Retained), strconv.Itoa(t.Mismatched),
		strconv.Itoa(t.MismatchedRetained), msg,
	}
}

// WriteSummariesCSV writes one row per summary.
func WriteSummariesCSV(w io.Writer, summaries []stats.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeaders); err != nil {
		return err
	}
	for _, s := range summaries {
		if err := cw.Write(summaryRecord(s)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrialsCSV writes every trial of every set, failed trials included.
func WriteTrialsCSV(w io.Writer, trials [][]stats.TrialResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TrialHeaders); err != nil {
		return err
	}
	for set, ts := range trials {
		for _, t := range ts {
			if err := cw.Write(trialRecord(set, t)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFiles writes <prefix>_summary.csv and, when trials were kept,
// <prefix>_trials.csv. It returns the paths written.
func WriteCSVFiles(prefix string, rec *run.Record) ([]string, error) {
	paths := []string{prefix + "_summary.csv"}
	if err := writeFile(paths[0], func(w io.Writer) error { return WriteSummariesCSV(w, rec.Summaries) }); err != nil {
		return nil, err
	}
	if len(rec.Trials) > 0 {
		path := prefix + "_trials.csv"
		if err := writeFile(path, func(w io.Writer) error { return WriteTrialsCSV(w, rec.Trials) }); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteXLSX writes a workbook with Run, Summary and (when kept) Trials sheets.
func WriteXLSX(path string, rec *run.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RunSheet); err != nil {
		return err
	}
	if err := writeRunSheet(f, rec.Manifest); err != nil {
		return err
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}
	summaries := make([][]string, len(rec.Summaries))
	for i, s := range rec.Summaries {
		summaries[i] = summaryRecord(s)
	}
	if err := writeSheet(f, SummarySheet, SummaryHeaders, summaries); err != nil {
		return err
	}

	if len(rec.Trials) > 0 {
		if _, err := f.NewSheet(TrialsSheet); err != nil {
			return err
		}
		var rows [][]string
		for set, ts := range rec.Trials {
			for _, t := range ts {
				rows = append(rows, trialRecord(set, t))
			}
		}
		if err := writeSheet(f, TrialsSheet, TrialHeaders, rows); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func writeRunSheet(f *excelize.File, m run.Manifest) error {
	rows := [][]interface{}{
		{"run_id", m.RunID.String()},
		{"kind", string(m.Kind)},
		{"fingerprint", string(m.Fingerprint)},
		{"code_version", m.CodeVersion},
		{"created_at", m.CreatedAt.Format("2006-01-02T15:04:05Z07:00")},
		{"population_size", m.Population.Size},
		{"population_seed", m.Population.Seed},
		{"true_slope", m.Population.Slope},
		{"trials", m.Simulation.Trials},
		{"sample_size", m.Simulation.SampleSize},
		{"precision", m.Simulation.Precision},
		{"mode", string(m.Simulation.Mode)},
		{"seed", m.Simulation.Seed},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(RunSheet, cell, &row); err != nil {
			return fmt.Errorf("write run row %d: %w", i, err)
		}
	}
	return nil
}

// writeSheet writes headers and rows, converting numeric text to numbers so
// the workbook sorts and charts correctly.
func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]string) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		values := make([]interface{}, len(row))
		for c, v := range row {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				values[c] = n
			} else {
				values[c] = v
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, r+1, err)
		}
	}
	return nil
}

// SampleHeaders is the column order of sample exports.
var SampleHeaders = []string{"x", "y", "matched", "source_x", "source_y"}

// WriteSampleCSV writes one row per linked pair with its provenance.
func WriteSampleCSV(w io.Writer, sample *linkage.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SampleHeaders); err != nil {
		return err
	}
	for _, r := range sample.Rows {
		if err := cw.Write([]string{
			formatFloat(r.X), formatFloat(r.Y), strconv.FormatBool(r.Matched),
			strconv.Itoa(r.SourceX), strconv.Itoa(r.SourceY),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

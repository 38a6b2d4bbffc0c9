// Package population draws the fixed population table that linked samples are
// taken from. It plays the role of the closed-form model generator.
package population

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"linkbias/adapters/excel"
	"linkbias/domain/core"
	"linkbias/domain/linkage"
	"linkbias/domain/run"
)

// Headers are the column names used by the CSV and XLSX writers.
var Headers = []string{"index", "x", "y"}

// Generate draws params.Size rows from y = b0 + b1*x + e with a private
// seeded source. The same params always produce the same population.
func Generate(params run.PopulationParams) (*linkage.Population, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(params.Seed))

	xs := make([]float64, params.Size)
	ys := make([]float64, params.Size)
	for i := 0; i < params.Size; i++ {
		xs[i] = params.XMean + rng.NormFloat64()*params.XSD
	}
	// Noise is drawn after all predictors so changing NoiseSD never shifts x.
	for i := 0; i < params.Size; i++ {
		ys[i] = params.Intercept + params.Slope*xs[i] + rng.NormFloat64()*params.NoiseSD
	}

	return linkage.NewPopulation(xs, ys), nil
}

// Load returns the population params describe: read from params.File when set,
// generated otherwise.
func Load(params run.PopulationParams) (*linkage.Population, error) {
	if params.File == "" {
		return Generate(params)
	}
	pop, err := excel.NewDataReader(params.File, excel.DefaultColumnConfig()).ReadPopulation()
	if err != nil {
		return nil, err
	}
	if pop.Size() == 0 {
		return nil, core.NewConfigError("population.file", "contains no rows")
	}
	return pop, nil
}

// WriteCSV writes the population with a header row.
func WriteCSV(path string, pop *linkage.Population) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(Headers); err != nil {
		return err
	}
	for i := 1; i <= pop.Size(); i++ {
		rec, _ := pop.At(i)
		row := []string{
			strconv.Itoa(rec.Index),
			strconv.FormatFloat(rec.X, 'g', -1, 64),
			strconv.FormatFloat(rec.Y, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteXLSX writes the population to Sheet1 of a new workbook.
func WriteXLSX(path string, pop *linkage.Population) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for i := 1; i <= pop.Size(); i++ {
		rec, _ := pop.At(i)
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &[]interface{}{rec.Index, rec.X, rec.Y}); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	return f.SaveAs(path)
}

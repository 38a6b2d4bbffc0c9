package excel

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"linkbias/domain/core"
	"linkbias/domain/linkage"
	"linkbias/internal"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	columns  ColumnConfig
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string, columns ColumnConfig) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	if columns.Sheet == "" {
		columns.Sheet = DefaultColumnConfig().Sheet
	}
	return &DataReader{
		filePath: filePath,
		fileType: fileType,
		columns:  columns,
		logger:   internal.DefaultLogger.WithComponent("DataReader"),
	}
}

// ReadData reads data from Excel or CSV files into structured format
func (r *DataReader) ReadData() (*ExcelData, error) {
	r.logger.Debug("reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, core.NewNotFoundError(strings.ToUpper(r.fileType)+" file", r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// ReadPopulation reads the configured x and y columns into a population. Rows
// keep file order, so row k becomes record index k.
func (r *DataReader) ReadPopulation() (*linkage.Population, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	for _, col := range []string{r.columns.XColumn, r.columns.YColumn} {
		if !hasHeader(data.Headers, col) {
			return nil, core.NewConfigError("population file", fmt.Sprintf("%s has no column %q", r.filePath, col))
		}
	}

	xs := make([]float64, len(data.Rows))
	ys := make([]float64, len(data.Rows))
	for i, row := range data.Rows {
		if xs[i], err = parseNumber(row[r.columns.XColumn]); err != nil {
			return nil, core.NewConfigError("population file", fmt.Sprintf("row %d column %s: %v", i+2, r.columns.XColumn, err))
		}
		if ys[i], err = parseNumber(row[r.columns.YColumn]); err != nil {
			return nil, core.NewConfigError("population file", fmt.Sprintf("row %d column %s: %v", i+2, r.columns.YColumn, err))
		}
	}
	return linkage.NewPopulation(xs, ys), nil
}

// readExcelData reads the configured sheet into structured format
func (r *DataReader) readExcelData() (*ExcelData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.columns.Sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.columns.Sheet, err)
	}
	r.logger.Debug("%s read in %.2fms (%d rows)", r.columns.Sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, core.NewConfigError("population file", "must have a header row and at least one data row")
	}
	return r.processRows(rows)
}

// readCSVData reads CSV data into structured format
func (r *DataReader) readCSVData() (*ExcelData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	startTime := time.Now()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	r.logger.Debug("CSV file read in %.2fms (%d rows)", float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, core.NewConfigError("population file", "must have a header row and at least one data row")
	}
	return r.processRows(rows)
}

// processRows converts raw string rows into ExcelData format
func (r *DataReader) processRows(rows [][]string) (*ExcelData, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		rowData := make(RawRowData, len(headers))
		for j, cell := range rows[i] {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	return &ExcelData{
		Headers: headers,
		Rows:    dataRows,
	}, nil
}

func hasHeader(headers []string, name string) bool {
	for _, h := range headers {
		if h == name {
			return true
		}
	}
	return false
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty cell")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

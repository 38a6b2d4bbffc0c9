package excel

// RawRowData represents a row of raw data as header/value pairs
type RawRowData map[string]string

// ExcelData represents a complete table read from a CSV or XLSX file
type ExcelData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

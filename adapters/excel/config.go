package excel

// ColumnConfig names the columns a population file is read from
type ColumnConfig struct {
	XColumn string `json:"x_column" yaml:"x_column"`
	YColumn string `json:"y_column" yaml:"y_column"`
	Sheet   string `json:"sheet" yaml:"sheet"`
}

// DefaultColumnConfig matches the files written by the population command
func DefaultColumnConfig() ColumnConfig {
	return ColumnConfig{
		XColumn: "x",
		YColumn: "y",
		Sheet:   "Sheet1",
	}
}

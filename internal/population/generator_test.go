package population

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/stat"

	"linkbias/domain/core"
	"linkbias/domain/run"
)

func TestGenerate_DeterministicAndSized(t *testing.T) {
	params := run.DefaultPopulationParams()
	params.Size = 5000

	a, err := Generate(params)
	require.NoError(t, err)
	b, err := Generate(params)
	require.NoError(t, err)

	require.Equal(t, 5000, a.Size())
	ax, ay := a.Columns()
	bx, by := b.Columns()
	assert.Equal(t, ax, bx)
	assert.Equal(t, ay, by)

	first, ok := a.At(1)
	require.True(t, ok)
	assert.Equal(t, 1, first.Index)
	last, ok := a.At(5000)
	require.True(t, ok)
	assert.Equal(t, 5000, last.Index)
}

func TestGenerate_RecoversModel(t *testing.T) {
	params := run.DefaultPopulationParams()
	params.Size = 20000

	pop, err := Generate(params)
	require.NoError(t, err)

	xs, ys := pop.Columns()
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	assert.InDelta(t, params.Intercept, alpha, 0.05)
	assert.InDelta(t, params.Slope, beta, 0.05)
}

func TestGenerate_RejectsBadParams(t *testing.T) {
	params := run.DefaultPopulationParams()
	params.Size = 0
	_, err := Generate(params)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	params = run.DefaultPopulationParams()
	params.XSD = 0
	_, err = Generate(params)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestWriteCSV(t *testing.T) {
	params := run.DefaultPopulationParams()
	params.Size = 10
	pop, err := Generate(params)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pop.csv")
	require.NoError(t, WriteCSV(path, pop))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 11)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "10", rows[10][0])
}

func TestWriteXLSX(t *testing.T) {
	params := run.DefaultPopulationParams()
	params.Size = 5
	pop, err := Generate(params)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pop.xlsx")
	require.NoError(t, WriteXLSX(path, pop))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, "5", rows[5][0])
}

func TestLoad_ReadsWrittenFiles(t *testing.T) {
	params := run.DefaultPopulationParams()
	params.Size = 50
	pop, err := Generate(params)
	require.NoError(t, err)
	wantX, wantY := pop.Columns()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "pop.csv")
	xlsxPath := filepath.Join(dir, "pop.xlsx")
	require.NoError(t, WriteCSV(csvPath, pop))
	require.NoError(t, WriteXLSX(xlsxPath, pop))

	fromCSV, err := Load(run.PopulationParams{File: csvPath})
	require.NoError(t, err)
	gotX, gotY := fromCSV.Columns()
	assert.Equal(t, wantX, gotX, "CSV round trip is exact")
	assert.Equal(t, wantY, gotY)

	fromXLSX, err := Load(run.PopulationParams{File: xlsxPath})
	require.NoError(t, err)
	require.Equal(t, 50, fromXLSX.Size())
	gotX, gotY = fromXLSX.Columns()
	assert.InDeltaSlice(t, wantX, gotX, 1e-12)
	assert.InDeltaSlice(t, wantY, gotY, 1e-12)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(run.PopulationParams{File: filepath.Join(dir, "missing.csv")})
	assert.ErrorIs(t, err, core.ErrNotFound)

	noY := filepath.Join(dir, "noy.csv")
	require.NoError(t, os.WriteFile(noY, []byte("index,x\n1,0.5\n"), 0o644))
	_, err = Load(run.PopulationParams{File: noY})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	badCell := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(badCell, []byte("x,y\n0.5,abc\n"), 0o644))
	_, err = Load(run.PopulationParams{File: badCell})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

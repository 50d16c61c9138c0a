package tabular

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-climate-etl/internal/domain"
)

const streamflowTSV = "agency\tsite\tyear\tmonth\tday\tflow_cfs\n" +
	"USGS\t0001\t2001\t1\t1\t100\n" +
	"USGS\t0001\t2001\t1\t2\t\n" +
	"USGS\t0001\t2001\t1\t3\t120.5\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeGzip(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestReader_Read(t *testing.T) {
	path := writeFile(t, "flow.tsv", streamflowTSV)

	table, err := NewReader().Read(context.Background(), Source{Path: path, Delimiter: Tab, Header: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"agency", "site", "year", "month", "day", "flow_cfs"}, table.Columns)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"USGS", "0001", "2001", "1", "1", "100"}, table.Rows[0])
	assert.Equal(t, "", table.Rows[1][5], "empty cells are kept for the builder to treat as missing")
}

func TestReader_ReadGzip(t *testing.T) {
	path := writeGzip(t, "flow.tsv.gz", streamflowTSV)

	table, err := NewReader().Read(context.Background(), Source{Path: path, Delimiter: Tab, Header: true})
	require.NoError(t, err)
	assert.Len(t, table.Rows, 3)
	assert.Equal(t, "120.5", table.Rows[2][5])
}

func TestReader_FeedsSeriesBuilder(t *testing.T) {
	path := writeFile(t, "flow.tsv", streamflowTSV)
	table, err := NewReader().Read(context.Background(), Source{Path: path, Delimiter: Tab, Header: true})
	require.NoError(t, err)

	s, err := domain.BuildSeries(table, domain.BuildOptions{Kind: domain.KindStreamflow, DrainageAreaM2: 5e6})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, domain.ColFlowCFS, s.SourceUnit)
}

func TestParse_Headerless(t *testing.T) {
	in := "2001 1 1 0.002\n\n2001  1 2   0.0\n"

	table, err := Parse(strings.NewReader(in), Whitespace, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"X0", "X1", "X2", "X3"}, table.Columns)
	assert.Equal(t, [][]string{{"2001", "1", "1", "0.002"}, {"2001", "1", "2", "0.0"}}, table.Rows)
}

func TestParse_CommaQuotedAndPadded(t *testing.T) {
	in := "Date, Tmax_F, Tmin_F, Tavg_F, Precip_in\n\"2001-01-01\", 50, 30, 40, 0.1\n"

	table, err := Parse(strings.NewReader(in), Comma, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"Date", "Tmax_F", "Tmin_F", "Tavg_F", "Precip_in"}, table.Columns)
	assert.Equal(t, []string{"2001-01-01", "50", "30", "40", "0.1"}, table.Rows[0])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		delimiter string
		header    bool
	}{
		{"empty input", "", Comma, true},
		{"header only", "year,month,day\n", Comma, true},
		{"ragged rows", "a b c\n1 2\n", Whitespace, false},
		{"bad quoting", "a,\"b\n", Comma, false},
		{"unknown delimiter", "a|b\n", "pipe", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in), tt.delimiter, tt.header)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInputFormat)
		})
	}
}

func TestReader_Read_MissingFile(t *testing.T) {
	_, err := NewReader().Read(context.Background(), Source{Path: filepath.Join(t.TempDir(), "nope.csv"), Delimiter: Comma})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReader_Read_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader().Read(ctx, Source{Path: "unused.csv", Delimiter: Comma})
	assert.ErrorIs(t, err, context.Canceled)
}

// Package tabular reads delimited observation files into raw tables.
package tabular

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/klauspost/pgzip"

	"github.com/couchcryptid/station-climate-etl/internal/domain"
)

// Supported delimiters.
const (
	Tab        = "tab"
	Whitespace = "whitespace"
	Comma      = "comma"
)

// Source identifies one file and how it is laid out.
type Source struct {
	Path      string
	Delimiter string
	Header    bool
}

// Reader loads files from the local filesystem. Paths ending in .gz are
// decompressed on the fly.
type Reader struct{}

// NewReader creates a Reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read loads the source into a RawTable. Headerless files get the column
// names X0, X1, ... .
func (r *Reader) Read(ctx context.Context, src Source) (domain.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawTable{}, err
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("open %s: %w", src.Path, err)
	}
	defer f.Close()

	var in io.Reader = f
	if strings.HasSuffix(src.Path, ".gz") {
		gz, err := pgzip.NewReaderN(f, 256*1024, runtime.NumCPU())
		if err != nil {
			return domain.RawTable{}, fmt.Errorf("gunzip %s: %w", src.Path, err)
		}
		defer gz.Close()
		in = gz
	}

	table, err := Parse(in, src.Delimiter, src.Header)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("read %s: %w", src.Path, err)
	}
	return table, nil
}

// Parse splits r by delimiter and loads the records through a string-typed
// data frame.
func Parse(r io.Reader, delimiter string, header bool) (domain.RawTable, error) {
	records, err := split(r, delimiter)
	if err != nil {
		return domain.RawTable{}, err
	}
	if len(records) == 0 || (header && len(records) == 1) {
		return domain.RawTable{}, fmt.Errorf("%w: no data rows", domain.ErrInputFormat)
	}
	width := len(records[0])
	for i, rec := range records {
		if len(rec) != width {
			return domain.RawTable{}, fmt.Errorf("%w: line %d has %d fields, want %d",
				domain.ErrInputFormat, i+1, len(rec), width)
		}
	}

	opts := []dataframe.LoadOption{
		dataframe.HasHeader(header),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	}
	if !header {
		opts = append(opts, dataframe.Names(positionalNames(width)...))
	}
	df := dataframe.LoadRecords(records, opts...)
	if df.Err != nil {
		return domain.RawTable{}, fmt.Errorf("%w: %v", domain.ErrInputFormat, df.Err)
	}

	rows := df.Records()
	return domain.RawTable{Columns: df.Names(), Rows: rows[1:]}, nil
}

func positionalNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("X%d", i)
	}
	return names
}

func split(r io.Reader, delimiter string) ([][]string, error) {
	switch delimiter {
	case Comma, Tab:
		cr := csv.NewReader(r)
		if delimiter == Tab {
			cr.Comma = '\t'
		}
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		records, err := cr.ReadAll()
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, fmt.Errorf("%w: %v", domain.ErrInputFormat, perr)
			}
			return nil, err
		}
		return trimRecords(records), nil
	case Whitespace:
		var records [][]string
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			fields := strings.Fields(sc.Text())
			if len(fields) == 0 {
				continue
			}
			records = append(records, fields)
		}
		return records, sc.Err()
	default:
		return nil, fmt.Errorf("%w: unknown delimiter %q", domain.ErrInputFormat, delimiter)
	}
}

// trimRecords strips surrounding spaces and drops empty lines.
func trimRecords(records [][]string) [][]string {
	out := records[:0]
	for _, rec := range records {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		out = append(out, rec)
	}
	return out
}

// Package parquetsink writes anomaly records to one Parquet file per run.
package parquetsink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/couchcryptid/station-climate-etl/internal/domain"
)

// Row is the Parquet schema of an anomaly record.
type Row struct {
	RunID       string  `parquet:"run_id"`
	Variable    string  `parquet:"variable"`
	Year        int32   `parquet:"year"`
	Month       int32   `parquet:"month"`
	Mean        float64 `parquet:"mean"`
	Baseline    float64 `parquet:"baseline"`
	Anomaly     float64 `parquet:"anomaly"`
	Divisor     float64 `parquet:"divisor"`
	GeneratedAt int64   `parquet:"generated_at_ms"`
}

func toRow(r domain.AnomalyRecord) Row {
	return Row{
		RunID:       r.RunID,
		Variable:    r.Variable,
		Year:        int32(r.Year),
		Month:       int32(r.Month),
		Mean:        r.Mean,
		Baseline:    r.Baseline,
		Anomaly:     r.Anomaly,
		Divisor:     r.Divisor,
		GeneratedAt: r.GeneratedAt.UnixMilli(),
	}
}

// Sink writes each run to <dir>/anomalies-<run_id>.parquet.
type Sink struct {
	dir    string
	logger *slog.Logger
}

// NewSink creates a Sink rooted at dir, creating the directory if needed.
func NewSink(dir string, logger *slog.Logger) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create parquet output dir: %w", err)
	}
	return &Sink{dir: dir, logger: logger}, nil
}

// Name identifies the sink in metrics and logs.
func (s *Sink) Name() string { return "parquet" }

// Path returns the file a run is written to.
func (s *Sink) Path(runID string) string {
	return filepath.Join(s.dir, "anomalies-"+runID+".parquet")
}

// Write stores the records of one run. The file appears only once it is
// complete.
func (s *Sink) Write(ctx context.Context, runID string, records []domain.AnomalyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".anomalies-*.parquet")
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = toRow(r)
	}

	w := parquet.NewGenericWriter[Row](tmp)
	if _, err := w.Write(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close parquet file: %w", err)
	}

	path := s.Path(runID)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish parquet file: %w", err)
	}
	s.logger.Info("parquet written", "path", path, "rows", len(rows))
	return nil
}

// Discard removes the file of a run whose publication was rolled back.
func (s *Sink) Discard(_ context.Context, runID string) error {
	path := s.Path(runID)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("discard parquet file: %w", err)
	}
	s.logger.Info("parquet discarded", "path", path)
	return nil
}

// Close is a no-op; each Write owns its file.
func (s *Sink) Close() error { return nil }

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/station-climate-etl/internal/adapter/tabular"
	"github.com/couchcryptid/station-climate-etl/internal/config"
	"github.com/couchcryptid/station-climate-etl/internal/domain"
	"github.com/couchcryptid/station-climate-etl/internal/observability"
)

// Pipeline stages, used as the stage label on run errors.
const (
	StageRead      = "read"
	StageBuild     = "build"
	StageAssemble  = "assemble"
	StageReconcile = "reconcile"
	StageAggregate = "aggregate"
	StagePublish   = "publish"
)

// TableReader loads one delimited file.
type TableReader interface {
	Read(ctx context.Context, src tabular.Source) (domain.RawTable, error)
}

// ResultSink stores the anomaly records of a finished run.
type ResultSink interface {
	Name() string
	Write(ctx context.Context, runID string, records []domain.AnomalyRecord) error
}

// Discarder is implemented by sinks that can withdraw a run they already
// stored. When a later sink fails, earlier sinks that implement it are rolled
// back; sinks that do not (Kafka) should be listed last.
type Discarder interface {
	Discard(ctx context.Context, runID string) error
}

// Pipeline runs an analysis plan: read, build, assemble, reconcile,
// aggregate, publish.
type Pipeline struct {
	reader  TableReader
	sinks   []ResultSink
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
	last    atomic.Pointer[domain.Report]

	publishAttempts int
	backoff         time.Duration
	maxBackoff      time.Duration
	newRunID        func() string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithPublishRetry sets how often a failing sink write is attempted and the
// backoff between attempts, which doubles up to maxBackoff.
func WithPublishRetry(attempts int, backoff, maxBackoff time.Duration) Option {
	return func(p *Pipeline) {
		if attempts > 0 {
			p.publishAttempts = attempts
		}
		p.backoff = backoff
		p.maxBackoff = maxBackoff
	}
}

// WithRunIDs replaces the random run ID generator.
func WithRunIDs(next func() string) Option {
	return func(p *Pipeline) { p.newRunID = next }
}

// New creates a Pipeline with the given reader, sinks and observability.
func New(reader TableReader, sinks []ResultSink, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		reader:          reader,
		sinks:           sinks,
		logger:          logger,
		metrics:         metrics,
		publishAttempts: 3,
		backoff:         200 * time.Millisecond,
		maxBackoff:      5 * time.Second,
		newRunID:        func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a run has completed, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no analysis run has completed yet")
	}
	return nil
}

// LastReport returns the report of the most recent successful run.
func (p *Pipeline) LastReport() (domain.Report, bool) {
	r := p.last.Load()
	if r == nil {
		return domain.Report{}, false
	}
	return *r, true
}

// stageError tags an error with the pipeline stage that produced it.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func fail(stage string, err error) error {
	return &stageError{stage: stage, err: err}
}

// Run executes the plan once. A run that fails before publishing writes
// nothing; a run that fails while publishing discards what earlier sinks
// stored, as far as they implement Discarder.
func (p *Pipeline) Run(ctx context.Context, plan *config.Plan) (domain.Report, error) {
	runID := p.newRunID()
	logger := p.logger.With("run_id", runID)
	logger.Info("run started", "stations", len(plan.Stations))

	start := time.Now()
	p.metrics.RunsTotal.Inc()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	report, err := p.run(ctx, logger, runID, plan)
	if err != nil {
		stage := "unknown"
		var se *stageError
		if errors.As(err, &se) {
			stage = se.stage
		}
		p.metrics.RunErrors.WithLabelValues(stage).Inc()
		logger.Error("run failed", "stage", stage, "error", err)
		return domain.Report{}, err
	}

	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.last.Store(&report)
	p.ready.Store(true)
	logger.Info("run complete", "window", report.Window.String(), "results", len(report.Results),
		"duration", time.Since(start))
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, runID string, plan *config.Plan) (domain.Report, error) {
	in, err := p.ingest(ctx, logger, plan)
	if err != nil {
		return domain.Report{}, err
	}

	window, err := reconcileWindow(plan, in)
	if err != nil {
		return domain.Report{}, fail(StageReconcile, err)
	}
	logger.Info("window reconciled", "window", window.String())

	results, monthly, err := aggregateAll(plan, in, window)
	if err != nil {
		return domain.Report{}, fail(StageAggregate, err)
	}

	report := domain.NewReport(runID, window, in.summaries, results, &monthly)
	if err := p.publish(ctx, logger, report); err != nil {
		return domain.Report{}, fail(StagePublish, err)
	}
	return report, nil
}

// publish writes the report to every sink, retrying each with backoff. If a
// sink gives up, the sinks already written are rolled back.
func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, report domain.Report) error {
	records := report.AnomalyRecords()
	for i, sink := range p.sinks {
		if err := p.writeWithRetry(ctx, logger, sink, report.RunID, records); err != nil {
			p.rollback(logger, p.sinks[:i], report.RunID)
			return fmt.Errorf("%s sink: %w", sink.Name(), err)
		}
	}
	for _, sink := range p.sinks {
		p.metrics.RecordsPublished.WithLabelValues(sink.Name()).Add(float64(len(records)))
	}
	return nil
}

// rollback discards a run from sinks, newest first. It runs on a fresh
// context so a canceled run can still clean up.
func (p *Pipeline) rollback(logger *slog.Logger, written []ResultSink, runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := len(written) - 1; i >= 0; i-- {
		sink := written[i]
		d, ok := sink.(Discarder)
		if !ok {
			logger.Warn("sink cannot discard a failed run", "sink", sink.Name())
			continue
		}
		if err := d.Discard(ctx, runID); err != nil {
			logger.Error("discard failed", "sink", sink.Name(), "error", err)
		}
	}
}

func (p *Pipeline) writeWithRetry(ctx context.Context, logger *slog.Logger, sink ResultSink, runID string, records []domain.AnomalyRecord) error {
	backoff := p.backoff
	var err error
	for attempt := 1; attempt <= p.publishAttempts; attempt++ {
		if err = sink.Write(ctx, runID, records); err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == p.publishAttempts {
			break
		}
		logger.Warn("sink write failed, retrying", "sink", sink.Name(), "attempt", attempt, "error", err)
		if !sleepWithContext(ctx, backoff) {
			break
		}
		backoff = nextBackoff(backoff, p.maxBackoff)
	}
	return err
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

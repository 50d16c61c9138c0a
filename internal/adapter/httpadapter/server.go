package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/station-climate-etl/internal/domain"
)

// ReportSource exposes the most recent completed analysis run.
type ReportSource interface {
	LastReport() (domain.Report, bool)
}

// Server exposes health, readiness, metrics, and latest-run HTTP endpoints.
type Server struct {
	httpServer *http.Server
	reports    ReportSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /runs/latest routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, reports ReportSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		reports: reports,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /runs/latest", s.handleLatestRun)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// runSummary is the JSON view of a report. Missing (NaN) means are null.
type runSummary struct {
	RunID       string                  `json:"run_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	WindowStart string                  `json:"window_start"`
	WindowEnd   string                  `json:"window_end"`
	Stations    []domain.StationSummary `json:"stations"`
	Anomalies   []domain.AnomalyRecord  `json:"anomalies"`
	Climatology []climatology           `json:"climatology"`
	Monthly     *monthlySummary         `json:"monthly,omitempty"`
}

// climatology is the month-of-year profile of one variable, across all
// stations and within each elevation band.
type climatology struct {
	Variable     string       `json:"variable"`
	Baseline     *float64     `json:"baseline"`
	MonthlyMean  []keyedValue `json:"monthly_mean"`
	MaxElevation []keyedValue `json:"max_elevation,omitempty"`
	MinElevation []keyedValue `json:"min_elevation,omitempty"`
}

// monthlySummary is the calendar-month anomaly; key is year*100+month.
type monthlySummary struct {
	Variable string       `json:"variable"`
	Divisor  float64      `json:"divisor"`
	Baseline *float64     `json:"baseline"`
	Mean     []keyedValue `json:"mean"`
	Anomaly  []keyedValue `json:"anomaly"`
}

type keyedValue struct {
	Key   int      `json:"key"`
	Value *float64 `json:"value"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func keyedValues(p domain.Profile) []keyedValue {
	out := make([]keyedValue, len(p.Keys))
	for i, k := range p.Keys {
		out[i] = keyedValue{Key: k, Value: finite(p.Values[i])}
	}
	return out
}

func newRunSummary(report domain.Report) runSummary {
	sum := runSummary{
		RunID:       report.RunID,
		GeneratedAt: report.GeneratedAt,
		WindowStart: report.Window.Start.Format(time.DateOnly),
		WindowEnd:   report.Window.End.Format(time.DateOnly),
		Stations:    report.Stations,
		Anomalies:   report.AnomalyRecords(),
		Climatology: make([]climatology, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		c := climatology{
			Variable:    res.Variable,
			Baseline:    finite(res.Baseline),
			MonthlyMean: keyedValues(res.MonthlyMean),
		}
		if len(res.MonthlyMaxElevation.Keys) > 0 {
			c.MaxElevation = keyedValues(res.MonthlyMaxElevation.Mean())
			c.MinElevation = keyedValues(res.MonthlyMinElevation.Mean())
		}
		sum.Climatology = append(sum.Climatology, c)
	}
	if m := report.MonthlyTavg; m != nil {
		sum.Monthly = &monthlySummary{
			Variable: domain.MonthlyVariable(m.Variable),
			Divisor:  m.Divisor,
			Baseline: finite(m.Baseline),
			Mean:     keyedValues(m.Mean),
			Anomaly:  keyedValues(m.Anomaly),
		}
	}
	return sum
}

func (s *Server) handleLatestRun(w http.ResponseWriter, _ *http.Request) {
	report, ok := s.reports.LastReport()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed run"})
		return
	}
	writeJSON(w, http.StatusOK, newRunSummary(report))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

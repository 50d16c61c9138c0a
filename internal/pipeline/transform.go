package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/station-climate-etl/internal/adapter/tabular"
	"github.com/couchcryptid/station-climate-etl/internal/config"
	"github.com/couchcryptid/station-climate-etl/internal/domain"
)

// inputs are the canonical series and matrices of one run.
type inputs struct {
	stations  []domain.CanonicalSeries
	summaries []domain.StationSummary
	matrices  domain.StationMatrices

	flow   *domain.CanonicalSeries
	precip *domain.CanonicalSeries
}

// ingest reads and builds every file of the plan, then assembles the station
// matrices. Context cancellation is checked between files.
func (p *Pipeline) ingest(ctx context.Context, logger *slog.Logger, plan *config.Plan) (inputs, error) {
	var in inputs

	for i, st := range plan.Stations {
		s, err := p.loadSeries(ctx, logger.With("station", i, "path", st.Path), st, domain.BuildOptions{
			Kind:    domain.KindStation,
			Columns: st.Columns,
		})
		if err != nil {
			return inputs{}, err
		}
		in.stations = append(in.stations, s)
		in.summaries = append(in.summaries, domain.StationSummary{
			Index:      i,
			Name:       st.Name,
			Rows:       s.Len(),
			SourceUnit: s.SourceUnit,
		})
	}

	matrices, err := domain.AssembleStationMatrices(in.stations, len(plan.Stations))
	if err != nil {
		return inputs{}, fail(StageAssemble, err)
	}
	in.matrices = matrices
	p.metrics.StationsAssembled.Set(float64(len(plan.Stations)))

	if plan.Streamflow != nil {
		src := plan.Streamflow.Source
		s, err := p.loadSeries(ctx, logger.With("path", src.Path), src, domain.BuildOptions{
			Kind:           domain.KindStreamflow,
			Columns:        src.Columns,
			DrainageAreaM2: plan.Streamflow.DrainageAreaM2,
		})
		if err != nil {
			return inputs{}, err
		}
		in.flow = &s
	}

	if plan.Precipitation != nil {
		src := *plan.Precipitation
		s, err := p.loadSeries(ctx, logger.With("path", src.Path), src, domain.BuildOptions{
			Kind:    domain.KindPrecipitation,
			Columns: src.Columns,
		})
		if err != nil {
			return inputs{}, err
		}
		in.precip = &s
	}

	return in, nil
}

// loadSeries reads one file and builds its canonical series.
func (p *Pipeline) loadSeries(ctx context.Context, logger *slog.Logger, src config.Source, opts domain.BuildOptions) (domain.CanonicalSeries, error) {
	if err := ctx.Err(); err != nil {
		return domain.CanonicalSeries{}, fail(StageRead, err)
	}

	table, err := p.reader.Read(ctx, tabular.Source{
		Path:      src.Path,
		Delimiter: src.Delimiter,
		Header:    src.HasHeader(),
	})
	if err != nil {
		return domain.CanonicalSeries{}, fail(StageRead, err)
	}

	s, err := domain.BuildSeries(table, opts)
	if err != nil {
		return domain.CanonicalSeries{}, fail(StageBuild, fmt.Errorf("%s: %w", src.Path, err))
	}

	p.metrics.RowsIngested.WithLabelValues(string(opts.Kind)).Add(float64(s.Len()))
	logger.Debug("series built", "kind", opts.Kind, "rows", s.Len(), "source_unit", s.SourceUnit)
	return s, nil
}

// reconcileWindow picks the analysis window: the plan's window if set,
// otherwise the station axis narrowed to the streamflow and then the
// precipitation dates.
func reconcileWindow(plan *config.Plan, in inputs) (domain.DateRange, error) {
	if plan.Window != nil {
		return plan.Window.Range(), nil
	}

	dates := in.matrices.Tavg.Dates
	if len(dates) == 0 {
		return domain.DateRange{}, fmt.Errorf("%w: station matrices have no dates", domain.ErrDateAlignment)
	}
	window := domain.DateRange{Start: dates[0], End: dates[len(dates)-1]}

	for _, s := range []*domain.CanonicalSeries{in.flow, in.precip} {
		if s == nil {
			continue
		}
		overlap, err := domain.OverlappingDates(dates, s.Dates)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("%s: %w", s.Kind, err)
		}
		window = window.Intersect(overlap)
	}

	if err := window.Validate(); err != nil {
		return domain.DateRange{}, fmt.Errorf("station, streamflow and precipitation dates: %w", err)
	}
	return window, nil
}

// aggregateAll aggregates every station matrix with the plan's elevation
// bands, the single-gauge series without bands, and the monthly Tavg
// anomaly.
func aggregateAll(plan *config.Plan, in inputs, window domain.DateRange) ([]domain.AggregationResult, domain.MonthlyAnomalyResult, error) {
	n := len(plan.Stations)
	opts := domain.AggregateOptions{NStations: n, Window: window, Bands: plan.Elevation.Bands()}

	var results []domain.AggregationResult
	for _, m := range in.matrices.All() {
		res, err := domain.Aggregate(m, opts)
		if err != nil {
			return nil, domain.MonthlyAnomalyResult{}, fmt.Errorf("%s: %w", m.Variable, err)
		}
		results = append(results, res)
	}

	gauges := []struct {
		series   *domain.CanonicalSeries
		column   string
		variable string
	}{
		{in.flow, domain.ColFlowMMDay, domain.VarFlow},
		{in.precip, domain.ColPrecipMM, domain.VarGaugePrecip},
	}
	for _, g := range gauges {
		if g.series == nil {
			continue
		}
		m, err := domain.AssembleMatrix([]domain.CanonicalSeries{*g.series}, g.column, 1)
		if err != nil {
			return nil, domain.MonthlyAnomalyResult{}, fmt.Errorf("%s: %w", g.variable, err)
		}
		m.Variable = g.variable
		res, err := domain.Aggregate(m, domain.AggregateOptions{NStations: 1, Window: window})
		if err != nil {
			return nil, domain.MonthlyAnomalyResult{}, fmt.Errorf("%s: %w", g.variable, err)
		}
		results = append(results, res)
	}

	monthly, err := domain.AggregateMonthly(in.matrices.Tavg, opts, plan.MonthlyAnomalyDivisor)
	if err != nil {
		return nil, domain.MonthlyAnomalyResult{}, fmt.Errorf("monthly %s: %w", domain.VarTavg, err)
	}
	return results, monthly, nil
}

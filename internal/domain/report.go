package domain

import (
	"fmt"
	"math"
	"time"
)

// StationSummary records what was ingested for one station.
type StationSummary struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Rows       int    `json:"rows"`
	SourceUnit string `json:"source_unit"`
}

// Report is the outcome of one analysis run.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Window      DateRange
	Stations    []StationSummary
	Results     []AggregationResult
	MonthlyTavg *MonthlyAnomalyResult
}

// NewReport stamps a report with the package clock.
func NewReport(runID string, window DateRange, stations []StationSummary, results []AggregationResult, monthly *MonthlyAnomalyResult) Report {
	return Report{
		RunID:       runID,
		GeneratedAt: clock.Now().UTC(),
		Window:      window,
		Stations:    stations,
		Results:     results,
		MonthlyTavg: monthly,
	}
}

// AnomalyRecord is one anomaly row of a report, the unit written to result
// sinks. Annual records leave Month zero; monthly records carry the calendar
// month and the divisor their anomaly was scaled by.
type AnomalyRecord struct {
	RunID       string    `json:"run_id"`
	Variable    string    `json:"variable"`
	Year        int       `json:"year"`
	Month       int       `json:"month,omitempty"`
	Mean        float64   `json:"mean"`
	Baseline    float64   `json:"baseline"`
	Anomaly     float64   `json:"anomaly"`
	Divisor     float64   `json:"divisor"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Key identifies the record within a run: variable|year, or
// variable|year-month for monthly records.
func (r AnomalyRecord) Key() string {
	if r.Month == 0 {
		return fmt.Sprintf("%s|%d", r.Variable, r.Year)
	}
	return fmt.Sprintf("%s|%d-%02d", r.Variable, r.Year, r.Month)
}

// AnomalyRecords flattens the annual anomaly of every result followed by the
// monthly Tavg anomaly. Groups whose cross-station mean is missing are left
// out.
func (r Report) AnomalyRecords() []AnomalyRecord {
	var out []AnomalyRecord
	for _, res := range r.Results {
		for i, year := range res.AnnualMean.Keys {
			mean := res.AnnualMean.Values[i]
			if math.IsNaN(mean) {
				continue
			}
			out = append(out, AnomalyRecord{
				RunID:       r.RunID,
				Variable:    res.Variable,
				Year:        year,
				Mean:        mean,
				Baseline:    res.Baseline,
				Anomaly:     res.AnnualAnomaly.Values[i],
				Divisor:     1,
				GeneratedAt: r.GeneratedAt,
			})
		}
	}

	if m := r.MonthlyTavg; m != nil {
		for i, key := range m.Mean.Keys {
			mean := m.Mean.Values[i]
			if math.IsNaN(mean) {
				continue
			}
			out = append(out, AnomalyRecord{
				RunID:       r.RunID,
				Variable:    MonthlyVariable(m.Variable),
				Year:        key / 100,
				Month:       key % 100,
				Mean:        mean,
				Baseline:    m.Baseline,
				Anomaly:     m.Anomaly.Values[i],
				Divisor:     m.Divisor,
				GeneratedAt: r.GeneratedAt,
			})
		}
	}
	return out
}

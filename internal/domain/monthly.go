package domain

import "fmt"

const (
	// DefaultMonthlyAnomalyDivisor leaves the monthly anomaly in the units of
	// the matrix.
	DefaultMonthlyAnomalyDivisor = 1.0

	// LegacyMonthlyAnomalyDivisor reproduces the historical monthly Tavg
	// anomaly output, which was divided by 1000 with no unit change behind
	// it. Only use it to compare against old results.
	LegacyMonthlyAnomalyDivisor = 1000.0
)

// MonthlyVariable names the calendar-month series of a variable in
// published records, e.g. tavg_c_monthly.
func MonthlyVariable(variable string) string { return variable + "_monthly" }

// MonthlyAnomalyResult groups by calendar month (January 2001 and January
// 2002 are separate groups). Keys are year*100+month.
type MonthlyAnomalyResult struct {
	Variable string
	Window   DateRange

	ByStation GroupedTable
	Mean      Profile
	Baseline  float64
	Anomaly   Profile // (Mean - Baseline) / Divisor
	Divisor   float64
}

// AggregateMonthly computes per-calendar-month means and their anomaly
// against the mean over all months. Elevation bands are ignored.
func AggregateMonthly(m StationMatrix, opts AggregateOptions, divisor float64) (MonthlyAnomalyResult, error) {
	if !(divisor > 0) {
		return MonthlyAnomalyResult{}, fmt.Errorf("%w: monthly anomaly divisor must be positive, got %g", ErrInputFormat, divisor)
	}
	opts.Bands = ElevationBands{}
	daily, err := prepareWindow(m, opts)
	if err != nil {
		return MonthlyAnomalyResult{}, err
	}

	res := MonthlyAnomalyResult{Variable: m.Variable, Window: opts.Window, Divisor: divisor}
	res.ByStation = groupMean(daily, calendarMonth, stationRange(opts.NStations))
	res.Mean = crossStationMean(res.ByStation)
	res.Baseline = nanMean(res.Mean.Values)
	res.Anomaly = subtract(res.Mean, res.Baseline, divisor)
	return res, nil
}

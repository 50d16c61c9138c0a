package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// GroupedTable holds per-station means for each group key. Keys are months
// of year (1-12), calendar years, or year*100+month depending on the
// grouping that produced the table.
type GroupedTable struct {
	Keys     []int
	Stations []int       // station index of each column
	Values   [][]float64 // [group][station]
}

// Mean averages each group across the table's stations.
func (g GroupedTable) Mean() Profile { return crossStationMean(g) }

// Profile is a single series of values keyed like a GroupedTable.
type Profile struct {
	Keys   []int
	Values []float64
}

// Value returns the value for key.
func (p Profile) Value(key int) (float64, bool) {
	for i, k := range p.Keys {
		if k == key {
			return p.Values[i], true
		}
	}
	return math.NaN(), false
}

// ElevationBands names the stations at the extremes of elevation. Both sets
// are caller configuration, not derived from the data.
type ElevationBands struct {
	Max []int
	Min []int
}

// IsZero reports whether no bands were configured.
func (b ElevationBands) IsZero() bool { return len(b.Max) == 0 && len(b.Min) == 0 }

// Validate checks that both sets are non-empty, in range and disjoint.
func (b ElevationBands) Validate(nStations int) error {
	if len(b.Max) == 0 || len(b.Min) == 0 {
		return fmt.Errorf("%w: both elevation bands need at least one station", ErrDimensionMismatch)
	}
	seen := make(map[int]bool, len(b.Max))
	for _, i := range b.Max {
		if i < 0 || i >= nStations {
			return fmt.Errorf("%w: max-elevation station %d out of range 0..%d", ErrDimensionMismatch, i, nStations-1)
		}
		seen[i] = true
	}
	for _, i := range b.Min {
		if i < 0 || i >= nStations {
			return fmt.Errorf("%w: min-elevation station %d out of range 0..%d", ErrDimensionMismatch, i, nStations-1)
		}
		if seen[i] {
			return fmt.Errorf("%w: station %d is in both elevation bands", ErrDimensionMismatch, i)
		}
	}
	return nil
}

// AggregateOptions replaces the analysis globals of a run: how many stations
// to use, the date window and the elevation bands.
type AggregateOptions struct {
	NStations int
	Window    DateRange
	Bands     ElevationBands // zero value skips the elevation tables
}

// AggregationResult bundles the grouped statistics for one variable.
type AggregationResult struct {
	Variable string
	Window   DateRange

	MonthlyByStation    GroupedTable // month of year × station
	MonthlyMean         Profile      // month of year, mean across stations
	MonthlyMaxElevation GroupedTable
	MonthlyMinElevation GroupedTable

	AnnualByStation GroupedTable // calendar year × station
	AnnualMean      Profile      // calendar year, mean across stations
	Baseline        float64      // mean of AnnualMean over all years
	AnnualAnomaly   Profile      // AnnualMean - Baseline
}

// Aggregate slices the matrix to the window and computes the month-of-year
// climatology, the elevation-band climatologies, the annual means and the
// annual anomaly against the multi-year baseline. Missing (NaN) cells are
// skipped in every mean.
func Aggregate(m StationMatrix, opts AggregateOptions) (AggregationResult, error) {
	daily, err := prepareWindow(m, opts)
	if err != nil {
		return AggregationResult{}, err
	}

	res := AggregationResult{Variable: m.Variable, Window: opts.Window}

	res.MonthlyByStation = groupMean(daily, monthOfYear, stationRange(opts.NStations))
	res.MonthlyMean = crossStationMean(res.MonthlyByStation)

	if !opts.Bands.IsZero() {
		res.MonthlyMaxElevation, err = bandMonthlyMean(daily, opts.Bands.Max)
		if err != nil {
			return AggregationResult{}, err
		}
		res.MonthlyMinElevation, err = bandMonthlyMean(daily, opts.Bands.Min)
		if err != nil {
			return AggregationResult{}, err
		}
	}

	res.AnnualByStation = groupMean(daily, calendarYear, stationRange(opts.NStations))
	res.AnnualMean = crossStationMean(res.AnnualByStation)
	res.Baseline = nanMean(res.AnnualMean.Values)
	res.AnnualAnomaly = subtract(res.AnnualMean, res.Baseline, 1)

	return res, nil
}

// prepareWindow validates the options and restricts the matrix to the window
// and to stations 0..NStations-1.
func prepareWindow(m StationMatrix, opts AggregateOptions) (StationMatrix, error) {
	if opts.NStations <= 0 || opts.NStations > m.NStations() {
		return StationMatrix{}, fmt.Errorf("%w: %d stations requested from a %s matrix with %d",
			ErrDimensionMismatch, opts.NStations, m.Variable, m.NStations())
	}
	if !opts.Bands.IsZero() {
		if err := opts.Bands.Validate(opts.NStations); err != nil {
			return StationMatrix{}, err
		}
	}
	sliced, err := m.Slice(opts.Window)
	if err != nil {
		return StationMatrix{}, err
	}
	return sliced.SelectStations(stationRange(opts.NStations))
}

func bandMonthlyMean(daily StationMatrix, band []int) (GroupedTable, error) {
	sub, err := daily.SelectStations(band)
	if err != nil {
		return GroupedTable{}, err
	}
	return groupMean(sub, monthOfYear, append([]int(nil), band...)), nil
}

func monthOfYear(d time.Time) int  { return int(d.Month()) }
func calendarYear(d time.Time) int { return d.Year() }
func calendarMonth(d time.Time) int {
	return d.Year()*100 + int(d.Month())
}

func stationRange(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// groupMean averages each station column within groups of rows sharing a
// key. Keys come back sorted ascending.
func groupMean(m StationMatrix, key func(time.Time) int, stations []int) GroupedTable {
	type acc struct {
		sum   []float64
		count []int
	}
	n := m.NStations()
	groups := make(map[int]*acc)
	for r, d := range m.Dates {
		k := key(d)
		g, ok := groups[k]
		if !ok {
			g = &acc{sum: make([]float64, n), count: make([]int, n)}
			groups[k] = g
		}
		for i, v := range m.Values[r] {
			if math.IsNaN(v) {
				continue
			}
			g.sum[i] += v
			g.count[i]++
		}
	}

	keys := make([]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := GroupedTable{Keys: keys, Stations: stations, Values: make([][]float64, len(keys))}
	for gi, k := range keys {
		g := groups[k]
		row := make([]float64, n)
		for i := range row {
			if g.count[i] == 0 {
				row[i] = math.NaN()
				continue
			}
			row[i] = g.sum[i] / float64(g.count[i])
		}
		out.Values[gi] = row
	}
	return out
}

func crossStationMean(g GroupedTable) Profile {
	p := Profile{Keys: append([]int(nil), g.Keys...), Values: make([]float64, len(g.Values))}
	for i, row := range g.Values {
		p.Values[i] = nanMean(row)
	}
	return p
}

// subtract returns (p - baseline) / divisor per key.
func subtract(p Profile, baseline, divisor float64) Profile {
	out := Profile{Keys: append([]int(nil), p.Keys...), Values: make([]float64, len(p.Values))}
	for i, v := range p.Values {
		out.Values[i] = (v - baseline) / divisor
	}
	return out
}

// nanMean is the mean of the finite values, or NaN if there are none.
func nanMean(vals []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

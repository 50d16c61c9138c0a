package domain

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var twoYears = DateRange{Start: day(2001, 1, 1), End: day(2002, 12, 31)}

// seasonalMatrix has value 10*station + month, plus 2 in the second year.
func seasonalMatrix(nStations int) StationMatrix {
	return matrixOf(VarTavg, dailyDates(twoYears.Start, twoYears.End), nStations, func(d time.Time, s int) float64 {
		return float64(10*s+int(d.Month())) + 2*float64(d.Year()-2001)
	})
}

// randomMatrix is reproducible noise over three years and five stations.
func randomMatrix() StationMatrix {
	rng := rand.New(rand.NewSource(42))
	dates := dailyDates(day(2000, 1, 1), day(2002, 12, 31))
	return matrixOf(VarTavg, dates, 5, func(_ time.Time, s int) float64 {
		return rng.NormFloat64()*8 + float64(s)
	})
}

func TestAggregate_MonthOfYear(t *testing.T) {
	m := seasonalMatrix(3)
	bands := ElevationBands{Max: []int{2}, Min: []int{0, 1}}

	res, err := Aggregate(m, AggregateOptions{NStations: 3, Window: twoYears, Bands: bands})
	require.NoError(t, err)

	assert.Equal(t, VarTavg, res.Variable)
	assert.Equal(t, twoYears, res.Window)
	require.Len(t, res.MonthlyByStation.Keys, 12)
	assert.Equal(t, []int{0, 1, 2}, res.MonthlyByStation.Stations)

	for g, month := range res.MonthlyByStation.Keys {
		assert.Equal(t, g+1, month)
		for s := 0; s < 3; s++ {
			assert.InDelta(t, float64(10*s+month+1), res.MonthlyByStation.Values[g][s], tol)
		}
		assert.InDelta(t, float64(10+month+1), res.MonthlyMean.Values[g], tol)
	}

	assert.Equal(t, res.MonthlyMean, res.MonthlyByStation.Mean())

	t.Run("elevation bands", func(t *testing.T) {
		assert.Equal(t, []int{2}, res.MonthlyMaxElevation.Stations)
		assert.Equal(t, []int{0, 1}, res.MonthlyMinElevation.Stations)
		require.Len(t, res.MonthlyMaxElevation.Keys, 12)
		for g := range res.MonthlyMaxElevation.Keys {
			assert.InDelta(t, res.MonthlyByStation.Values[g][2], res.MonthlyMaxElevation.Values[g][0], tol)
			assert.InDelta(t, res.MonthlyByStation.Values[g][0], res.MonthlyMinElevation.Values[g][0], tol)
			assert.InDelta(t, res.MonthlyByStation.Values[g][1], res.MonthlyMinElevation.Values[g][1], tol)
		}
	})
}

func TestAggregate_AnnualAndAnomaly(t *testing.T) {
	m := matrixOf(VarPrecip, dailyDates(twoYears.Start, twoYears.End), 3, func(d time.Time, s int) float64 {
		return float64(10*s) + 2*float64(d.Year()-2001)
	})

	res, err := Aggregate(m, AggregateOptions{NStations: 3, Window: twoYears})
	require.NoError(t, err)

	assert.Equal(t, []int{2001, 2002}, res.AnnualByStation.Keys)
	assert.InDelta(t, 20.0, res.AnnualByStation.Values[0][2], tol)
	assert.InDelta(t, 22.0, res.AnnualByStation.Values[1][2], tol)

	assert.Equal(t, []int{2001, 2002}, res.AnnualMean.Keys)
	assert.InDelta(t, 10.0, res.AnnualMean.Values[0], tol)
	assert.InDelta(t, 12.0, res.AnnualMean.Values[1], tol)
	assert.InDelta(t, 11.0, res.Baseline, tol)

	a2001, ok := res.AnnualAnomaly.Value(2001)
	require.True(t, ok)
	assert.InDelta(t, -1.0, a2001, tol)
	a2002, _ := res.AnnualAnomaly.Value(2002)
	assert.InDelta(t, 1.0, a2002, tol)

	_, ok = res.AnnualAnomaly.Value(1999)
	assert.False(t, ok)

	assert.Empty(t, res.MonthlyMaxElevation.Keys, "no bands configured")
}

// Month-of-year grouping must agree with averaging each month's rows on
// their own.
func TestAggregate_MonthGroupingMatchesPerMonthSubsets(t *testing.T) {
	m := randomMatrix()
	window := DateRange{Start: m.Dates[0], End: m.Dates[len(m.Dates)-1]}

	res, err := Aggregate(m, AggregateOptions{NStations: 5, Window: window})
	require.NoError(t, err)

	for g, month := range res.MonthlyByStation.Keys {
		for s := 0; s < 5; s++ {
			sum, n := 0.0, 0
			for r, d := range m.Dates {
				if int(d.Month()) == month {
					sum += m.Values[r][s]
					n++
				}
			}
			assert.InDelta(t, sum/float64(n), res.MonthlyByStation.Values[g][s], 1e-9, "month %d station %d", month, s)
		}
	}
}

func TestAggregate_AnomalyAveragesToZero(t *testing.T) {
	m := randomMatrix()
	window := DateRange{Start: m.Dates[0], End: m.Dates[len(m.Dates)-1]}

	res, err := Aggregate(m, AggregateOptions{NStations: 5, Window: window})
	require.NoError(t, err)

	require.Len(t, res.AnnualAnomaly.Values, 3)
	assert.InDelta(t, 0.0, nanMean(res.AnnualAnomaly.Values), 1e-12)
}

func TestAggregate_SkipsMissingValues(t *testing.T) {
	window := DateRange{Start: day(2001, 1, 1), End: day(2001, 2, 28)}
	m := matrixOf(VarTmax, dailyDates(window.Start, window.End), 2, func(d time.Time, s int) float64 {
		if s == 1 && d.Month() == time.January {
			return math.NaN()
		}
		if d.Day() == 1 {
			return math.NaN()
		}
		return 5
	})

	res, err := Aggregate(m, AggregateOptions{NStations: 2, Window: window})
	require.NoError(t, err)

	assert.InDelta(t, 5.0, res.MonthlyByStation.Values[0][0], tol)
	assert.True(t, math.IsNaN(res.MonthlyByStation.Values[0][1]), "station with no January data")
	assert.InDelta(t, 5.0, res.MonthlyMean.Values[0], tol, "cross-station mean skips the missing station")
	assert.InDelta(t, 5.0, res.Baseline, tol)
}

func TestAggregate_SubsetOfStations(t *testing.T) {
	m := seasonalMatrix(4)

	res, err := Aggregate(m, AggregateOptions{NStations: 2, Window: twoYears})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, res.MonthlyByStation.Stations)
	assert.Len(t, res.MonthlyByStation.Values[0], 2)
	assert.InDelta(t, 6.0+1, res.MonthlyMean.Values[0], tol)
}

func TestAggregate_WindowRestrictsRows(t *testing.T) {
	m := seasonalMatrix(1)
	window := DateRange{Start: day(2002, 3, 1), End: day(2002, 5, 31)}

	res, err := Aggregate(m, AggregateOptions{NStations: 1, Window: window})
	require.NoError(t, err)

	assert.Equal(t, []int{3, 4, 5}, res.MonthlyByStation.Keys)
	assert.Equal(t, []int{2002}, res.AnnualMean.Keys)
	assert.InDelta(t, 0.0, res.AnnualAnomaly.Values[0], tol)
}

func TestAggregate_Errors(t *testing.T) {
	m := seasonalMatrix(3)

	tests := []struct {
		name    string
		opts    AggregateOptions
		wantErr error
	}{
		{"too many stations", AggregateOptions{NStations: 4, Window: twoYears}, ErrDimensionMismatch},
		{"no stations", AggregateOptions{NStations: 0, Window: twoYears}, ErrDimensionMismatch},
		{"window outside matrix", AggregateOptions{NStations: 3, Window: DateRange{Start: day(2000, 1, 1), End: day(2001, 6, 1)}}, ErrDateAlignment},
		{"empty window", AggregateOptions{NStations: 3, Window: DateRange{Start: day(2002, 1, 1), End: day(2001, 1, 1)}}, ErrDateAlignment},
		{"overlapping bands", AggregateOptions{NStations: 3, Window: twoYears, Bands: ElevationBands{Max: []int{2}, Min: []int{1, 2}}}, ErrDimensionMismatch},
		{"band out of range", AggregateOptions{NStations: 3, Window: twoYears, Bands: ElevationBands{Max: []int{3}, Min: []int{0}}}, ErrDimensionMismatch},
		{"one band missing", AggregateOptions{NStations: 3, Window: twoYears, Bands: ElevationBands{Max: []int{2}}}, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(m, tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAggregateMonthly(t *testing.T) {
	m := seasonalMatrix(3)
	opts := AggregateOptions{NStations: 3, Window: twoYears, Bands: ElevationBands{Max: []int{9}}}

	res, err := AggregateMonthly(m, opts, DefaultMonthlyAnomalyDivisor)
	require.NoError(t, err, "bands are ignored by the calendar-month variant")

	require.Len(t, res.ByStation.Keys, 24)
	assert.Equal(t, 200101, res.ByStation.Keys[0])
	assert.Equal(t, 200212, res.ByStation.Keys[23])

	jan2002, ok := res.Mean.Value(200201)
	require.True(t, ok)
	assert.InDelta(t, 13.0, jan2002, tol)

	// Months 1..12 in both years, +2 in 2002, +10 station mean.
	assert.InDelta(t, 10+6.5+1, res.Baseline, tol)
	assert.InDelta(t, 0.0, nanMean(res.Anomaly.Values), 1e-12)
	assert.Equal(t, DefaultMonthlyAnomalyDivisor, res.Divisor)

	t.Run("legacy divisor scales the anomaly only", func(t *testing.T) {
		legacy, err := AggregateMonthly(m, opts, LegacyMonthlyAnomalyDivisor)
		require.NoError(t, err)

		assert.Equal(t, res.Mean, legacy.Mean)
		assert.Equal(t, res.Baseline, legacy.Baseline)
		for i := range res.Anomaly.Values {
			assert.InDelta(t, res.Anomaly.Values[i]/1000, legacy.Anomaly.Values[i], 1e-12)
		}
	})

	t.Run("non-positive divisor", func(t *testing.T) {
		_, err := AggregateMonthly(m, opts, 0)
		assert.ErrorIs(t, err, ErrInputFormat)
	})
}

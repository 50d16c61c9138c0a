package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeStations(dates []time.Time) []CanonicalSeries {
	out := make([]CanonicalSeries, 3)
	for s := range out {
		tmax, tmin := make([]float64, len(dates)), make([]float64, len(dates))
		for i := range dates {
			tmax[i] = float64(10*s + i)
			tmin[i] = float64(-10*s - 2*i)
		}
		out[s] = stationSeries(dates, tmax, tmin)
	}
	return out
}

func TestAssembleStationMatrices(t *testing.T) {
	dates := dailyDates(day(2001, 1, 1), day(2001, 1, 10))
	series := threeStations(dates)

	m, err := AssembleStationMatrices(series, 3)
	require.NoError(t, err)

	assert.Equal(t, VarTmax, m.Tmax.Variable)
	assert.Equal(t, VarTmin, m.Tmin.Variable)
	assert.Equal(t, VarPrecip, m.Precip.Variable)
	assert.Equal(t, VarTavg, m.Tavg.Variable)
	assert.Equal(t, 3, m.Tmax.NStations())
	assert.Equal(t, dates, m.Tmax.Dates)

	t.Run("station position is column position", func(t *testing.T) {
		for s := range series {
			want, _ := series[s].Column(ColTmaxC)
			assert.Equal(t, want, m.Tmax.Station(s))
		}
	})

	t.Run("tavg is the cell mean of tmin and tmax", func(t *testing.T) {
		for r := range dates {
			for s := 0; s < 3; s++ {
				want := (m.Tmin.Values[r][s] + m.Tmax.Values[r][s]) / 2
				assert.InDelta(t, want, m.Tavg.Values[r][s], tol)
			}
		}
	})

	assert.Len(t, m.All(), 4)
}

func TestAssembleMatrix_Errors(t *testing.T) {
	dates := dailyDates(day(2001, 1, 1), day(2001, 1, 10))

	t.Run("unequal length", func(t *testing.T) {
		series := threeStations(dates)
		short := dates[:9]
		series[2] = stationSeries(short, make([]float64, 9), make([]float64, 9))

		_, err := AssembleStationMatrices(series, 3)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("station count differs from series", func(t *testing.T) {
		_, err := AssembleMatrix(threeStations(dates), ColTmaxC, 4)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("zero stations", func(t *testing.T) {
		_, err := AssembleMatrix(nil, ColTmaxC, 0)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("shifted dates", func(t *testing.T) {
		series := threeStations(dates)
		shifted := dailyDates(day(2001, 1, 2), day(2001, 1, 11))
		series[1] = stationSeries(shifted, make([]float64, 10), make([]float64, 10))

		_, err := AssembleMatrix(series, ColTmaxC, 3)
		assert.ErrorIs(t, err, ErrDateAlignment)
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := AssembleMatrix(threeStations(dates), ColFlowCFS, 3)
		assert.ErrorIs(t, err, ErrMissingVariable)
	})

	t.Run("wrong kind", func(t *testing.T) {
		series := threeStations(dates)
		series[0].Kind = KindStreamflow

		_, err := AssembleStationMatrices(series, 3)
		assert.ErrorIs(t, err, ErrInputFormat)
	})
}

func TestStationMatrix_Slice(t *testing.T) {
	dates := dailyDates(day(2001, 1, 1), day(2001, 1, 31))
	m := matrixOf(VarTavg, dates, 2, func(d time.Time, s int) float64 { return float64(d.Day() + s) })

	t.Run("inside index", func(t *testing.T) {
		out, err := m.Slice(DateRange{Start: day(2001, 1, 10), End: day(2001, 1, 12)})
		require.NoError(t, err)
		assert.Equal(t, dailyDates(day(2001, 1, 10), day(2001, 1, 12)), out.Dates)
		assert.Equal(t, []float64{10, 11}, out.Values[0])

		out.Values[0][0] = -1
		assert.Equal(t, 10.0, m.Values[9][0], "slice must copy rows")
	})

	tests := []struct {
		name   string
		window DateRange
	}{
		{"empty window", DateRange{Start: day(2001, 1, 12), End: day(2001, 1, 10)}},
		{"starts before index", DateRange{Start: day(2000, 12, 31), End: day(2001, 1, 10)}},
		{"ends after index", DateRange{Start: day(2001, 1, 10), End: day(2001, 2, 1)}},
		{"unset window", DateRange{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Slice(tt.window)
			assert.ErrorIs(t, err, ErrDateAlignment)
		})
	}
}

func TestStationMatrix_SelectStations(t *testing.T) {
	dates := dailyDates(day(2001, 1, 1), day(2001, 1, 3))
	m := matrixOf(VarTavg, dates, 4, func(_ time.Time, s int) float64 { return float64(s) })

	out, err := m.SelectStations([]int{3, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, out.NStations())
	assert.Equal(t, []float64{3, 1}, out.Values[0])

	_, err = m.SelectStations([]int{4})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

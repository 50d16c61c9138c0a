package domain

import (
	"fmt"
	"time"
)

// Variables tracked across stations.
const (
	VarTmin   = "tmin_c"
	VarTmax   = "tmax_c"
	VarTavg   = "tavg_c"
	VarPrecip = "precip_mm"
	VarFlow   = "flow_mmday"

	// VarGaugePrecip is the standalone precipitation gauge, kept apart from
	// the station precipitation matrix.
	VarGaugePrecip = "gauge_precip_mm"
)

// StationMatrix holds one variable on a shared date axis, one column per
// station. Column i is station i.
type StationMatrix struct {
	Variable string
	Dates    []time.Time
	Values   [][]float64 // [date][station]
}

// NStations returns the number of station columns.
func (m StationMatrix) NStations() int {
	if len(m.Values) == 0 {
		return 0
	}
	return len(m.Values[0])
}

// Station returns a copy of one station's column.
func (m StationMatrix) Station(i int) []float64 {
	out := make([]float64, len(m.Values))
	for r, row := range m.Values {
		out[r] = row[i]
	}
	return out
}

// Slice returns the rows inside the window. The window must be non-empty and
// lie within the matrix's first and last date.
func (m StationMatrix) Slice(window DateRange) (StationMatrix, error) {
	if err := window.Validate(); err != nil {
		return StationMatrix{}, err
	}
	if len(m.Dates) == 0 {
		return StationMatrix{}, fmt.Errorf("%w: %s matrix has no dates", ErrDateAlignment, m.Variable)
	}
	first, last := m.Dates[0], m.Dates[len(m.Dates)-1]
	if window.Start.Before(first) || window.End.After(last) {
		return StationMatrix{}, fmt.Errorf("%w: window %s outside %s index %s",
			ErrDateAlignment, window, m.Variable, DateRange{Start: first, End: last})
	}

	out := StationMatrix{Variable: m.Variable}
	for r, d := range m.Dates {
		if !window.Contains(d) {
			continue
		}
		out.Dates = append(out.Dates, d)
		out.Values = append(out.Values, append([]float64(nil), m.Values[r]...))
	}
	if len(out.Dates) == 0 {
		return StationMatrix{}, fmt.Errorf("%w: window %s selects no %s rows", ErrDateAlignment, window, m.Variable)
	}
	return out, nil
}

// SelectStations returns a matrix holding only the given station columns, in
// the given order.
func (m StationMatrix) SelectStations(idx []int) (StationMatrix, error) {
	n := m.NStations()
	for _, i := range idx {
		if i < 0 || i >= n {
			return StationMatrix{}, fmt.Errorf("%w: station %d out of range 0..%d", ErrDimensionMismatch, i, n-1)
		}
	}
	out := StationMatrix{
		Variable: m.Variable,
		Dates:    m.Dates,
		Values:   make([][]float64, len(m.Values)),
	}
	for r, row := range m.Values {
		sel := make([]float64, len(idx))
		for j, i := range idx {
			sel[j] = row[i]
		}
		out.Values[r] = sel
	}
	return out, nil
}

// AssembleMatrix places column of series[i] at station position i. Every
// series must have the same length and the same dates as series[0].
func AssembleMatrix(series []CanonicalSeries, column string, nStations int) (StationMatrix, error) {
	if nStations <= 0 {
		return StationMatrix{}, fmt.Errorf("%w: station count must be positive, got %d", ErrDimensionMismatch, nStations)
	}
	if len(series) != nStations {
		return StationMatrix{}, fmt.Errorf("%w: %d station series for %d stations", ErrDimensionMismatch, len(series), nStations)
	}

	dates := series[0].Dates
	for i, s := range series {
		if s.Len() != len(dates) {
			return StationMatrix{}, fmt.Errorf("%w: station %d has %d rows, station 0 has %d",
				ErrDimensionMismatch, i, s.Len(), len(dates))
		}
		for r := range dates {
			if !s.Dates[r].Equal(dates[r]) {
				return StationMatrix{}, fmt.Errorf("%w: station %d row %d is %s, station 0 is %s",
					ErrDateAlignment, i, r+1, s.Dates[r].Format(time.DateOnly), dates[r].Format(time.DateOnly))
			}
		}
	}

	cols := make([][]float64, nStations)
	for i, s := range series {
		c, ok := s.Column(column)
		if !ok {
			return StationMatrix{}, fmt.Errorf("%w: station %d has no %s column", ErrMissingVariable, i, column)
		}
		cols[i] = c
	}

	values := make([][]float64, len(dates))
	for r := range values {
		row := make([]float64, nStations)
		for i := range cols {
			row[i] = cols[i][r]
		}
		values[r] = row
	}
	return StationMatrix{
		Variable: column,
		Dates:    append([]time.Time(nil), dates...),
		Values:   values,
	}, nil
}

// StationMatrices are the per-variable matrices built from station
// meteorological series.
type StationMatrices struct {
	Tmin   StationMatrix
	Tmax   StationMatrix
	Precip StationMatrix
	Tavg   StationMatrix
}

// All returns the matrices in a stable order.
func (s StationMatrices) All() []StationMatrix {
	return []StationMatrix{s.Tmin, s.Tmax, s.Precip, s.Tavg}
}

// AssembleStationMatrices builds the min, max and precipitation matrices and
// then derives average temperature as (Tmin+Tmax)/2 per cell.
func AssembleStationMatrices(series []CanonicalSeries, nStations int) (StationMatrices, error) {
	for i, s := range series {
		if s.Kind != KindStation {
			return StationMatrices{}, fmt.Errorf("%w: station %d is a %s series", ErrInputFormat, i, s.Kind)
		}
	}

	var out StationMatrices
	var err error
	if out.Tmin, err = AssembleMatrix(series, ColTminC, nStations); err != nil {
		return StationMatrices{}, err
	}
	if out.Tmax, err = AssembleMatrix(series, ColTmaxC, nStations); err != nil {
		return StationMatrices{}, err
	}
	if out.Precip, err = AssembleMatrix(series, ColStationP, nStations); err != nil {
		return StationMatrices{}, err
	}
	out.Tmin.Variable, out.Tmax.Variable, out.Precip.Variable = VarTmin, VarTmax, VarPrecip
	out.Tavg = averageMatrix(out.Tmin, out.Tmax, VarTavg)
	return out, nil
}

// averageMatrix assumes a and b share shape and dates.
func averageMatrix(a, b StationMatrix, variable string) StationMatrix {
	values := make([][]float64, len(a.Values))
	for r := range a.Values {
		row := make([]float64, len(a.Values[r]))
		for i := range row {
			row[i] = (a.Values[r][i] + b.Values[r][i]) / 2
		}
		values[r] = row
	}
	return StationMatrix{
		Variable: variable,
		Dates:    a.Dates,
		Values:   values,
	}
}

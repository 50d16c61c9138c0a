package domain

import (
	"time"
)

const tol = 1e-9

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// dailyDates returns every day from start to end inclusive.
func dailyDates(start, end time.Time) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// matrixOf builds a matrix whose cell values come from fn.
func matrixOf(variable string, dates []time.Time, nStations int, fn func(d time.Time, station int) float64) StationMatrix {
	m := StationMatrix{Variable: variable, Dates: dates, Values: make([][]float64, len(dates))}
	for r, d := range dates {
		row := make([]float64, nStations)
		for s := range row {
			row[s] = fn(d, s)
		}
		m.Values[r] = row
	}
	return m
}

// stationSeries builds a station meteorological series directly, already in °C.
func stationSeries(dates []time.Time, tmax, tmin []float64) CanonicalSeries {
	n := len(dates)
	tavg, precip := make([]float64, n), make([]float64, n)
	for i := range dates {
		tavg[i] = (tmax[i] + tmin[i]) / 2
		precip[i] = float64(i)
	}
	return CanonicalSeries{
		Kind:    KindStation,
		Dates:   dates,
		Columns: KindStation.Columns(),
		Values:  [][]float64{tmax, tmin, tavg, precip},
	}
}

package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Canonical column names.
const (
	ColFlowCFS   = "flow_cfs"
	ColFlowCMS   = "flow_cms"
	ColFlowMMDay = "flow_mmday"

	ColPrecipM  = "precip_m"
	ColPrecipMM = "precip_mm"

	ColTmaxC    = "Tmax_C"
	ColTminC    = "Tmin_C"
	ColTavgC    = "Tavg_C"
	ColStationP = "Precip_mm"
)

// Kind is the variable family a raw table carries.
type Kind string

const (
	KindStreamflow    Kind = "streamflow"
	KindPrecipitation Kind = "precipitation"
	KindStation       Kind = "station"
)

// Columns returns the fixed canonical column set for the kind.
func (k Kind) Columns() []string {
	switch k {
	case KindStreamflow:
		return []string{ColFlowCFS, ColFlowCMS, ColFlowMMDay}
	case KindPrecipitation:
		return []string{ColPrecipM, ColPrecipMM}
	case KindStation:
		return []string{ColTmaxC, ColTminC, ColTavgC, ColStationP}
	default:
		return nil
	}
}

// stationLayout is the fixed raw layout of station meteorological files.
var stationLayout = []string{"Date", "Tmax_F", "Tmin_F", "Tavg_F", "Precip_in"}

// stationDateLayouts are tried in order when parsing the station Date column.
var stationDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02T15:04:05",
}

// RawTable is a delimited file as read: column names and string cells.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of the named column, or -1.
func (t RawTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// CanonicalSeries is one station's date-indexed observations for one kind,
// with every unit variant of the kind populated.
type CanonicalSeries struct {
	Kind    Kind
	Dates   []time.Time
	Columns []string
	Values  [][]float64 // parallel to Columns, each len(Dates)

	// SourceUnit is the raw column the unit family was derived from.
	SourceUnit string
}

// Len returns the number of observation days.
func (s CanonicalSeries) Len() int { return len(s.Dates) }

// Column returns the values of the named canonical column.
func (s CanonicalSeries) Column(name string) ([]float64, bool) {
	for i, c := range s.Columns {
		if c == name {
			return s.Values[i], true
		}
	}
	return nil, false
}

// BuildOptions configures BuildSeries.
type BuildOptions struct {
	Kind Kind

	// Columns, when set, renames the raw columns positionally. Leave empty to
	// keep the names the reader inferred from the header row.
	Columns []string

	// DrainageAreaM2 is required for streamflow.
	DrainageAreaM2 float64
}

// BuildSeries converts one raw table into a canonical series. Rows must be
// in strictly increasing date order; the row order becomes the date index.
func BuildSeries(table RawTable, opts BuildOptions) (CanonicalSeries, error) {
	table, err := renameColumns(table, opts.Columns)
	if err != nil {
		return CanonicalSeries{}, err
	}

	var s CanonicalSeries
	switch opts.Kind {
	case KindStreamflow:
		s, err = buildStreamflow(table, opts.DrainageAreaM2)
	case KindPrecipitation:
		s, err = buildPrecipitation(table)
	case KindStation:
		s, err = buildStation(table)
	default:
		return CanonicalSeries{}, fmt.Errorf("%w: unknown kind %q", ErrInputFormat, opts.Kind)
	}
	if err != nil {
		return CanonicalSeries{}, fmt.Errorf("build %s series: %w", opts.Kind, err)
	}

	if err := CheckDateOrder(s.Dates); err != nil {
		return CanonicalSeries{}, fmt.Errorf("build %s series: %w", opts.Kind, err)
	}
	return s, nil
}

// CheckDateOrder verifies that dates are strictly increasing.
func CheckDateOrder(dates []time.Time) error {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return fmt.Errorf("%w: row %d date %s does not follow %s",
				ErrInputFormat, i+1, dates[i].Format(time.DateOnly), dates[i-1].Format(time.DateOnly))
		}
	}
	return nil
}

func renameColumns(t RawTable, names []string) (RawTable, error) {
	if len(names) == 0 {
		return t, nil
	}
	if len(names) != len(t.Columns) {
		return RawTable{}, fmt.Errorf("%w: %d column names configured for a table with %d columns",
			ErrInputFormat, len(names), len(t.Columns))
	}
	cols := make([]string, len(names))
	copy(cols, names)
	return RawTable{Columns: cols, Rows: t.Rows}, nil
}

func buildStreamflow(t RawTable, areaM2 float64) (CanonicalSeries, error) {
	if err := ValidateDrainageArea(areaM2); err != nil {
		return CanonicalSeries{}, err
	}

	unit, col, err := detectFlowUnit(t)
	if err != nil {
		return CanonicalSeries{}, err
	}
	dates, err := parseYMDDates(t)
	if err != nil {
		return CanonicalSeries{}, err
	}

	n := len(t.Rows)
	cfs, cms, mmday := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, row := range t.Rows {
		v, err := cellValue(row, col, i)
		if err != nil {
			return CanonicalSeries{}, err
		}
		f := Flow{Unit: unit, Value: v}
		cfs[i], cms[i], mmday[i] = f.CFS(), f.CMS(), f.MMDay(areaM2)
	}

	return CanonicalSeries{
		Kind:       KindStreamflow,
		Dates:      dates,
		Columns:    KindStreamflow.Columns(),
		Values:     [][]float64{cfs, cms, mmday},
		SourceUnit: unit.String(),
	}, nil
}

// detectFlowUnit picks the flow unit once per table. flow_cfs wins when both
// columns are present.
func detectFlowUnit(t RawTable) (FlowUnit, int, error) {
	if i := t.ColumnIndex(ColFlowCFS); i >= 0 {
		return UnitCFS, i, nil
	}
	if i := t.ColumnIndex(ColFlowCMS); i >= 0 {
		return UnitCMS, i, nil
	}
	return 0, -1, fmt.Errorf("%w: neither %s nor %s column present", ErrMissingVariable, ColFlowCFS, ColFlowCMS)
}

func buildPrecipitation(t RawTable) (CanonicalSeries, error) {
	unit, col, err := detectPrecipUnit(t)
	if err != nil {
		return CanonicalSeries{}, err
	}
	dates, err := parseYMDDates(t)
	if err != nil {
		return CanonicalSeries{}, err
	}

	n := len(t.Rows)
	meters, mm := make([]float64, n), make([]float64, n)
	for i, row := range t.Rows {
		v, err := cellValue(row, col, i)
		if err != nil {
			return CanonicalSeries{}, err
		}
		p := Precip{Unit: unit, Value: v}
		meters[i], mm[i] = p.Meters(), p.MM()
	}

	return CanonicalSeries{
		Kind:       KindPrecipitation,
		Dates:      dates,
		Columns:    KindPrecipitation.Columns(),
		Values:     [][]float64{meters, mm},
		SourceUnit: unit.String(),
	}, nil
}

func detectPrecipUnit(t RawTable) (PrecipUnit, int, error) {
	if i := t.ColumnIndex(ColPrecipM); i >= 0 {
		return UnitMeters, i, nil
	}
	if i := t.ColumnIndex(ColPrecipMM); i >= 0 {
		return UnitMillimeters, i, nil
	}
	return 0, -1, fmt.Errorf("%w: neither %s nor %s column present", ErrMissingVariable, ColPrecipM, ColPrecipMM)
}

// buildStation converts the fixed five-column imperial layout. Columns are
// taken by position; every output column is always converted.
func buildStation(t RawTable) (CanonicalSeries, error) {
	if len(t.Columns) != len(stationLayout) {
		return CanonicalSeries{}, fmt.Errorf("%w: station table has %d columns, want %d %v",
			ErrInputFormat, len(t.Columns), len(stationLayout), stationLayout)
	}

	n := len(t.Rows)
	dates := make([]time.Time, n)
	tmax, tmin, tavg, precip := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, row := range t.Rows {
		raw, err := cell(row, 0, i)
		if err != nil {
			return CanonicalSeries{}, err
		}
		d, err := parseStationDate(raw)
		if err != nil {
			return CanonicalSeries{}, fmt.Errorf("%w: row %d: %v", ErrInputFormat, i+1, err)
		}
		dates[i] = d

		vals := [4]float64{}
		for j := range vals {
			v, err := cellValue(row, j+1, i)
			if err != nil {
				return CanonicalSeries{}, err
			}
			vals[j] = v
		}
		tmax[i] = FahrenheitToCelsius(vals[0])
		tmin[i] = FahrenheitToCelsius(vals[1])
		tavg[i] = FahrenheitToCelsius(vals[2])
		precip[i] = InchesToMM(vals[3])
	}

	return CanonicalSeries{
		Kind:       KindStation,
		Dates:      dates,
		Columns:    KindStation.Columns(),
		Values:     [][]float64{tmax, tmin, tavg, precip},
		SourceUnit: "imperial",
	}, nil
}

func parseStationDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range stationDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseYMDDates reads the year, month and day integer columns.
func parseYMDDates(t RawTable) ([]time.Time, error) {
	var idx [3]int
	for j, name := range []string{"year", "month", "day"} {
		idx[j] = t.ColumnIndex(name)
		if idx[j] < 0 {
			return nil, fmt.Errorf("%w: date column %q not found in %v", ErrInputFormat, name, t.Columns)
		}
	}

	dates := make([]time.Time, len(t.Rows))
	for i, row := range t.Rows {
		var parts [3]int
		for j, col := range idx {
			raw, err := cell(row, col, i)
			if err != nil {
				return nil, err
			}
			v, err := parseInt(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", ErrInputFormat, i+1, err)
			}
			parts[j] = v
		}
		d, err := calendarDate(parts[0], parts[1], parts[2])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInputFormat, i+1, err)
		}
		dates[i] = d
	}
	return dates, nil
}

// calendarDate rejects values time.Date would silently normalize, such as
// month 13 or February 30.
func calendarDate(year, month, day int) (time.Time, error) {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, fmt.Errorf("invalid calendar date %04d-%02d-%02d", year, month, day)
	}
	return d, nil
}

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	// Readers that typed the column as float write "2001.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

func cell(row []string, col, rowIdx int) (string, error) {
	if col >= len(row) {
		return "", fmt.Errorf("%w: row %d has %d fields, need column %d", ErrInputFormat, rowIdx+1, len(row), col+1)
	}
	return row[col], nil
}

func cellValue(row []string, col, rowIdx int) (float64, error) {
	raw, err := cell(row, col, rowIdx)
	if err != nil {
		return 0, err
	}
	v, err := ParseValue(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d: %v", ErrInputFormat, rowIdx+1, err)
	}
	return v, nil
}

// ParseValue parses a numeric cell. Empty and sentinel cells are missing
// observations and parse to NaN.
func ParseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null", "-9999":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

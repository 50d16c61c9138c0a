// Package mockdata generates reproducible synthetic observation files and a
// matching analysis plan.
package mockdata

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/station-climate-etl/internal/config"
)

// Options controls what is generated.
type Options struct {
	Start          time.Time
	End            time.Time
	Stations       int
	Seed           int64
	DrainageAreaM2 float64

	// MissingEvery blanks one station observation in every n rows. Zero
	// disables gaps.
	MissingEvery int
}

// DefaultOptions covers three full years at four stations.
func DefaultOptions() Options {
	return Options{
		Start:          time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2003, 12, 31, 0, 0, 0, 0, time.UTC),
		Stations:       4,
		Seed:           42,
		DrainageAreaM2: 5.0e6,
		MissingEvery:   97,
	}
}

func (o Options) days() []time.Time {
	var out []time.Time
	for d := o.Start; !d.After(o.End); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// seasonal is a unit sine wave peaking mid-July.
func seasonal(d time.Time) float64 {
	return math.Sin(2 * math.Pi * float64(d.YearDay()-105) / 365.25)
}

func format(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

// StationRecords returns a header and one row per day in the comma station
// layout (Date, Tmax_F, Tmin_F, Tavg_F, Precip_in). Higher station indices
// are colder, as if higher up.
func StationRecords(o Options, station int) [][]string {
	rng := rand.New(rand.NewSource(o.Seed + int64(station)))
	out := [][]string{{"Date", "Tmax_F", "Tmin_F", "Tavg_F", "Precip_in"}}
	for i, d := range o.days() {
		tmax := 62 + 22*seasonal(d) - 3.5*float64(station) + rng.NormFloat64()*4
		tmin := tmax - 18 - rng.Float64()*6
		precip := 0.0
		if rng.Float64() < 0.3 {
			precip = rng.ExpFloat64() * 0.2
		}
		row := []string{d.Format(time.DateOnly), format(tmax), format(tmin), format((tmax + tmin) / 2), format(precip)}
		if o.MissingEvery > 0 && (i+station)%o.MissingEvery == 0 {
			row[1] = "NA"
		}
		out = append(out, row)
	}
	return out
}

// StreamflowRecords returns a header and one row per day in the tab
// streamflow layout with flows in cfs.
func StreamflowRecords(o Options) [][]string {
	rng := rand.New(rand.NewSource(o.Seed * 31))
	out := [][]string{{"agency", "site", "year", "month", "day", "flow_cfs"}}
	for _, d := range o.days() {
		// Snowmelt peak in late spring.
		flow := 40 + 30*math.Max(0, math.Sin(2*math.Pi*float64(d.YearDay()-60)/365.25)) + rng.Float64()*5
		out = append(out, []string{"USGS", "09000000", strconv.Itoa(d.Year()), strconv.Itoa(int(d.Month())),
			strconv.Itoa(d.Day()), format(flow)})
	}
	return out
}

// PrecipRecords returns a header and one row per day in the whitespace
// precipitation layout with depths in metres.
func PrecipRecords(o Options) [][]string {
	rng := rand.New(rand.NewSource(o.Seed * 17))
	out := [][]string{{"year", "month", "day", "precip_m"}}
	for _, d := range o.days() {
		p := 0.0
		if rng.Float64() < 0.25 {
			p = rng.ExpFloat64() * 0.004
		}
		out = append(out, []string{strconv.Itoa(d.Year()), strconv.Itoa(int(d.Month())), strconv.Itoa(d.Day()),
			strconv.FormatFloat(p, 'f', 5, 64)})
	}
	return out
}

// Fixtures lists the files WriteFixtures produced.
type Fixtures struct {
	Stations      []string
	Streamflow    string
	Precipitation string
	Plan          string
}

// WriteFixtures writes every file and analysis.yaml into dir. Paths in the
// plan are absolute so it can be loaded from anywhere.
func WriteFixtures(dir string, o Options) (Fixtures, error) {
	if o.Stations < 2 {
		return Fixtures{}, fmt.Errorf("need at least 2 stations for elevation bands, got %d", o.Stations)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return Fixtures{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Fixtures{}, err
	}

	var fx Fixtures
	plan := config.Plan{MonthlyAnomalyDivisor: 1}

	for i := 0; i < o.Stations; i++ {
		path := filepath.Join(dir, fmt.Sprintf("station_%02d.csv", i))
		if err := writeDelimited(path, ',', StationRecords(o, i)); err != nil {
			return Fixtures{}, err
		}
		fx.Stations = append(fx.Stations, path)
		plan.Stations = append(plan.Stations, config.Source{
			Name:      fmt.Sprintf("station-%02d", i),
			Path:      path,
			Delimiter: config.DelimiterComma,
		})
	}

	fx.Streamflow = filepath.Join(dir, "streamflow.tsv")
	if err := writeDelimited(fx.Streamflow, '\t', StreamflowRecords(o)); err != nil {
		return Fixtures{}, err
	}
	plan.Streamflow = &config.FlowSource{
		Source:         config.Source{Name: "gauge", Path: fx.Streamflow, Delimiter: config.DelimiterTab},
		DrainageAreaM2: o.DrainageAreaM2,
	}

	fx.Precipitation = filepath.Join(dir, "precip.txt")
	if err := writeWhitespace(fx.Precipitation, PrecipRecords(o)); err != nil {
		return Fixtures{}, err
	}
	plan.Precipitation = &config.Source{Name: "rain-gauge", Path: fx.Precipitation, Delimiter: config.DelimiterWhitespace}

	// Highest index is the coldest station.
	plan.Elevation = config.Elevation{Max: []int{o.Stations - 1}, Min: []int{0}}

	data, err := yaml.Marshal(plan)
	if err != nil {
		return Fixtures{}, fmt.Errorf("marshal plan: %w", err)
	}
	fx.Plan = filepath.Join(dir, "analysis.yaml")
	if err := os.WriteFile(fx.Plan, data, 0o600); err != nil {
		return Fixtures{}, err
	}
	return fx, nil
}

func writeDelimited(path string, comma rune, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = comma
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeWhitespace(path string, records [][]string) error {
	var b strings.Builder
	for _, rec := range records {
		b.WriteString(strings.Join(rec, "  "))
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

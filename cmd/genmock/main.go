// Command genmock writes reproducible synthetic station, streamflow and
// precipitation files plus a matching analysis plan. It builds every file
// through the domain package so the fixtures are known to be valid input.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -stations 4 -start 2001-01-01 -end 2003-12-31
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/couchcryptid/station-climate-etl/internal/domain"
	"github.com/couchcryptid/station-climate-etl/internal/mockdata"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	defaults := mockdata.DefaultOptions()

	out := flag.String("out", "data/mock", "output directory for fixtures and analysis.yaml")
	stations := flag.Int("stations", defaults.Stations, "number of stations")
	start := flag.String("start", defaults.Start.Format(time.DateOnly), "first day (YYYY-MM-DD)")
	end := flag.String("end", defaults.End.Format(time.DateOnly), "last day (YYYY-MM-DD)")
	seed := flag.Int64("seed", defaults.Seed, "random seed")
	area := flag.Float64("drainage-area", defaults.DrainageAreaM2, "streamflow drainage area in m²")
	missing := flag.Int("missing-every", defaults.MissingEvery, "blank one station value every n rows (0 disables)")
	flag.Parse()

	opts := mockdata.Options{
		Stations:       *stations,
		Seed:           *seed,
		DrainageAreaM2: *area,
		MissingEvery:   *missing,
	}
	var err error
	if opts.Start, err = time.Parse(time.DateOnly, *start); err != nil {
		return fmt.Errorf("-start: %w", err)
	}
	if opts.End, err = time.Parse(time.DateOnly, *end); err != nil {
		return fmt.Errorf("-end: %w", err)
	}
	if opts.End.Before(opts.Start) {
		return fmt.Errorf("-end %s is before -start %s", *end, *start)
	}
	if err := domain.ValidateDrainageArea(opts.DrainageAreaM2); err != nil {
		return fmt.Errorf("-drainage-area: %w", err)
	}

	fx, err := mockdata.WriteFixtures(*out, opts)
	if err != nil {
		return fmt.Errorf("writing fixtures: %w", err)
	}

	for i, path := range fx.Stations {
		log.Printf("station %d: %s", i, path)
	}
	log.Printf("streamflow: %s", fx.Streamflow)
	log.Printf("precipitation: %s", fx.Precipitation)
	log.Printf("plan: %s", fx.Plan)

	printStats(opts)
	return nil
}

// printStats builds the generated records in memory and prints the numbers
// tests are most likely to assert on.
func printStats(opts mockdata.Options) {
	fmt.Println("\n=== Stats for updating test assertions ===")

	for i := 0; i < opts.Stations; i++ {
		recs := mockdata.StationRecords(opts, i)
		s, err := domain.BuildSeries(domain.RawTable{Columns: recs[0], Rows: recs[1:]},
			domain.BuildOptions{Kind: domain.KindStation})
		if err != nil {
			fmt.Printf("station %d: %v\n", i, err)
			continue
		}
		tavg, _ := s.Column(domain.ColTavgC)
		precip, _ := s.Column(domain.ColStationP)
		fmt.Printf("station %d: %d days, mean Tavg %.2f °C, missing %d, total precip %.1f mm\n",
			i, s.Len(), mean(tavg), countNaN(tavg), sum(precip))
	}

	flow := mockdata.StreamflowRecords(opts)
	fs, err := domain.BuildSeries(domain.RawTable{Columns: flow[0], Rows: flow[1:]},
		domain.BuildOptions{Kind: domain.KindStreamflow, DrainageAreaM2: opts.DrainageAreaM2})
	if err != nil {
		fmt.Printf("streamflow: %v\n", err)
	} else {
		mmday, _ := fs.Column(domain.ColFlowMMDay)
		fmt.Printf("streamflow: %d days, mean %.3f mm/day\n", fs.Len(), mean(mmday))
	}

	precip := mockdata.PrecipRecords(opts)
	ps, err := domain.BuildSeries(domain.RawTable{Columns: precip[0], Rows: precip[1:]},
		domain.BuildOptions{Kind: domain.KindPrecipitation})
	if err != nil {
		fmt.Printf("precipitation: %v\n", err)
	} else {
		mm, _ := ps.Column(domain.ColPrecipMM)
		fmt.Printf("precipitation: %d days, total %.1f mm\n", ps.Len(), sum(mm))
	}
}

func sum(vals []float64) float64 {
	total := 0.0
	for _, v := range vals {
		if !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

func countNaN(vals []float64) int {
	n := 0
	for _, v := range vals {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

func mean(vals []float64) float64 {
	n := len(vals) - countNaN(vals)
	if n == 0 {
		return math.NaN()
	}
	return sum(vals) / float64(n)
}

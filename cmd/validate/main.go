// Command validate checks every input file named by an analysis plan against
// the series builder invariants: the file parses, the unit columns are
// present, dates are strictly increasing, station files share one date axis,
// unit variants agree, and the sources overlap in time.
//
// Usage:
//
//	go run ./cmd/validate -plan data/mock/analysis.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/station-climate-etl/internal/adapter/tabular"
	"github.com/couchcryptid/station-climate-etl/internal/config"
	"github.com/couchcryptid/station-climate-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// input is one file of the plan and what became of it.
type input struct {
	label  string
	src    config.Source
	opts   domain.BuildOptions
	table  domain.RawTable
	series domain.CanonicalSeries
	built  bool
}

func main() {
	planPath := flag.String("plan", "", "path to the analysis plan YAML")
	flag.Parse()

	if *planPath == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(*planPath))
}

func run(planPath string) int {
	fmt.Println("=== Station Climate Input Validation ===")
	fmt.Println()

	plan, err := config.LoadPlan(planPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	inputs := planInputs(plan)
	phases := []*phase{
		validateRead(inputs),
		validateBuild(inputs),
		validateStationAxis(inputs, len(plan.Stations)),
		validateUnits(inputs, plan),
		validateOverlap(inputs),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	for _, in := range inputs {
		if in.built {
			fmt.Printf("  %-24s %6d rows  %s\n", in.label, in.series.Len(), in.series.SourceUnit)
		}
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func planInputs(plan *config.Plan) []*input {
	var out []*input
	for i, st := range plan.Stations {
		out = append(out, &input{
			label: fmt.Sprintf("station %d (%s)", i, st.Name),
			src:   st,
			opts:  domain.BuildOptions{Kind: domain.KindStation, Columns: st.Columns},
		})
	}
	if plan.Streamflow != nil {
		out = append(out, &input{
			label: "streamflow",
			src:   plan.Streamflow.Source,
			opts: domain.BuildOptions{
				Kind:           domain.KindStreamflow,
				Columns:        plan.Streamflow.Columns,
				DrainageAreaM2: plan.Streamflow.DrainageAreaM2,
			},
		})
	}
	if plan.Precipitation != nil {
		out = append(out, &input{
			label: "precipitation",
			src:   *plan.Precipitation,
			opts:  domain.BuildOptions{Kind: domain.KindPrecipitation, Columns: plan.Precipitation.Columns},
		})
	}
	return out
}

// ── Phase 1: Read ──

func validateRead(inputs []*input) *phase {
	p := &phase{name: "Phase 1: Read (delimited files)"}
	reader := tabular.NewReader()
	for _, in := range inputs {
		table, err := reader.Read(context.Background(), tabular.Source{
			Path:      in.src.Path,
			Delimiter: in.src.Delimiter,
			Header:    in.src.HasHeader(),
		})
		if err != nil {
			p.errorf("%s: %v", in.label, err)
			continue
		}
		in.table = table
	}
	return p
}

// ── Phase 2: Build ──

func validateBuild(inputs []*input) *phase {
	p := &phase{name: "Phase 2: Build (canonical series)"}
	for _, in := range inputs {
		if in.table.Columns == nil {
			continue
		}
		s, err := domain.BuildSeries(in.table, in.opts)
		if err != nil {
			p.errorf("%s: %v", in.label, err)
			continue
		}
		in.series, in.built = s, true
	}
	return p
}

// ── Phase 3: Station Axis ──

func validateStationAxis(inputs []*input, nStations int) *phase {
	p := &phase{name: "Phase 3: Station Axis (shared dates)"}
	var series []domain.CanonicalSeries
	for _, in := range inputs {
		if in.opts.Kind != domain.KindStation {
			continue
		}
		if !in.built {
			p.errorf("%s: not built, station axis not checked", in.label)
			return p
		}
		series = append(series, in.series)
	}
	if _, err := domain.AssembleStationMatrices(series, nStations); err != nil {
		p.errorf("%v", err)
	}
	return p
}

// ── Phase 4: Units ──

func validateUnits(inputs []*input, plan *config.Plan) *phase {
	p := &phase{name: "Phase 4: Units (variant consistency)"}
	for _, in := range inputs {
		if !in.built {
			continue
		}
		s := in.series
		switch s.Kind {
		case domain.KindStreamflow:
			cfs, _ := s.Column(domain.ColFlowCFS)
			cms, _ := s.Column(domain.ColFlowCMS)
			mmday, _ := s.Column(domain.ColFlowMMDay)
			for r := range cfs {
				checkClose(p, in.label, r, "cfs/cms", domain.CMSToCFS(cms[r]), cfs[r])
				checkClose(p, in.label, r, "mm/day", domain.CMSToMMDay(cms[r], plan.Streamflow.DrainageAreaM2), mmday[r])
			}
		case domain.KindPrecipitation:
			m, _ := s.Column(domain.ColPrecipM)
			mm, _ := s.Column(domain.ColPrecipMM)
			for r := range m {
				checkClose(p, in.label, r, "m/mm", domain.MetersToMM(m[r]), mm[r])
				if mm[r] < 0 {
					p.errorf("%s row %d: negative precipitation %g mm", in.label, r+1, mm[r])
				}
			}
		case domain.KindStation:
			tmax, _ := s.Column(domain.ColTmaxC)
			tmin, _ := s.Column(domain.ColTminC)
			for r := range tmax {
				if tmin[r] > tmax[r] {
					p.errorf("%s row %d: Tmin %.2f °C above Tmax %.2f °C", in.label, r+1, tmin[r], tmax[r])
				}
			}
		}
	}
	return p
}

func checkClose(p *phase, label string, row int, what string, want, got float64) {
	if math.IsNaN(want) && math.IsNaN(got) {
		return
	}
	if math.Abs(want-got) > 1e-6*math.Max(1, math.Abs(want)) {
		p.errorf("%s row %d: %s variants disagree: %g vs %g", label, row+1, what, want, got)
	}
}

// ── Phase 5: Overlap ──

func validateOverlap(inputs []*input) *phase {
	p := &phase{name: "Phase 5: Overlap (analysis window)"}
	var base *input
	for _, in := range inputs {
		if !in.built {
			continue
		}
		if base == nil {
			base = in
			continue
		}
		w, err := domain.OverlappingDates(base.series.Dates, in.series.Dates)
		if err != nil {
			p.errorf("%s vs %s: %v", base.label, in.label, err)
			continue
		}
		if w.Empty() {
			p.errorf("%s and %s do not overlap", base.label, in.label)
			continue
		}
		fmt.Printf("  %s ∩ %s: %s\n", base.label, in.label, w)
	}
	return p
}

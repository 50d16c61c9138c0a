package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/station-climate-etl/internal/domain"
)

// Delimiters accepted in a plan.
const (
	DelimiterTab        = "tab"
	DelimiterWhitespace = "whitespace"
	DelimiterComma      = "comma"
)

// Plan describes one analysis run: which files to read, how to read them,
// and the aggregation settings that apply to every variable.
type Plan struct {
	// Stations are station meteorological files. List order is station index.
	Stations      []Source    `yaml:"stations"`
	Streamflow    *FlowSource `yaml:"streamflow,omitempty"`
	Precipitation *Source     `yaml:"precipitation,omitempty"`

	Elevation             Elevation `yaml:"elevation"`
	Window                *Window   `yaml:"window,omitempty"`
	MonthlyAnomalyDivisor float64   `yaml:"monthly_anomaly_divisor"`
}

// Source is one delimited input file.
type Source struct {
	Name      string   `yaml:"name"`
	Path      string   `yaml:"path"`
	Delimiter string   `yaml:"delimiter"`
	Header    *bool    `yaml:"header,omitempty"`
	Columns   []string `yaml:"columns,omitempty"`
}

// HasHeader reports whether the first line holds column names. Configured
// column names imply a headerless file unless header is set explicitly.
func (s Source) HasHeader() bool {
	if s.Header != nil {
		return *s.Header
	}
	return len(s.Columns) == 0
}

// FlowSource is a streamflow file plus the watershed area its flows drain.
type FlowSource struct {
	Source         `yaml:",inline"`
	DrainageAreaM2 float64 `yaml:"drainage_area_m2"`
}

// Elevation lists the station indices at the extremes of elevation.
type Elevation struct {
	Max []int `yaml:"max"`
	Min []int `yaml:"min"`
}

// Bands converts the plan setting to the aggregation type.
func (e Elevation) Bands() domain.ElevationBands {
	return domain.ElevationBands{Max: e.Max, Min: e.Min}
}

// Window is an explicit analysis window.
type Window struct {
	Start Date `yaml:"start"`
	End   Date `yaml:"end"`
}

// Range converts the plan setting to the aggregation type.
func (w Window) Range() domain.DateRange {
	return domain.DateRange{Start: w.Start.Time(), End: w.End.Time()}
}

// Date is a calendar day written as YYYY-MM-DD.
type Date time.Time

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Date) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	*d = Date(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Date) MarshalYAML() (interface{}, error) {
	return time.Time(d).Format(time.DateOnly), nil
}

// Time returns the day at UTC midnight.
func (d Date) Time() time.Time { return time.Time(d) }

// LoadPlan reads and validates an analysis plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read analysis plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes a YAML plan, fills defaults and validates it.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse analysis plan: %w", err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// applyDefaults fills per-kind delimiters, station names and the divisor.
func (p *Plan) applyDefaults() {
	for i := range p.Stations {
		if p.Stations[i].Delimiter == "" {
			p.Stations[i].Delimiter = DelimiterComma
		}
		if p.Stations[i].Name == "" {
			p.Stations[i].Name = fmt.Sprintf("station-%d", i)
		}
	}
	if p.Streamflow != nil && p.Streamflow.Delimiter == "" {
		p.Streamflow.Delimiter = DelimiterTab
	}
	if p.Precipitation != nil && p.Precipitation.Delimiter == "" {
		p.Precipitation.Delimiter = DelimiterWhitespace
	}
	if p.MonthlyAnomalyDivisor == 0 {
		p.MonthlyAnomalyDivisor = domain.DefaultMonthlyAnomalyDivisor
	}
}

// Validate checks the plan without touching the filesystem.
func (p *Plan) Validate() error {
	if len(p.Stations) == 0 {
		return errors.New("analysis plan: at least one station is required")
	}
	for i, s := range p.Stations {
		if err := s.validate(); err != nil {
			return fmt.Errorf("analysis plan: station %d: %w", i, err)
		}
	}
	if p.Streamflow != nil {
		if err := p.Streamflow.validate(); err != nil {
			return fmt.Errorf("analysis plan: streamflow: %w", err)
		}
		if err := domain.ValidateDrainageArea(p.Streamflow.DrainageAreaM2); err != nil {
			return fmt.Errorf("analysis plan: streamflow: %w", err)
		}
	}
	if p.Precipitation != nil {
		if err := p.Precipitation.validate(); err != nil {
			return fmt.Errorf("analysis plan: precipitation: %w", err)
		}
	}
	if bands := p.Elevation.Bands(); !bands.IsZero() {
		if err := bands.Validate(len(p.Stations)); err != nil {
			return fmt.Errorf("analysis plan: elevation: %w", err)
		}
	}
	if p.Window != nil {
		if err := p.Window.Range().Validate(); err != nil {
			return fmt.Errorf("analysis plan: window: %w", err)
		}
	}
	if p.MonthlyAnomalyDivisor <= 0 {
		return errors.New("analysis plan: monthly_anomaly_divisor must be positive")
	}
	return nil
}

func (s Source) validate() error {
	if s.Path == "" {
		return errors.New("path is required")
	}
	switch s.Delimiter {
	case DelimiterTab, DelimiterWhitespace, DelimiterComma:
	default:
		return fmt.Errorf("unknown delimiter %q", s.Delimiter)
	}
	return nil
}

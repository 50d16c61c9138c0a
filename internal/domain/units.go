package domain

import (
	"fmt"
	"math"
)

const (
	// feetPerMeter is the length factor cubed to convert cubic feet to cubic meters.
	feetPerMeter = 3.28084

	// cubicFeetPerCubicMeter is 3.28084³.
	cubicFeetPerCubicMeter = feetPerMeter * feetPerMeter * feetPerMeter

	secondsPerDay = 3600 * 24
	mmPerMeter    = 1000.0
	mmPerInch     = 25.4
)

// CFSToCMS converts cubic feet per second to cubic meters per second.
func CFSToCMS(cfs float64) float64 { return cfs / cubicFeetPerCubicMeter }

// CMSToCFS converts cubic meters per second to cubic feet per second.
func CMSToCFS(cms float64) float64 { return cms * cubicFeetPerCubicMeter }

// CMSToMMDay converts a volumetric flow to a daily runoff depth spread over
// the drainage area. The area must already be validated with
// ValidateDrainageArea.
func CMSToMMDay(cms, drainageAreaM2 float64) float64 {
	return cms * mmPerMeter * secondsPerDay / drainageAreaM2
}

// MetersToMM converts a precipitation depth in meters to millimeters.
func MetersToMM(m float64) float64 { return m * mmPerMeter }

// MMToMeters converts a precipitation depth in millimeters to meters.
func MMToMeters(mm float64) float64 { return mm / mmPerMeter }

// InchesToMM converts a precipitation depth in inches to millimeters.
func InchesToMM(in float64) float64 { return in * mmPerInch }

// FahrenheitToCelsius converts a temperature in °F to °C.
func FahrenheitToCelsius(f float64) float64 { return (f - 32) / 1.8 }

// ValidateDrainageArea rejects areas that cannot normalize a flow to depth.
func ValidateDrainageArea(areaM2 float64) error {
	if !(areaM2 > 0) || math.IsInf(areaM2, 1) {
		return fmt.Errorf("%w: drainage area must be a positive number of m², got %g", ErrInputFormat, areaM2)
	}
	return nil
}

// FlowUnit identifies which volumetric flow unit a raw table supplied.
type FlowUnit int

const (
	UnitCFS FlowUnit = iota + 1
	UnitCMS
)

func (u FlowUnit) String() string {
	switch u {
	case UnitCFS:
		return ColFlowCFS
	case UnitCMS:
		return ColFlowCMS
	default:
		return "unknown"
	}
}

// Flow is one flow observation tagged with the unit it was recorded in.
type Flow struct {
	Unit  FlowUnit
	Value float64
}

// CFS returns the observation in cubic feet per second.
func (f Flow) CFS() float64 {
	if f.Unit == UnitCMS {
		return CMSToCFS(f.Value)
	}
	return f.Value
}

// CMS returns the observation in cubic meters per second.
func (f Flow) CMS() float64 {
	if f.Unit == UnitCFS {
		return CFSToCMS(f.Value)
	}
	return f.Value
}

// MMDay returns the observation as runoff depth in mm/day.
func (f Flow) MMDay(drainageAreaM2 float64) float64 {
	return CMSToMMDay(f.CMS(), drainageAreaM2)
}

// PrecipUnit identifies which precipitation depth unit a raw table supplied.
type PrecipUnit int

const (
	UnitMeters PrecipUnit = iota + 1
	UnitMillimeters
)

func (u PrecipUnit) String() string {
	switch u {
	case UnitMeters:
		return ColPrecipM
	case UnitMillimeters:
		return ColPrecipMM
	default:
		return "unknown"
	}
}

// Precip is one precipitation depth tagged with its unit.
type Precip struct {
	Unit  PrecipUnit
	Value float64
}

// Meters returns the depth in meters.
func (p Precip) Meters() float64 {
	if p.Unit == UnitMillimeters {
		return MMToMeters(p.Value)
	}
	return p.Value
}

// MM returns the depth in millimeters.
func (p Precip) MM() float64 {
	if p.Unit == UnitMeters {
		return MetersToMM(p.Value)
	}
	return p.Value
}

// Package domain turns daily station observations into unit-complete series
// and computes multi-station climatologies and anomalies.
//
// # Data Sources
//
// Three raw table kinds are supported. Column names come from a header row
// or from configured names applied positionally.
//
//	streamflow     year, month, day, flow_cfs | flow_cms        (tab separated)
//	precipitation  year, month, day, precip_m | precip_mm       (whitespace separated)
//	station        Date, Tmax_F, Tmin_F, Tavg_F, Precip_in      (comma separated, by position)
//
// Empty cells and the sentinels NA, NaN, null and -9999 are missing
// observations and become NaN.
//
// # Units
//
// Every canonical series carries all unit variants of its kind:
//
//	streamflow     flow_cfs, flow_cms, flow_mmday
//	precipitation  precip_m, precip_mm
//	station        Tmax_C, Tmin_C, Tavg_C, Precip_mm
//
// Conversions:
//
//	cms   = cfs / 3.28084³
//	mmday = cms × 1000 × 86400 / drainage_area_m2
//	°C    = (°F − 32) / 1.8
//	mm    = in × 25.4
//
// The supplied unit is detected once per table ([Flow], [Precip]); when both
// flow_cfs and flow_cms are present, flow_cfs is used.
//
// # Date Index
//
// Rows become the date index in file order. Dates must be strictly
// increasing; duplicates and out-of-order rows are rejected with
// [ErrInputFormat] rather than re-sorted.
//
// # Station Matrices
//
// A [StationMatrix] is date × station for one variable. Stations are
// identified by position only (0..n-1), in the order their series were
// supplied. Average temperature is derived after assembly as
// (Tmin + Tmax) / 2 per cell.
//
// # Aggregation
//
// [Aggregate] slices a matrix to a window and produces month-of-year and
// calendar-year means per station and across stations, month-of-year means
// for the two elevation bands, the multi-year baseline and the annual
// anomaly. Means skip NaN cells; a group with no finite values is NaN.
//
// [AggregateMonthly] groups by calendar month instead. Historical output of
// this variant was divided by 1000; that divisor is kept as
// [LegacyMonthlyAnomalyDivisor] and is not applied unless asked for.
package domain

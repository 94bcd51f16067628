// Package domain derives the analytical COVID-19 tables for Malaysia from two
// raw inputs: the per-state cumulative case table and the multi-country
// national time series.
//
// # Data Sources
//
// The per-state table comes from the ynshung/covid-19-malaysia repository
// (covid-19-my-states-cases.csv). The national series comes from Our World in
// Data (owid-covid-data.csv) and is filtered to a single ISO country code.
// Region names used for map joins come from the codeforamerica malaysia.geojson
// boundary file.
//
// # Cumulative Table Conventions
//
// Header:
//
//	date,perlis,kedah,pulau-pinang,...,wp-putrajaya,wp-labuan
//	lowercase hyphenated region identifiers, one column per region.
//
// Dates:
//
//	day/month/year, e.g. "27/01/2020". Unpadded day and month are accepted.
//	Any other layout (including ISO-8601) is rejected rather than guessed.
//
// Cells:
//
//	Non-negative integers. "-" is the documented placeholder for "no data"
//	and becomes 0. Every other non-numeric value is a MalformedInputError.
//
// # Derived Tables
//
//	CumulativeTable  normalized wide table, leading rows dropped
//	DailyTable       day-over-day deltas, first row 0, overrides applied
//	MonthlyTable     deltas summed per YYYY/MM bucket
//	LongRecord       (date, canonical state name, cumulative, year_month)
//	StateProfile     latest figures joined with population and area
//	NationalSeries   one country's daily epidemiological metrics
//	CountryTotal     per-country totals for one continent
//
// # Anomaly Overrides
//
// Known negative deltas caused by upstream backfills are patched through an
// explicit override table keyed by (date, region). Overrides are applied after
// differencing and recorded as Corrections. Negative deltas that no override
// covers are left in place and reported as AnomalyCorrectionMiss so the table
// can be updated; they are never clamped.
//
// # Year-Month Buckets
//
// Every stage derives year-month keys through [YearMonth], which formats a
// zero-padded "YYYY/MM" so that plain string sorting orders the buckets.
package domain

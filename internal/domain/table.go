package domain

import (
	"time"
)

// DateLayout is the day/month/year layout of report dates in the cumulative table.
const DateLayout = "02/01/2006"

// RawInputs holds the unparsed source documents for one pipeline run.
type RawInputs struct {
	Cumulative []byte // per-state cumulative CSV
	National   []byte // multi-country national CSV
	Boundary   []byte // boundary GeoJSON; empty skips the name check
}

// CumulativeRow is one report date of cumulative counts, one value per region.
type CumulativeRow struct {
	Date    time.Time
	RawDate string
	Values  []int64
}

// CumulativeTable is the normalized wide cumulative table. Rows are strictly
// ascending by date and every value is non-negative.
type CumulativeTable struct {
	Regions []string // source identifiers in column order
	Rows    []CumulativeRow
}

// Column returns the column index of a region identifier.
func (t CumulativeTable) Column(region string) (int, bool) {
	return columnOf(t.Regions, region)
}

// Latest returns the last report row.
func (t CumulativeTable) Latest() (CumulativeRow, bool) {
	if len(t.Rows) == 0 {
		return CumulativeRow{}, false
	}
	return t.Rows[len(t.Rows)-1], true
}

// Series returns one region's cumulative values in date order.
func (t CumulativeTable) Series(region string) []int64 {
	c, ok := t.Column(region)
	if !ok {
		return nil
	}
	out := make([]int64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row.Values[c]
	}
	return out
}

// DailyRow is one date of day-over-day increases.
type DailyRow struct {
	Date   time.Time
	Values []int64
}

// Correction records one override applied to the daily table.
type Correction struct {
	Date   time.Time
	Region string
	Raw    int64 // delta before the override
	Value  int64 // delta after the override
	Note   string
}

// Adjustment is the amount the override added to the raw delta.
func (c Correction) Adjustment() int64 {
	return c.Value - c.Raw
}

// DailyTable holds daily deltas with the same shape as the cumulative table.
type DailyTable struct {
	Regions     []string
	Rows        []DailyRow
	Corrections []Correction
	Misses      []AnomalyCorrectionMiss
	Stale       []Override // overrides whose date or region is not in the table
}

// Column returns the column index of a region identifier.
func (t DailyTable) Column(region string) (int, bool) {
	return columnOf(t.Regions, region)
}

// Latest returns the last daily row.
func (t DailyTable) Latest() (DailyRow, bool) {
	if len(t.Rows) == 0 {
		return DailyRow{}, false
	}
	return t.Rows[len(t.Rows)-1], true
}

// Sum adds one region's deltas over rows [from, to] inclusive.
func (t DailyTable) Sum(region string, from, to int) int64 {
	c, ok := t.Column(region)
	if !ok || from < 0 || to >= len(t.Rows) {
		return 0
	}
	var total int64
	for i := from; i <= to; i++ {
		total += t.Rows[i].Values[c]
	}
	return total
}

// LongRecord is one (date, state) observation of the long-format table.
// State is spelled exactly as in the boundary dataset.
type LongRecord struct {
	Date           time.Time `json:"date"`
	State          string    `json:"state"`
	CumulativeCase int64     `json:"cumulative_case"`
	YearMonth      string    `json:"year_month"`
}

// MonthlyRow holds the summed deltas of one YYYY/MM bucket.
type MonthlyRow struct {
	YearMonth string
	Values    []int64
}

// MonthlyTable holds monthly totals per region, buckets ascending.
type MonthlyTable struct {
	Regions []string
	Rows    []MonthlyRow
}

// Bucket returns the row for a YYYY/MM key.
func (t MonthlyTable) Bucket(yearMonth string) (MonthlyRow, bool) {
	for _, row := range t.Rows {
		if row.YearMonth == yearMonth {
			return row, true
		}
	}
	return MonthlyRow{}, false
}

// StateProfile is the latest snapshot of one region joined with reference data.
type StateProfile struct {
	Region                 string  `json:"region"`
	State                  string  `json:"state"`
	Population             int64   `json:"population"`
	Area                   float64 `json:"area"`
	CumulativeCase         int64   `json:"cumulative_case"`
	LatestDailyIncrease    int64   `json:"latest_daily_increase"`
	CumulativeInfectedRate float64 `json:"cumulative_infected_rate"`
	PopulationDensity      float64 `json:"population_density"`
}

func columnOf(regions []string, region string) (int, bool) {
	for i, r := range regions {
		if r == region {
			return i, true
		}
	}
	return 0, false
}

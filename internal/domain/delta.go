package domain

import (
	"slices"
)

// Differentiate derives daily deltas from a normalized cumulative table.
//
// Row 0 has no prior reference and is 0 for every region. Overrides are
// applied after differencing by (date, region) and recorded as Corrections.
// Negative deltas left without an override are kept and listed in Misses;
// overrides that match no cell are listed in Stale.
func Differentiate(cum CumulativeTable, overrides []Override) DailyTable {
	daily := DailyTable{
		Regions: slices.Clone(cum.Regions),
		Rows:    make([]DailyRow, len(cum.Rows)),
	}

	rowByDate := make(map[string]int, len(cum.Rows))
	for i, row := range cum.Rows {
		daily.Rows[i] = DailyRow{Date: row.Date, Values: make([]int64, len(cum.Regions))}
		rowByDate[dateKey(row)] = i
	}

	// Region columns are independent of each other.
	for c := range cum.Regions {
		for i := 1; i < len(cum.Rows); i++ {
			daily.Rows[i].Values[c] = cum.Rows[i].Values[c] - cum.Rows[i-1].Values[c]
		}
	}

	type cell struct{ row, col int }
	patched := make(map[cell]bool, len(overrides))
	for _, o := range overrides {
		i, okRow := rowByDate[o.Date.Format(DateLayout)]
		c, okCol := daily.Column(o.Region)
		if !okRow || !okCol {
			daily.Stale = append(daily.Stale, o)
			continue
		}
		raw := rawDelta(cum, i, c)
		daily.Rows[i].Values[c] = o.Value
		daily.Corrections = append(daily.Corrections, Correction{
			Date:   o.Date,
			Region: o.Region,
			Raw:    raw,
			Value:  o.Value,
			Note:   o.Note,
		})
		patched[cell{i, c}] = true
	}

	for i, row := range daily.Rows {
		for c, v := range row.Values {
			if v < 0 && !patched[cell{i, c}] {
				daily.Misses = append(daily.Misses, AnomalyCorrectionMiss{Date: row.Date, Region: daily.Regions[c], Delta: v})
			}
		}
	}
	return daily
}

func rawDelta(cum CumulativeTable, i, c int) int64 {
	if i == 0 {
		return 0
	}
	return cum.Rows[i].Values[c] - cum.Rows[i-1].Values[c]
}

func dateKey(row CumulativeRow) string {
	return row.Date.Format(DateLayout)
}

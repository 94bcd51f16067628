package domain

import (
	"slices"
	"strings"
)

// AggregateMonthly sums daily deltas per YYYY/MM bucket. Buckets are sorted
// ascending; the fixed-width key makes string order chronological.
func AggregateMonthly(daily DailyTable) MonthlyTable {
	monthly := MonthlyTable{Regions: slices.Clone(daily.Regions)}
	index := make(map[string]int)
	for _, row := range daily.Rows {
		key := YearMonth(row.Date)
		i, ok := index[key]
		if !ok {
			i = len(monthly.Rows)
			index[key] = i
			monthly.Rows = append(monthly.Rows, MonthlyRow{YearMonth: key, Values: make([]int64, len(daily.Regions))})
		}
		for c, v := range row.Values {
			monthly.Rows[i].Values[c] += v
		}
	}
	slices.SortFunc(monthly.Rows, func(a, b MonthlyRow) int { return strings.Compare(a.YearMonth, b.YearMonth) })
	return monthly
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustDate(t testing.TB, s string) time.Time {
	t.Helper()
	d, err := ParseReportDate(s)
	require.NoError(t, err)
	return d
}

// buildTable assembles a cumulative table from day/month/year dates and rows of values.
func buildTable(t testing.TB, regions, dates []string, values [][]int64) CumulativeTable {
	t.Helper()
	require.Len(t, values, len(dates))
	rows := make([]CumulativeRow, len(dates))
	for i, d := range dates {
		require.Len(t, values[i], len(regions))
		rows[i] = CumulativeRow{Date: mustDate(t, d), RawDate: d, Values: values[i]}
	}
	return CumulativeTable{Regions: regions, Rows: rows}
}

// seriesTable builds a single-region table with consecutive daily dates.
func seriesTable(region string, values []int64) CumulativeTable {
	base := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]CumulativeRow, len(values))
	for i, v := range values {
		d := base.AddDate(0, 0, i)
		rows[i] = CumulativeRow{Date: d, RawDate: d.Format(DateLayout), Values: []int64{v}}
	}
	return CumulativeTable{Regions: []string{region}, Rows: rows}
}

package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateMonthly(t *testing.T) {
	cum := buildTable(t, []string{"a", "b"},
		[]string{"30/01/2020", "31/01/2020", "01/02/2020", "15/02/2020", "02/03/2020"},
		[][]int64{{1, 0}, {3, 2}, {6, 2}, {10, 7}, {11, 7}},
	)

	monthly := AggregateMonthly(Differentiate(cum, nil))

	want := MonthlyTable{
		Regions: []string{"a", "b"},
		Rows: []MonthlyRow{
			{YearMonth: "2020/01", Values: []int64{2, 2}},
			{YearMonth: "2020/02", Values: []int64{7, 5}},
			{YearMonth: "2020/03", Values: []int64{1, 0}},
		},
	}
	if diff := cmp.Diff(want, monthly); diff != "" {
		t.Errorf("AggregateMonthly() mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateMonthly_SortsAcrossYears(t *testing.T) {
	cum := buildTable(t, []string{"a"},
		[]string{"30/12/2020", "31/12/2020", "01/01/2021"},
		[][]int64{{0}, {4}, {9}},
	)

	monthly := AggregateMonthly(Differentiate(cum, nil))

	require.Len(t, monthly.Rows, 2)
	assert.Equal(t, "2020/12", monthly.Rows[0].YearMonth)
	assert.Equal(t, "2021/01", monthly.Rows[1].YearMonth)

	row, ok := monthly.Bucket("2021/01")
	require.True(t, ok)
	assert.Equal(t, []int64{5}, row.Values)
	_, ok = monthly.Bucket("2021/02")
	assert.False(t, ok)
}

func TestAggregateMonthly_MatchesCumulativeDifference(t *testing.T) {
	cum := seriesTable("r", []int64{5, 8, 8, 20, 31, 40, 41, 60})
	daily := Differentiate(cum, nil)

	monthly := AggregateMonthly(daily)

	require.Len(t, monthly.Rows, 1)
	series := cum.Series("r")
	assert.Equal(t, series[len(series)-1]-series[0], monthly.Rows[0].Values[0])
}

func TestAggregateMonthly_Empty(t *testing.T) {
	monthly := AggregateMonthly(DailyTable{Regions: []string{"a"}})
	assert.Empty(t, monthly.Rows)
	assert.Equal(t, []string{"a"}, monthly.Regions)
}

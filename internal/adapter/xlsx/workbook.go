// Package xlsx exports snapshot tables to an Excel workbook, one sheet per table.
package xlsx

import (
	"fmt"
	"time"

	"github.com/couchcryptid/covid-data-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Sheet names in workbook order.
const (
	SheetSummary    = "Summary"
	SheetCumulative = "Cumulative"
	SheetDaily      = "Daily"
	SheetMonthly    = "Monthly"
	SheetLongForm   = "LongForm"
	SheetProfiles   = "StateProfiles"
	SheetNational   = "National"
	SheetContinent  = "Continent"
	SheetCorrection = "Corrections"
)

// Write saves every table of the snapshot to a new workbook at path.
func Write(path string, snap domain.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetSummary, summaryRows(snap)},
		{SheetCumulative, wideRows("date", snap.Cumulative.Regions, cumulativeRows(snap.Cumulative))},
		{SheetDaily, wideRows("date", snap.Daily.Regions, dailyRows(snap.Daily))},
		{SheetMonthly, wideRows("year_month", snap.Monthly.Regions, monthlyRows(snap.Monthly))},
		{SheetLongForm, longFormRows(snap.LongForm)},
		{SheetProfiles, profileRows(snap.Profiles)},
		{SheetNational, nationalRows(snap.National)},
		{SheetContinent, continentRows(snap.Continent)},
		{SheetCorrection, correctionRows(snap.Daily.Corrections)},
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", s.name, err)
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return fmt.Errorf("write %s row %d: %w", s.name, r+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

type wideRow struct {
	label  string
	values []int64
}

func wideRows(label string, regions []string, rows []wideRow) [][]any {
	header := make([]any, 0, len(regions)+1)
	header = append(header, label)
	for _, r := range regions {
		header = append(header, r)
	}
	out := [][]any{header}
	for _, row := range rows {
		line := make([]any, 0, len(row.values)+1)
		line = append(line, row.label)
		for _, v := range row.values {
			line = append(line, v)
		}
		out = append(out, line)
	}
	return out
}

func cumulativeRows(t domain.CumulativeTable) []wideRow {
	rows := make([]wideRow, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = wideRow{label: r.Date.Format(domain.DateLayout), values: r.Values}
	}
	return rows
}

func dailyRows(t domain.DailyTable) []wideRow {
	rows := make([]wideRow, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = wideRow{label: r.Date.Format(domain.DateLayout), values: r.Values}
	}
	return rows
}

func monthlyRows(t domain.MonthlyTable) []wideRow {
	rows := make([]wideRow, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = wideRow{label: r.YearMonth, values: r.Values}
	}
	return rows
}

func summaryRows(snap domain.Snapshot) [][]any {
	rows := [][]any{
		{"run_id", snap.RunID},
		{"computed_at", snap.ComputedAt.Format(time.RFC3339)},
		{"corrections", len(snap.Daily.Corrections)},
		{"anomaly_misses", len(snap.Daily.Misses)},
		{"stale_overrides", len(snap.Daily.Stale)},
	}
	for _, m := range snap.Daily.Misses {
		rows = append(rows, []any{"anomaly_miss", m.Error()})
	}
	return rows
}

func longFormRows(records []domain.LongRecord) [][]any {
	out := [][]any{{"date", "state", "cumulative_case", "year_month"}}
	for _, r := range records {
		out = append(out, []any{r.Date.Format(domain.DateLayout), r.State, r.CumulativeCase, r.YearMonth})
	}
	return out
}

func profileRows(profiles []domain.StateProfile) [][]any {
	out := [][]any{{"region", "state", "population", "area", "cumulative_case", "latest_daily_increase", "cumulative_infected_rate", "population_density"}}
	for _, p := range profiles {
		out = append(out, []any{p.Region, p.State, p.Population, p.Area, p.CumulativeCase, p.LatestDailyIncrease, p.CumulativeInfectedRate, p.PopulationDensity})
	}
	return out
}

func nationalRows(s domain.NationalSeries) [][]any {
	out := [][]any{{"date", "total_cases", "new_cases", "total_deaths", "new_deaths", "total_tests", "new_tests",
		"positive_rate", "total_vaccinations", "people_vaccinated", "people_fully_vaccinated", "new_vaccinations", "stringency_index"}}
	for _, r := range s.Records {
		out = append(out, []any{r.Date.Format(time.DateOnly), r.TotalCases, r.NewCases, r.TotalDeaths, r.NewDeaths, r.TotalTests, r.NewTests,
			r.PositiveRate, r.TotalVaccinations, r.PeopleVaccinated, r.PeopleFullyVaccinated, r.NewVaccinations, r.StringencyIndex})
	}
	return out
}

func continentRows(totals []domain.CountryTotal) [][]any {
	out := [][]any{{"iso_code", "location", "population", "total_cases", "infection_index"}}
	for _, c := range totals {
		out = append(out, []any{c.ISOCode, c.Location, c.Population, c.TotalCases, c.InfectionIndex})
	}
	return out
}

func correctionRows(corrections []domain.Correction) [][]any {
	out := [][]any{{"date", "region", "raw", "value", "adjustment", "note"}}
	for _, c := range corrections {
		out = append(out, []any{c.Date.Format(domain.DateLayout), c.Region, c.Raw, c.Value, c.Adjustment(), c.Note})
	}
	return out
}

package domain

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	sourceNational = "national"

	// nationalDateLayout is the ISO date layout used by the national dataset.
	nationalDateLayout = "2006-01-02"
)

// NationalRecord is one day of national epidemiological metrics.
// Missing (NaN-like) source fields are zero.
type NationalRecord struct {
	Date                  time.Time `json:"date"`
	TotalCases            float64   `json:"total_cases"`
	NewCases              float64   `json:"new_cases"`
	TotalDeaths           float64   `json:"total_deaths"`
	NewDeaths             float64   `json:"new_deaths"`
	TotalTests            float64   `json:"total_tests"`
	NewTests              float64   `json:"new_tests"`
	PositiveRate          float64   `json:"positive_rate"`
	TotalVaccinations     float64   `json:"total_vaccinations"`
	PeopleVaccinated      float64   `json:"people_vaccinated"`
	PeopleFullyVaccinated float64   `json:"people_fully_vaccinated"`
	NewVaccinations       float64   `json:"new_vaccinations"`
	StringencyIndex       float64   `json:"stringency_index"`
	Population            float64   `json:"population"`
}

// NationalSeries is a single country's daily series, ascending by date.
type NationalSeries struct {
	ISOCode  string
	Location string
	Records  []NationalRecord
}

// Latest returns the most recent record, used for headline figures.
func (s NationalSeries) Latest() (NationalRecord, bool) {
	if len(s.Records) == 0 {
		return NationalRecord{}, false
	}
	return s.Records[len(s.Records)-1], true
}

// Since returns the records dated on or after t.
func (s NationalSeries) Since(t time.Time) []NationalRecord {
	i, _ := slices.BinarySearchFunc(s.Records, t, func(r NationalRecord, target time.Time) int {
		return r.Date.Compare(target)
	})
	return s.Records[i:]
}

// VaccinationStart is the first date of the national vaccination programme.
var VaccinationStart = time.Date(2021, time.March, 2, 0, 0, 0, 0, time.UTC)

// VaccinationBreakdown splits a population by dose count on one date.
type VaccinationBreakdown struct {
	Date            time.Time `json:"date"`
	FullyVaccinated float64   `json:"fully_vaccinated"`
	FirstDoseOnly   float64   `json:"first_dose_only"`
	Unvaccinated    float64   `json:"unvaccinated"`
}

// VaccinationStatus returns the dose breakdown for the record dated exactly
// date. Dates before VaccinationStart or without a record report false.
func (s NationalSeries) VaccinationStatus(date time.Time) (VaccinationBreakdown, bool) {
	if date.Before(VaccinationStart) {
		return VaccinationBreakdown{}, false
	}
	i, found := slices.BinarySearchFunc(s.Records, date, func(r NationalRecord, target time.Time) int {
		return r.Date.Compare(target)
	})
	if !found {
		return VaccinationBreakdown{}, false
	}
	r := s.Records[i]
	return VaccinationBreakdown{
		Date:            r.Date,
		FullyVaccinated: r.PeopleFullyVaccinated,
		FirstDoseOnly:   r.PeopleVaccinated - r.PeopleFullyVaccinated,
		Unvaccinated:    r.Population - r.PeopleVaccinated,
	}, true
}

// CountryTotal compares one country's total cases against its population.
type CountryTotal struct {
	ISOCode        string  `json:"iso_code"`
	Location       string  `json:"location"`
	Population     float64 `json:"population"`
	TotalCases     float64 `json:"total_cases"`
	InfectionIndex float64 `json:"infection_index"` // 100 * total cases / population
}

// nationalMetrics maps source columns onto record fields. Absent columns stay zero.
var nationalMetrics = []struct {
	column string
	set    func(*NationalRecord, float64)
}{
	{"total_cases", func(r *NationalRecord, v float64) { r.TotalCases = v }},
	{"new_cases", func(r *NationalRecord, v float64) { r.NewCases = v }},
	{"total_deaths", func(r *NationalRecord, v float64) { r.TotalDeaths = v }},
	{"new_deaths", func(r *NationalRecord, v float64) { r.NewDeaths = v }},
	{"total_tests", func(r *NationalRecord, v float64) { r.TotalTests = v }},
	{"new_tests", func(r *NationalRecord, v float64) { r.NewTests = v }},
	{"positive_rate", func(r *NationalRecord, v float64) { r.PositiveRate = v }},
	{"total_vaccinations", func(r *NationalRecord, v float64) { r.TotalVaccinations = v }},
	{"people_vaccinated", func(r *NationalRecord, v float64) { r.PeopleVaccinated = v }},
	{"people_fully_vaccinated", func(r *NationalRecord, v float64) { r.PeopleFullyVaccinated = v }},
	{"new_vaccinations", func(r *NationalRecord, v float64) { r.NewVaccinations = v }},
	{"stringency_index", func(r *NationalRecord, v float64) { r.StringencyIndex = v }},
	{"population", func(r *NationalRecord, v float64) { r.Population = v }},
}

// ParseNationalCSV filters the multi-country table to isoCode, zero-fills
// NaN-like metrics and parses dates. Rows of other countries are not validated.
func ParseNationalCSV(r io.Reader, isoCode string) (NationalSeries, error) {
	nr, err := newNationalReader(r, "iso_code", "location", "date")
	if err != nil {
		return NationalSeries{}, err
	}

	series := NationalSeries{ISOCode: isoCode}
	for {
		rec, line, err := nr.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return NationalSeries{}, err
		}
		if nr.field(rec, "iso_code") != isoCode {
			continue
		}

		record, err := nr.parseRecord(rec, line)
		if err != nil {
			return NationalSeries{}, err
		}
		series.Location = nr.field(rec, "location")
		series.Records = append(series.Records, record)
	}

	if len(series.Records) == 0 {
		return NationalSeries{}, &MalformedInputError{Source: sourceNational, Column: "iso_code", Value: isoCode, Reason: "no rows for country"}
	}
	slices.SortStableFunc(series.Records, func(a, b NationalRecord) int { return a.Date.Compare(b.Date) })
	return series, nil
}

// ContinentComparison totals new cases per country of one continent and
// indexes them against population. Countries without a population are skipped.
func ContinentComparison(r io.Reader, continent string) ([]CountryTotal, error) {
	nr, err := newNationalReader(r, "iso_code", "continent", "location", "new_cases", "population")
	if err != nil {
		return nil, err
	}

	byISO := make(map[string]*CountryTotal)
	for {
		rec, line, err := nr.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if nr.field(rec, "continent") != continent {
			continue
		}

		newCases, err := nr.metric(rec, "new_cases", line)
		if err != nil {
			return nil, err
		}
		population, err := nr.metric(rec, "population", line)
		if err != nil {
			return nil, err
		}

		iso := nr.field(rec, "iso_code")
		total, ok := byISO[iso]
		if !ok {
			total = &CountryTotal{ISOCode: iso, Location: nr.field(rec, "location")}
			byISO[iso] = total
		}
		total.TotalCases += newCases
		if population > 0 {
			total.Population = population
		}
	}

	out := make([]CountryTotal, 0, len(byISO))
	for _, total := range byISO {
		if total.Population <= 0 {
			continue
		}
		total.InfectionIndex = total.TotalCases / total.Population * 100
		out = append(out, *total)
	}
	slices.SortFunc(out, func(a, b CountryTotal) int { return strings.Compare(a.ISOCode, b.ISOCode) })
	return out, nil
}

// nationalReader reads the national CSV by column name.
type nationalReader struct {
	cr   *csv.Reader
	cols map[string]int
}

func newNationalReader(r io.Reader, required ...string) (*nationalReader, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, &MalformedInputError{Source: sourceNational, Line: 1, Reason: "read header: " + err.Error()}
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, &MalformedInputError{Source: sourceNational, Line: 1, Column: name, Reason: "required column missing"}
		}
	}
	return &nationalReader{cr: cr, cols: cols}, nil
}

func (n *nationalReader) next() ([]string, int, error) {
	rec, err := n.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, err
		}
		return nil, 0, &MalformedInputError{Source: sourceNational, Reason: err.Error()}
	}
	line, _ := n.cr.FieldPos(0)
	return rec, line, nil
}

func (n *nationalReader) field(rec []string, column string) string {
	i, ok := n.cols[column]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (n *nationalReader) metric(rec []string, column string, line int) (float64, error) {
	cell := n.field(rec, column)
	v, err := parseMetric(cell)
	if err != nil {
		return 0, &MalformedInputError{Source: sourceNational, Line: line, Column: column, Value: cell, Reason: err.Error()}
	}
	return v, nil
}

func (n *nationalReader) parseRecord(rec []string, line int) (NationalRecord, error) {
	rawDate := n.field(rec, "date")
	date, err := time.Parse(nationalDateLayout, rawDate)
	if err != nil {
		return NationalRecord{}, &MalformedInputError{Source: sourceNational, Line: line, Column: "date", Value: rawDate, Reason: "date is not YYYY-MM-DD"}
	}

	record := NationalRecord{Date: date}
	for _, m := range nationalMetrics {
		v, err := n.metric(rec, m.column, line)
		if err != nil {
			return NationalRecord{}, err
		}
		m.set(&record, v)
	}
	return record, nil
}

// parseMetric parses a numeric cell, mapping NaN-like values to zero.
func parseMetric(cell string) (float64, error) {
	switch strings.ToLower(cell) {
	case "", "nan", "na", "n/a", "null":
		return 0, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	if math.IsInf(v, 0) {
		return 0, errors.New("not finite")
	}
	return v, nil
}

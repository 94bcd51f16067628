package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

const sourceCumulative = "cumulative"

// CumulativeOptions controls cumulative table normalization.
type CumulativeOptions struct {
	Placeholder     string   // token meaning "no data"; becomes 0
	SkipLeadingRows int      // report rows dropped before any derivation
	Regions         []string // expected columns in order; nil disables the check
}

// ParseCumulativeCSV reads and normalizes the per-state cumulative table.
// The placeholder token is the only value silently coerced to zero; any other
// non-integer, negative cell or non day/month/year date fails with
// *MalformedInputError. A column set that differs from opts.Regions fails with
// *SchemaMismatchError.
func ParseCumulativeCSV(r io.Reader, opts CumulativeOptions) (CumulativeTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return CumulativeTable{}, &MalformedInputError{Source: sourceCumulative, Line: 1, Reason: "read header: " + err.Error()}
	}
	header = trimAll(header)
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	if len(header) < 2 || header[0] != "date" {
		return CumulativeTable{}, &MalformedInputError{Source: sourceCumulative, Line: 1, Reason: "header must start with date followed by region columns"}
	}

	regions := header[1:]
	if opts.Regions != nil && !slices.Equal(regions, opts.Regions) {
		return CumulativeTable{}, &SchemaMismatchError{
			Reason:   "cumulative region columns differ from reference",
			Expected: opts.Regions,
			Actual:   regions,
		}
	}

	table := CumulativeTable{Regions: slices.Clone(regions)}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			line := 0
			if errors.As(err, &perr) {
				line = perr.Line
			}
			return CumulativeTable{}, &MalformedInputError{Source: sourceCumulative, Line: line, Reason: err.Error()}
		}
		line, _ := cr.FieldPos(0)

		row, err := parseCumulativeRow(rec, regions, opts.Placeholder, line)
		if err != nil {
			return CumulativeTable{}, err
		}
		if n := len(table.Rows); n > 0 && !row.Date.After(table.Rows[n-1].Date) {
			return CumulativeTable{}, &MalformedInputError{
				Source: sourceCumulative, Line: line, Column: "date", Value: row.RawDate,
				Reason: "dates must be strictly ascending",
			}
		}
		table.Rows = append(table.Rows, row)
	}

	if opts.SkipLeadingRows >= len(table.Rows) {
		return CumulativeTable{}, &MalformedInputError{
			Source: sourceCumulative,
			Reason: fmt.Sprintf("%d report rows left after skipping %d leading rows", max(len(table.Rows)-opts.SkipLeadingRows, 0), opts.SkipLeadingRows),
		}
	}
	table.Rows = table.Rows[opts.SkipLeadingRows:]
	return table, nil
}

func parseCumulativeRow(rec, regions []string, placeholder string, line int) (CumulativeRow, error) {
	rawDate := strings.TrimSpace(rec[0])
	date, err := ParseReportDate(rawDate)
	if err != nil {
		return CumulativeRow{}, &MalformedInputError{Source: sourceCumulative, Line: line, Column: "date", Value: rawDate, Reason: err.Error()}
	}

	values := make([]int64, len(regions))
	for i, cell := range rec[1:] {
		v, err := parseCount(cell, placeholder)
		if err != nil {
			return CumulativeRow{}, &MalformedInputError{Source: sourceCumulative, Line: line, Column: regions[i], Value: cell, Reason: err.Error()}
		}
		values[i] = v
	}
	return CumulativeRow{Date: date, RawDate: rawDate, Values: values}, nil
}

// parseCount parses a cumulative cell. Only the placeholder token maps to zero.
func parseCount(cell, placeholder string) (int64, error) {
	cell = strings.TrimSpace(cell)
	if placeholder != "" && cell == placeholder {
		return 0, nil
	}
	v, err := strconv.ParseInt(cell, 10, 64)
	if err != nil {
		return 0, errors.New("not an integer")
	}
	if v < 0 {
		return 0, errors.New("cumulative count is negative")
	}
	return v, nil
}

func trimAll(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.TrimSpace(f)
	}
	return out
}

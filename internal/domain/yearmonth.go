package domain

import (
	"fmt"
	"strings"
	"time"
)

// yearMonthLayout formats zero-padded "YYYY/MM" keys that sort lexicographically.
const yearMonthLayout = "2006/01"

// YearMonth returns the "YYYY/MM" bucket key of a date.
func YearMonth(t time.Time) string {
	return t.Format(yearMonthLayout)
}

// YearMonthFromString derives the bucket key from a day/month/year date string.
// It shares ParseReportDate with ingestion so both representations agree.
func YearMonthFromString(s string) (string, error) {
	t, err := ParseReportDate(s)
	if err != nil {
		return "", err
	}
	return YearMonth(t), nil
}

// ParseReportDate parses a day/month/year date such as "27/01/2020" or "7/1/2020".
// Other layouts, ISO-8601 in particular, are rejected instead of guessed.
func ParseReportDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, "/") != 2 {
		return time.Time{}, fmt.Errorf("date %q is not day/month/year", s)
	}
	t, err := time.Parse("2/1/2006", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not day/month/year: %w", s, err)
	}
	return t, nil
}

package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidReference marks static reference data that cannot be used, such as
// a zero population or area, or an override naming an unknown region.
var ErrInvalidReference = errors.New("invalid reference data")

// MalformedInputError reports a raw cell or date that cannot be parsed.
// It is fatal: no derived table is produced from an input that raised it.
type MalformedInputError struct {
	Source string // "cumulative" or "national"
	Line   int    // 1-based CSV line, 0 when not tied to a line
	Column string
	Value  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	var b strings.Builder
	b.WriteString("malformed ")
	b.WriteString(e.Source)
	b.WriteString(" input")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Value != "" {
		fmt.Fprintf(&b, " (value %q)", e.Value)
	}
	return b.String()
}

// SchemaMismatchError reports a region set or ordering that differs from the
// expected one. Positional consumers would silently corrupt data, so it is fatal.
type SchemaMismatchError struct {
	Reason   string
	Expected []string
	Actual   []string
}

func (e *SchemaMismatchError) Error() string {
	if len(e.Expected) == 0 && len(e.Actual) == 0 {
		return "schema mismatch: " + e.Reason
	}
	return fmt.Sprintf("schema mismatch: %s (expected %v, got %v)", e.Reason, e.Expected, e.Actual)
}

// AnomalyCorrectionMiss is a negative daily delta at a coordinate the override
// table does not cover. It is a warning: the value is kept as-is.
type AnomalyCorrectionMiss struct {
	Date   time.Time
	Region string
	Delta  int64
}

func (m AnomalyCorrectionMiss) Error() string {
	return fmt.Sprintf("negative delta %d for %s on %s has no override", m.Delta, m.Region, m.Date.Format(DateLayout))
}

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
)

// BoundaryLayout maps source regions onto the canonical names and ordering of
// the external boundary dataset.
type BoundaryLayout struct {
	Names    map[string]string // source id -> canonical name
	Excluded map[string]bool   // source ids absent from the boundary dataset
	Order    []string          // canonical names in emission order
}

// Validate checks that every canonical name appears, spelled identically, in
// the boundary dataset's region names.
func (l BoundaryLayout) Validate(boundaryNames []string) error {
	var missing []string
	for _, name := range l.Order {
		if !slices.Contains(boundaryNames, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &SchemaMismatchError{
			Reason:   fmt.Sprintf("canonical names not in boundary dataset: %q", missing),
			Expected: l.Order,
			Actual:   boundaryNames,
		}
	}
	return nil
}

// Restructure pivots the wide cumulative table into long-format records.
//
// Excluded regions are dropped, the rest renamed to canonical names and
// emitted as one block per region in canonical order, each block in date
// order. Every (date, state) pair appears exactly once.
func Restructure(cum CumulativeTable, layout BoundaryLayout) ([]LongRecord, error) {
	columnByName := make(map[string]int, len(layout.Order))
	for c, id := range cum.Regions {
		if layout.Excluded[id] {
			continue
		}
		name, ok := layout.Names[id]
		if !ok {
			return nil, &SchemaMismatchError{Reason: fmt.Sprintf("region %q has no canonical boundary name", id)}
		}
		if prev, ok := columnByName[name]; ok {
			return nil, &SchemaMismatchError{
				Reason: fmt.Sprintf("regions %q and %q share canonical name %q", cum.Regions[prev], id, name),
			}
		}
		columnByName[name] = c
	}
	if len(columnByName) != len(layout.Order) {
		return nil, &SchemaMismatchError{
			Reason:   "named regions differ from canonical order",
			Expected: layout.Order,
			Actual:   mapKeys(columnByName),
		}
	}

	columns := make([]int, len(layout.Order))
	for j, name := range layout.Order {
		c, ok := columnByName[name]
		if !ok {
			return nil, &SchemaMismatchError{Reason: fmt.Sprintf("canonical region %q missing from cumulative table", name)}
		}
		columns[j] = c
	}

	yearMonths := make([]string, len(cum.Rows))
	for i, row := range cum.Rows {
		yearMonths[i] = YearMonth(row.Date)
	}

	records := make([]LongRecord, 0, len(layout.Order)*len(cum.Rows))
	for j, name := range layout.Order {
		c := columns[j]
		for i, row := range cum.Rows {
			records = append(records, LongRecord{
				Date:           row.Date,
				State:          name,
				CumulativeCase: row.Values[c],
				YearMonth:      yearMonths[i],
			})
		}
	}
	return records, nil
}

// ParseBoundaryNames reads the region names of a GeoJSON FeatureCollection
// from the given feature property.
func ParseBoundaryNames(r io.Reader, property string) ([]string, error) {
	var fc struct {
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode boundary geojson: %w", err)
	}

	names := make([]string, 0, len(fc.Features))
	for i, f := range fc.Features {
		name, ok := f.Properties[property].(string)
		if !ok {
			return nil, fmt.Errorf("boundary feature %d has no string property %q", i, property)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, errors.New("boundary geojson has no features")
	}
	return names, nil
}

func mapKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

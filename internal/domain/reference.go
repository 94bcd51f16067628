package domain

import (
	"fmt"
	"slices"
	"time"
)

// RegionReference holds the static facts for one source region.
type RegionReference struct {
	ID         string  // source column identifier, e.g. "wp-kuala-lumpur"
	Name       string  // canonical boundary name, e.g. "Federal Territory of Kuala Lumpur"
	Population int64   // residents
	Area       float64 // square kilometres
	Excluded   bool    // absent from the boundary dataset; dropped from the long-format view
}

// Override replaces the daily delta of one region on one date.
type Override struct {
	Date   time.Time
	Region string
	Value  int64
	Note   string
}

// Reference is the static reference data a pipeline run depends on.
type Reference struct {
	Placeholder     string
	SkipLeadingRows int
	Regions         []RegionReference // in source column order
	CanonicalOrder  []string          // canonical names in boundary order
	Overrides       []Override
}

// RegionIDs returns the expected source columns in order.
func (r Reference) RegionIDs() []string {
	ids := make([]string, len(r.Regions))
	for i, reg := range r.Regions {
		ids[i] = reg.ID
	}
	return ids
}

// Layout derives the long-format naming layout.
func (r Reference) Layout() BoundaryLayout {
	layout := BoundaryLayout{
		Names:    make(map[string]string, len(r.Regions)),
		Excluded: make(map[string]bool),
		Order:    slices.Clone(r.CanonicalOrder),
	}
	for _, reg := range r.Regions {
		if reg.Excluded {
			layout.Excluded[reg.ID] = true
			continue
		}
		layout.Names[reg.ID] = reg.Name
	}
	return layout
}

// Validate checks the reference data for internal consistency.
func (r Reference) Validate() error {
	if r.Placeholder == "" {
		return fmt.Errorf("%w: placeholder token is empty", ErrInvalidReference)
	}
	if r.SkipLeadingRows < 0 {
		return fmt.Errorf("%w: skip_leading_rows is negative", ErrInvalidReference)
	}
	if len(r.Regions) == 0 {
		return fmt.Errorf("%w: no regions", ErrInvalidReference)
	}

	seen := make(map[string]bool, len(r.Regions))
	names := make(map[string]bool, len(r.Regions))
	for _, reg := range r.Regions {
		if reg.ID == "" {
			return fmt.Errorf("%w: region with empty id", ErrInvalidReference)
		}
		if seen[reg.ID] {
			return fmt.Errorf("%w: duplicate region %q", ErrInvalidReference, reg.ID)
		}
		seen[reg.ID] = true
		if reg.Population <= 0 || reg.Area <= 0 {
			return fmt.Errorf("%w: region %q has population %d and area %g", ErrInvalidReference, reg.ID, reg.Population, reg.Area)
		}
		if reg.Excluded {
			continue
		}
		if reg.Name == "" {
			return fmt.Errorf("%w: region %q has no canonical name", ErrInvalidReference, reg.ID)
		}
		if names[reg.Name] {
			return fmt.Errorf("%w: duplicate canonical name %q", ErrInvalidReference, reg.Name)
		}
		names[reg.Name] = true
	}

	order := make(map[string]bool, len(r.CanonicalOrder))
	for _, name := range r.CanonicalOrder {
		if !names[name] || order[name] {
			return fmt.Errorf("%w: canonical order entry %q is unknown or repeated", ErrInvalidReference, name)
		}
		order[name] = true
	}
	if len(order) != len(names) {
		return fmt.Errorf("%w: canonical order lists %d of %d named regions", ErrInvalidReference, len(order), len(names))
	}

	type cell struct {
		date   time.Time
		region string
	}
	overridden := make(map[cell]bool, len(r.Overrides))
	for _, o := range r.Overrides {
		if overridden[cell{o.Date, o.Region}] {
			return fmt.Errorf("%w: duplicate override for %q on %s", ErrInvalidReference, o.Region, o.Date.Format(DateLayout))
		}
		overridden[cell{o.Date, o.Region}] = true
		if !seen[o.Region] {
			return fmt.Errorf("%w: override for unknown region %q", ErrInvalidReference, o.Region)
		}
		if o.Date.IsZero() {
			return fmt.Errorf("%w: override for %q has no date", ErrInvalidReference, o.Region)
		}
	}
	return nil
}

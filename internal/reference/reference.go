// Package reference loads the static reference data: region identifiers,
// canonical boundary names, population, area, and daily-delta overrides.
package reference

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/covid-data-etl/internal/domain"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

type file struct {
	Placeholder     string         `yaml:"placeholder"`
	SkipLeadingRows *int           `yaml:"skip_leading_rows" validate:"omitempty,gte=0"`
	Regions         []regionEntry  `yaml:"regions" validate:"required,unique=ID,dive"`
	CanonicalOrder  []string       `yaml:"canonical_order" validate:"required,unique"`
	Overrides       []overrideItem `yaml:"overrides" validate:"dive"`
}

type regionEntry struct {
	ID         string  `yaml:"id" validate:"required"`
	Name       string  `yaml:"name" validate:"required_unless=Excluded true"`
	Population int64   `yaml:"population" validate:"gt=0"`
	Area       float64 `yaml:"area" validate:"gt=0"`
	Excluded   bool    `yaml:"excluded"`
}

type overrideItem struct {
	Date   string `yaml:"date" validate:"required"` // day/month/year
	Region string `yaml:"region" validate:"required"`
	Value  int64  `yaml:"value" validate:"gte=0"`
	Note   string `yaml:"note"`
}

// Default returns the embedded reference data for Malaysia.
func Default() domain.Reference {
	ref, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded reference data: %v", err))
	}
	return ref
}

// Load reads reference data from a YAML file. An empty path returns Default.
func Load(path string) (domain.Reference, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Reference{}, fmt.Errorf("read reference file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates reference YAML. Unknown keys are rejected.
func Parse(data []byte) (domain.Reference, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Reference{}, fmt.Errorf("%w: empty document", domain.ErrInvalidReference)
		}
		return domain.Reference{}, fmt.Errorf("%w: %v", domain.ErrInvalidReference, err)
	}
	if err := validate.Struct(f); err != nil {
		return domain.Reference{}, fmt.Errorf("%w: %v", domain.ErrInvalidReference, err)
	}

	ref := domain.Reference{
		Placeholder:     f.Placeholder,
		SkipLeadingRows: 2,
		CanonicalOrder:  f.CanonicalOrder,
	}
	if ref.Placeholder == "" {
		ref.Placeholder = "-"
	}
	if f.SkipLeadingRows != nil {
		ref.SkipLeadingRows = *f.SkipLeadingRows
	}

	for _, r := range f.Regions {
		ref.Regions = append(ref.Regions, domain.RegionReference(r))
	}
	for _, o := range f.Overrides {
		date, err := domain.ParseReportDate(o.Date)
		if err != nil {
			return domain.Reference{}, fmt.Errorf("%w: override for %q: %v", domain.ErrInvalidReference, o.Region, err)
		}
		ref.Overrides = append(ref.Overrides, domain.Override{
			Date:   date,
			Region: o.Region,
			Value:  o.Value,
			Note:   o.Note,
		})
	}

	if err := ref.Validate(); err != nil {
		return domain.Reference{}, err
	}
	return ref, nil
}

package reference

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/covid-data-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	ref := Default()

	assert.Equal(t, "-", ref.Placeholder)
	assert.Equal(t, 2, ref.SkipLeadingRows)
	assert.Equal(t, []string{
		"perlis", "kedah", "pulau-pinang", "perak", "selangor", "negeri-sembilan", "melaka", "johor",
		"pahang", "terengganu", "kelantan", "sabah", "sarawak", "wp-kuala-lumpur", "wp-putrajaya", "wp-labuan",
	}, ref.RegionIDs())
	assert.Len(t, ref.CanonicalOrder, 15)
	assert.Equal(t, "Federal Territory of Kuala Lumpur", ref.CanonicalOrder[0])

	layout := ref.Layout()
	assert.True(t, layout.Excluded["wp-labuan"])
	assert.Equal(t, "Penang", layout.Names["pulau-pinang"])
	assert.NotContains(t, layout.Names, "wp-labuan")
}

func TestDefault_Populations(t *testing.T) {
	byID := make(map[string]domain.RegionReference)
	var total int64
	for _, r := range Default().Regions {
		byID[r.ID] = r
		total += r.Population
	}

	assert.Equal(t, int64(255300), byID["perlis"].Population)
	assert.Equal(t, 821.0, byID["perlis"].Area)
	assert.Equal(t, int64(114900), byID["wp-putrajaya"].Population)
	assert.Equal(t, 49.0, byID["wp-putrajaya"].Area)
	assert.Equal(t, int64(99800), byID["wp-labuan"].Population)
	assert.Equal(t, int64(32750500), total)
}

func TestDefault_Overrides(t *testing.T) {
	overrides := Default().Overrides
	require.Len(t, overrides, 2)

	assert.Equal(t, "wp-putrajaya", overrides[0].Region)
	assert.Equal(t, time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC), overrides[0].Date)
	assert.Equal(t, int64(1), overrides[0].Value)

	assert.Equal(t, "wp-kuala-lumpur", overrides[1].Region)
	assert.Equal(t, time.Date(2020, time.November, 21, 0, 0, 0, 0, time.UTC), overrides[1].Date)
	assert.Equal(t, int64(101), overrides[1].Value)
}

const minimalYAML = `
regions:
  - id: a
    name: Alpha
    population: 10
    area: 2
canonical_order: [Alpha]
`

func TestParse_AppliesDefaults(t *testing.T) {
	ref, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "-", ref.Placeholder)
	assert.Equal(t, 2, ref.SkipLeadingRows)
	assert.Empty(t, ref.Overrides)
}

func TestParse_ExplicitZeroSkip(t *testing.T) {
	ref, err := Parse([]byte(minimalYAML + "skip_leading_rows: 0\nplaceholder: N/A\n"))
	require.NoError(t, err)

	assert.Equal(t, 0, ref.SkipLeadingRows)
	assert.Equal(t, "N/A", ref.Placeholder)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"unknown key", minimalYAML + "populations: {}\n"},
		{"not yaml", "regions: [\n"},
		{"iso override date", minimalYAML + "overrides:\n  - {date: 2020-04-01, region: a, value: 1}\n"},
		{"unknown override region", minimalYAML + "overrides:\n  - {date: 01/04/2020, region: b, value: 1}\n"},
		{"zero population", "regions:\n  - {id: a, name: Alpha, population: 0, area: 2}\ncanonical_order: [Alpha]\n"},
		{"canonical order mismatch", "regions:\n  - {id: a, name: Alpha, population: 1, area: 2}\ncanonical_order: [Beta]\n"},
		{"shared canonical name", "regions:\n" +
			"  - {id: a, name: Perlis, population: 1, area: 2}\n" +
			"  - {id: b, name: Perlis, population: 1, area: 2}\n" +
			"canonical_order: [Perlis]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, domain.ErrInvalidReference)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	ref, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ref.RegionIDs())

	ref, err = Load("")
	require.NoError(t, err)
	assert.Len(t, ref.Regions, 16)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_FieldValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative skip", minimalYAML + "skip_leading_rows: -1\n"},
		{"missing id", "regions:\n  - {name: Alpha, population: 1, area: 2}\ncanonical_order: [Alpha]\n"},
		{"missing name", "regions:\n  - {id: a, population: 1, area: 2}\ncanonical_order: [Alpha]\n"},
		{"negative override", minimalYAML + "overrides:\n  - {date: 01/04/2020, region: a, value: -3}\n"},
		{"duplicate canonical name", "regions:\n  - {id: a, name: Alpha, population: 1, area: 2}\ncanonical_order: [Alpha, Alpha]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, domain.ErrInvalidReference)
		})
	}
}

func TestParse_ExcludedRegionNeedsNoName(t *testing.T) {
	doc := "regions:\n" +
		"  - {id: a, name: Alpha, population: 10, area: 2}\n" +
		"  - {id: x, population: 5, area: 1, excluded: true}\n" +
		"canonical_order: [Alpha]\n"
	ref, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "x"}, ref.RegionIDs())
}

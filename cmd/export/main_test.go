package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testdata = "../../internal/pipeline/testdata/"

func TestRun(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		cumulative: testdata + "states.csv",
		national:   testdata + "owid.csv",
		boundary:   testdata + "malaysia.geojson",
		iso:        "MYS",
		continent:  "Asia",
		out:        filepath.Join(dir, "covid.xlsx"),
		jsonOut:    filepath.Join(dir, "tables.json"),
		timeout:    time.Second,
	}

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), opts, &out))
	assert.Contains(t, out.String(), "4 report rows")
	assert.Contains(t, out.String(), "60 long-form records")

	f, err := excelize.OpenFile(opts.out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("LongForm")
	require.NoError(t, err)
	assert.Len(t, rows, 61)

	data, err := os.ReadFile(opts.jsonOut)
	require.NoError(t, err)
	var tables struct {
		LongForm []map[string]any `json:"long_form"`
		Profiles []map[string]any `json:"state_profiles"`
	}
	require.NoError(t, json.Unmarshal(data, &tables))
	assert.Len(t, tables.LongForm, 60)
	assert.Len(t, tables.Profiles, 16)
}

func TestRun_MissingInput(t *testing.T) {
	opts := options{
		cumulative: filepath.Join(t.TempDir(), "absent.csv"),
		national:   testdata + "owid.csv",
		iso:        "MYS",
		out:        filepath.Join(t.TempDir(), "covid.xlsx"),
		timeout:    time.Second,
	}

	err := run(context.Background(), opts, &bytes.Buffer{})
	assert.Error(t, err)
}

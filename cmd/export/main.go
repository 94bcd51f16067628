// Command export runs the pipeline once over local or remote inputs and
// writes every derived table to an xlsx workbook. With -json it also writes
// the long-format table and state profiles as JSON for the visualisation layer.
//
// Usage:
//
//	go run ./cmd/export \
//	  -cumulative data/covid-19-my-states-cases.csv \
//	  -national data/owid-covid-data.csv \
//	  -boundary data/malaysia.geojson \
//	  -out covid-my.xlsx
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/covid-data-etl/internal/adapter/source"
	"github.com/couchcryptid/covid-data-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/covid-data-etl/internal/config"
	"github.com/couchcryptid/covid-data-etl/internal/domain"
	"github.com/couchcryptid/covid-data-etl/internal/observability"
	"github.com/couchcryptid/covid-data-etl/internal/pipeline"
	"github.com/couchcryptid/covid-data-etl/internal/reference"
	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	cumulative string
	national   string
	boundary   string
	reference  string
	iso        string
	continent  string
	out        string
	jsonOut    string
	timeout    time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.cumulative, "cumulative", "", "per-state cumulative CSV (path or URL)")
	flag.StringVar(&opts.national, "national", "", "national multi-country CSV (path or URL)")
	flag.StringVar(&opts.boundary, "boundary", "", "boundary GeoJSON (path or URL); empty skips the name check")
	flag.StringVar(&opts.reference, "reference", "", "reference YAML; empty uses the embedded default")
	flag.StringVar(&opts.iso, "iso", "MYS", "ISO code of the national series")
	flag.StringVar(&opts.continent, "continent", "Asia", "continent of the comparison table; empty skips it")
	flag.StringVar(&opts.out, "out", "", "output path for the xlsx workbook")
	flag.StringVar(&opts.jsonOut, "json", "", "optional output path for long-form and profile JSON")
	flag.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "fetch timeout per source")
	flag.Parse()

	if opts.cumulative == "" || opts.national == "" || opts.out == "" {
		flag.Usage()
		log.Fatal(errors.New("missing required flags: -cumulative, -national, -out"))
	}

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, opts options, w io.Writer) error {
	ref, err := reference.Load(opts.reference)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())

	src := source.NewClient(&config.Config{
		CumulativeSource: opts.cumulative,
		NationalSource:   opts.national,
		BoundarySource:   opts.boundary,
		FetchTimeout:     opts.timeout,
	}, metrics, logger)

	in, err := src.Fetch(ctx)
	if err != nil {
		return err
	}

	p := pipeline.New(ref, pipeline.Options{CountryISO: opts.iso, Continent: opts.continent}, logger, metrics)
	snap, err := p.Compute(ctx, in)
	if err != nil {
		return err
	}

	if err := xlsx.Write(opts.out, snap); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %s: %d report rows, %d long-form records, %d corrections, %d anomaly misses\n",
		opts.out, len(snap.Cumulative.Rows), len(snap.LongForm), len(snap.Daily.Corrections), len(snap.Daily.Misses))

	if opts.jsonOut != "" {
		if err := writeJSON(opts.jsonOut, snap); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote %s\n", opts.jsonOut)
	}
	return nil
}

type visualisationTables struct {
	RunID      string                `json:"run_id"`
	ComputedAt time.Time             `json:"computed_at"`
	LongForm   []domain.LongRecord   `json:"long_form"`
	Profiles   []domain.StateProfile `json:"state_profiles"`
}

func writeJSON(path string, snap domain.Snapshot) error {
	data, err := json.MarshalIndent(visualisationTables{
		RunID:      snap.RunID,
		ComputedAt: snap.ComputedAt,
		LongForm:   snap.LongForm,
		Profiles:   snap.Profiles,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tables: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // output fixture, not secret
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/covid-data-etl/internal/domain"
	"github.com/couchcryptid/covid-data-etl/internal/observability"
	"golang.org/x/sync/errgroup"
)

// DefaultBoundaryProperty is the GeoJSON feature property holding region names.
const DefaultBoundaryProperty = "name"

// Options selects the national and continental views of a run.
type Options struct {
	CountryISO       string // national series filter, e.g. "MYS"
	Continent        string // continent comparison filter; empty skips it
	BoundaryProperty string // defaults to DefaultBoundaryProperty
}

// Pipeline derives a Snapshot from raw inputs. It holds no per-run state, so
// one Pipeline may compute concurrently for different inputs.
type Pipeline struct {
	ref     domain.Reference
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Pipeline over validated reference data.
func New(ref domain.Reference, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.BoundaryProperty == "" {
		opts.BoundaryProperty = DefaultBoundaryProperty
	}
	return &Pipeline{ref: ref, opts: opts, logger: logger, metrics: metrics}
}

// Compute runs every stage over one set of raw inputs.
//
// Ingestion and the boundary check run first; the long-form, daily,
// national and continent stages then fan out. The first failing stage
// cancels the rest and no snapshot is returned.
func (p *Pipeline) Compute(ctx context.Context, in domain.RawInputs) (domain.Snapshot, error) {
	cum, err := domain.ParseCumulativeCSV(bytes.NewReader(in.Cumulative), domain.CumulativeOptions{
		Placeholder:     p.ref.Placeholder,
		SkipLeadingRows: p.ref.SkipLeadingRows,
		Regions:         p.ref.RegionIDs(),
	})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("ingest: %w", err)
	}

	layout := p.ref.Layout()
	if len(in.Boundary) > 0 {
		names, err := domain.ParseBoundaryNames(bytes.NewReader(in.Boundary), p.opts.BoundaryProperty)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("boundary: %w", err)
		}
		if err := layout.Validate(names); err != nil {
			return domain.Snapshot{}, fmt.Errorf("boundary: %w", err)
		}
	}

	snap := domain.NewSnapshot()
	snap.Cumulative = cum

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		records, err := domain.Restructure(cum, layout)
		if err != nil {
			return fmt.Errorf("long form: %w", err)
		}
		snap.LongForm = records
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		daily := domain.Differentiate(cum, p.ref.Overrides)
		profiles, err := domain.BuildProfiles(cum, daily, p.ref.Regions)
		if err != nil {
			return fmt.Errorf("profiles: %w", err)
		}
		snap.Daily = daily
		snap.Monthly = domain.AggregateMonthly(daily)
		snap.Profiles = profiles
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		series, err := domain.ParseNationalCSV(bytes.NewReader(in.National), p.opts.CountryISO)
		if err != nil {
			return fmt.Errorf("national: %w", err)
		}
		snap.National = series
		return nil
	})
	if p.opts.Continent != "" {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			totals, err := domain.ContinentComparison(bytes.NewReader(in.National), p.opts.Continent)
			if err != nil {
				return fmt.Errorf("continent: %w", err)
			}
			snap.Continent = totals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, err
	}

	p.record(snap)
	return snap, nil
}

// record logs the anomaly and override outcome of a snapshot and updates metrics.
func (p *Pipeline) record(snap domain.Snapshot) {
	for _, m := range snap.Daily.Misses {
		p.logger.Warn("negative daily delta without override",
			"date", m.Date.Format(domain.DateLayout),
			"region", m.Region,
			"delta", m.Delta,
		)
	}
	for _, o := range snap.Daily.Stale {
		p.logger.Warn("override matched no report row",
			"date", o.Date.Format(domain.DateLayout),
			"region", o.Region,
		)
	}
	for _, c := range snap.Daily.Corrections {
		p.logger.Debug("override applied",
			"date", c.Date.Format(domain.DateLayout),
			"region", c.Region,
			"raw", c.Raw,
			"value", c.Value,
		)
	}

	p.metrics.AnomalyMisses.Add(float64(len(snap.Daily.Misses)))
	p.metrics.OverridesApplied.Add(float64(len(snap.Daily.Corrections)))
	p.metrics.StaleOverrides.Set(float64(len(snap.Daily.Stale)))
	for table, n := range tableSizes(snap) {
		p.metrics.TableRows.WithLabelValues(table).Set(float64(n))
	}
}

func tableSizes(snap domain.Snapshot) map[string]int {
	return map[string]int{
		"cumulative":    len(snap.Cumulative.Rows),
		"daily":         len(snap.Daily.Rows),
		"monthly":       len(snap.Monthly.Rows),
		"long_form":     len(snap.LongForm),
		"state_profile": len(snap.Profiles),
		"national":      len(snap.National.Records),
		"continent":     len(snap.Continent),
	}
}

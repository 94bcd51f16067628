// Command validate runs the pipeline once over real or fixture inputs and
// checks the invariants of every derived table: date ordering, differencing
// round-trips, monthly reconciliation, long-format layout, and enrichment
// arithmetic. Each phase reports PASS or FAIL with its errors.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -cumulative https://raw.githubusercontent.com/ynshung/covid-19-malaysia/master/covid-19-my-states-cases.csv \
//	  -national data/owid-covid-data.csv \
//	  -boundary data/malaysia.geojson
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/covid-data-etl/internal/adapter/source"
	"github.com/couchcryptid/covid-data-etl/internal/config"
	"github.com/couchcryptid/covid-data-etl/internal/domain"
	"github.com/couchcryptid/covid-data-etl/internal/observability"
	"github.com/couchcryptid/covid-data-etl/internal/pipeline"
	"github.com/couchcryptid/covid-data-etl/internal/reference"
	"github.com/prometheus/client_golang/prometheus"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type inputs struct {
	cumulative string
	national   string
	boundary   string
	reference  string
	iso        string
}

func main() {
	var in inputs
	flag.StringVar(&in.cumulative, "cumulative", "", "per-state cumulative CSV (path or URL)")
	flag.StringVar(&in.national, "national", "", "national multi-country CSV (path or URL)")
	flag.StringVar(&in.boundary, "boundary", "", "boundary GeoJSON (path or URL); empty skips the name check")
	flag.StringVar(&in.reference, "reference", "", "reference YAML; empty uses the embedded default")
	flag.StringVar(&in.iso, "iso", "MYS", "ISO code of the national series")
	flag.Parse()

	if in.cumulative == "" || in.national == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(context.Background(), in, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, in inputs, w io.Writer) int {
	fmt.Fprintln(w, "=== COVID-19 Derived Table Validation ===")
	fmt.Fprintln(w)

	ref, err := reference.Load(in.reference)
	if err != nil {
		fmt.Fprintf(w, "FATAL: load reference: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())
	src := source.NewClient(&config.Config{
		CumulativeSource: in.cumulative,
		NationalSource:   in.national,
		BoundarySource:   in.boundary,
		FetchTimeout:     2 * time.Minute,
	}, metrics, logger)

	raw, err := src.Fetch(ctx)
	if err != nil {
		fmt.Fprintf(w, "FATAL: %v\n", err)
		return 1
	}

	snap, err := pipeline.New(ref, pipeline.Options{CountryISO: in.iso}, logger, metrics).Compute(ctx, raw)
	if err != nil {
		fmt.Fprintf(w, "FATAL: compute: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateCumulative(snap.Cumulative),
		validateDifferencing(snap.Cumulative, snap.Daily),
		validateMonthly(snap.Cumulative, snap.Daily, snap.Monthly),
		validateLongForm(snap.Cumulative, snap.LongForm, ref.Layout()),
		validateProfiles(snap.Profiles),
		validateNational(snap.National),
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d report rows, %d long-form, %d national, %d corrections, %d anomaly misses, %d stale overrides\n",
		len(snap.Cumulative.Rows), len(snap.LongForm), len(snap.National.Records),
		len(snap.Daily.Corrections), len(snap.Daily.Misses), len(snap.Daily.Stale))
	for _, m := range snap.Daily.Misses {
		fmt.Fprintf(w, "  warning: %v\n", m)
	}

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// ── Phases ──

func validateCumulative(cum domain.CumulativeTable) *phase {
	p := &phase{name: "Cumulative: ordering and non-negativity"}
	if len(cum.Rows) == 0 {
		p.errorf("no report rows")
		return p
	}
	for i, row := range cum.Rows {
		if i > 0 && !row.Date.After(cum.Rows[i-1].Date) {
			p.errorf("row %d (%s) is not after %s", i, row.RawDate, cum.Rows[i-1].RawDate)
		}
		for c, v := range row.Values {
			if v < 0 {
				p.errorf("%s %s is negative (%d)", row.RawDate, cum.Regions[c], v)
			}
		}
	}
	return p
}

func validateDifferencing(cum domain.CumulativeTable, daily domain.DailyTable) *phase {
	p := &phase{name: "Differencing: round-trip and corrections"}
	if len(daily.Rows) != len(cum.Rows) {
		p.errorf("daily has %d rows, cumulative %d", len(daily.Rows), len(cum.Rows))
		return p
	}

	type cell struct {
		date   time.Time
		region string
	}
	adjusted := make(map[cell]int64, len(daily.Corrections))
	for _, c := range daily.Corrections {
		adjusted[cell{c.Date, c.Region}] = c.Adjustment()
	}
	missed := make(map[cell]bool, len(daily.Misses))
	for _, m := range daily.Misses {
		missed[cell{m.Date, m.Region}] = true
	}

	for c, region := range cum.Regions {
		if v := daily.Rows[0].Values[c]; v != 0 {
			p.errorf("first daily value of %s is %d, want 0", region, v)
		}
		running := cum.Rows[0].Values[c]
		for i := 1; i < len(cum.Rows); i++ {
			k := cell{daily.Rows[i].Date, region}
			delta := daily.Rows[i].Values[c]
			running += delta - adjusted[k]
			if running != cum.Rows[i].Values[c] {
				p.errorf("%s %s: prefix sum %d != cumulative %d", cum.Rows[i].RawDate, region, running, cum.Rows[i].Values[c])
				break
			}
			if delta < 0 && !missed[k] {
				p.errorf("%s %s: negative delta %d not reported", cum.Rows[i].RawDate, region, delta)
			}
		}
	}
	return p
}

func validateMonthly(cum domain.CumulativeTable, daily domain.DailyTable, monthly domain.MonthlyTable) *phase {
	p := &phase{name: "Monthly: reconciliation with cumulative"}
	if !slices.IsSortedFunc(monthly.Rows, func(a, b domain.MonthlyRow) int { return strings.Compare(a.YearMonth, b.YearMonth) }) {
		p.errorf("monthly buckets are not ascending")
	}

	adjustment := make(map[string]int64)
	for _, c := range daily.Corrections {
		adjustment[c.Region] += c.Adjustment()
	}

	first, last := cum.Rows[0], cum.Rows[len(cum.Rows)-1]
	for c, region := range monthly.Regions {
		var total int64
		for _, row := range monthly.Rows {
			total += row.Values[c]
		}
		want := last.Values[c] - first.Values[c]
		if got := total - adjustment[region]; got != want {
			p.errorf("%s: monthly total %d (adjustment %d) != cumulative difference %d", region, total, adjustment[region], want)
		}
	}
	return p
}

func validateLongForm(cum domain.CumulativeTable, records []domain.LongRecord, layout domain.BoundaryLayout) *phase {
	p := &phase{name: "Long form: layout and uniqueness"}
	if want := len(layout.Order) * len(cum.Rows); len(records) != want {
		p.errorf("long form has %d records, want %d", len(records), want)
	}

	seen := make(map[string]bool, len(records))
	for i, r := range records {
		key := r.State + "|" + r.Date.Format(domain.DateLayout)
		if seen[key] {
			p.errorf("duplicate (date, state) %s", key)
		}
		seen[key] = true
		if r.YearMonth != domain.YearMonth(r.Date) {
			p.errorf("record %d: year_month %s does not match %s", i, r.YearMonth, r.Date.Format(domain.DateLayout))
		}
		if n := len(cum.Rows); n > 0 {
			if want := layout.Order[i/n]; r.State != want {
				p.errorf("record %d: state %s, want %s", i, r.State, want)
				break
			}
		}
	}
	return p
}

func validateProfiles(profiles []domain.StateProfile) *phase {
	p := &phase{name: "Enrichment: rate and density arithmetic"}
	for _, s := range profiles {
		if s.Population <= 0 || s.Area <= 0 {
			p.errorf("%s: population %d area %g", s.Region, s.Population, s.Area)
			continue
		}
		if want := float64(s.CumulativeCase) * 100 / float64(s.Population); !floatEq(s.CumulativeInfectedRate, want) {
			p.errorf("%s: rate %g, want %g", s.Region, s.CumulativeInfectedRate, want)
		}
		if want := float64(s.Population) / s.Area; !floatEq(s.PopulationDensity, want) {
			p.errorf("%s: density %g, want %g", s.Region, s.PopulationDensity, want)
		}
	}
	return p
}

func validateNational(series domain.NationalSeries) *phase {
	p := &phase{name: "National: ordering"}
	if len(series.Records) == 0 {
		p.errorf("no national records for %s", series.ISOCode)
	}
	for i := 1; i < len(series.Records); i++ {
		if series.Records[i].Date.Before(series.Records[i-1].Date) {
			p.errorf("record %d out of order", i)
		}
	}
	return p
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

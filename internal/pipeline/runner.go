package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/covid-data-etl/internal/domain"
	"github.com/couchcryptid/covid-data-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

// Source fetches one set of raw inputs.
type Source interface {
	Fetch(ctx context.Context) (domain.RawInputs, error)
}

// Publisher hands a snapshot to a downstream sink and reports how many
// messages it wrote.
type Publisher interface {
	Publish(ctx context.Context, snap domain.Snapshot) (int, error)
}

const (
	initialBackoff = time.Second
	maxBackoff     = 5 * time.Minute
)

// Runner repeats fetch, compute, and publish on a refresh interval and keeps
// the latest successful snapshot.
type Runner struct {
	source    Source
	pipeline  *Pipeline
	publisher Publisher // nil disables publishing
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	latest    atomic.Pointer[domain.Snapshot]
}

// NewRunner creates a Runner. publisher may be nil.
func NewRunner(src Source, p *Pipeline, pub Publisher, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{
		source:    src,
		pipeline:  p,
		publisher: pub,
		interval:  interval,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
		metrics:   metrics,
	}
}

// SetClock swaps the time source used for refresh and backoff waits.
func (r *Runner) SetClock(c clockwork.Clock) {
	r.clock = c
}

// Latest returns the most recent successful snapshot.
func (r *Runner) Latest() (domain.Snapshot, bool) {
	snap := r.latest.Load()
	if snap == nil {
		return domain.Snapshot{}, false
	}
	return *snap, true
}

// CheckReadiness returns nil once a snapshot has been computed and published.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if r.latest.Load() == nil {
		return errors.New("no snapshot computed yet")
	}
	return nil
}

// Run executes the refresh loop until the context is cancelled. Failed runs
// are retried with exponential backoff; the previous snapshot stays current.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("pipeline started", "refresh_interval", r.interval)
	r.metrics.PipelineRunning.Set(1)
	defer r.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		wait := r.interval
		if _, err := r.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				r.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			r.logger.Error("pipeline run failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = retry.NextBackoff(backoff, min(maxBackoff, r.interval))
		} else {
			backoff = initialBackoff
		}

		if !sleepWithContext(ctx, r.clock, wait) {
			r.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunOnce performs a single fetch-compute-publish cycle. The snapshot becomes
// current only after it has been published.
func (r *Runner) RunOnce(ctx context.Context) (domain.Snapshot, error) {
	start := r.clock.Now()
	snap, err := r.runOnce(ctx)
	r.metrics.RunDuration.Observe(r.clock.Since(start).Seconds())
	if err != nil {
		r.metrics.RunsTotal.WithLabelValues("error").Inc()
		return domain.Snapshot{}, err
	}

	r.latest.Store(&snap)
	r.metrics.RunsTotal.WithLabelValues("success").Inc()
	r.metrics.LastSuccessTimestamp.Set(float64(snap.ComputedAt.Unix()))
	r.logger.Info("snapshot computed",
		"run_id", snap.RunID,
		"report_rows", len(snap.Cumulative.Rows),
		"corrections", len(snap.Daily.Corrections),
		"anomaly_misses", len(snap.Daily.Misses),
	)
	return snap, nil
}

func (r *Runner) runOnce(ctx context.Context) (domain.Snapshot, error) {
	in, err := r.source.Fetch(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("fetch: %w", err)
	}

	snap, err := r.pipeline.Compute(ctx, in)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("compute: %w", err)
	}

	if r.publisher != nil {
		n, err := r.publisher.Publish(ctx, snap)
		r.metrics.MessagesProduced.Add(float64(n))
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("publish: %w", err)
		}
	}
	return snap, nil
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

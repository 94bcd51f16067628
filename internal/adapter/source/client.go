package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/covid-data-etl/internal/config"
	"github.com/couchcryptid/covid-data-etl/internal/domain"
	"github.com/couchcryptid/covid-data-etl/internal/observability"
	"golang.org/x/sync/errgroup"
)

// maxBodyBytes caps a single download; the full national dataset is well under this.
const maxBodyBytes = 512 << 20

// Client fetches the raw input documents from URLs or local files.
// It implements pipeline.Source.
type Client struct {
	cumulative string
	national   string
	boundary   string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a source client for the configured input locations.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		cumulative: cfg.CumulativeSource,
		national:   cfg.NationalSource,
		boundary:   cfg.BoundarySource,
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch downloads all inputs concurrently. The boundary document is skipped
// when no location is configured. The first failure cancels the others.
func (c *Client) Fetch(ctx context.Context) (domain.RawInputs, error) {
	var in domain.RawInputs
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Cumulative, err = c.fetch(ctx, "cumulative", c.cumulative)
		return err
	})
	g.Go(func() (err error) {
		in.National, err = c.fetch(ctx, "national", c.national)
		return err
	})
	if c.boundary != "" {
		g.Go(func() (err error) {
			in.Boundary, err = c.fetch(ctx, "boundary", c.boundary)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return domain.RawInputs{}, err
	}
	return in, nil
}

func (c *Client) fetch(ctx context.Context, name, location string) ([]byte, error) {
	start := time.Now()
	var (
		data []byte
		err  error
	)
	if isRemote(location) {
		data, err = c.get(ctx, location)
	} else {
		data, err = os.ReadFile(strings.TrimPrefix(location, "file://"))
	}
	c.metrics.SourceFetchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.SourceFetches.WithLabelValues(name, "error").Inc()
		return nil, fmt.Errorf("fetch %s source: %w", name, err)
	}
	c.metrics.SourceFetches.WithLabelValues(name, "success").Inc()
	c.logger.Debug("source fetched", "source", name, "bytes", len(data), "duration", time.Since(start))
	return data, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	return data, nil
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

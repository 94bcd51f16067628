package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/covid-data-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(cumulative, national, boundary string) *Client {
	return &Client{
		cumulative: cumulative,
		national:   national,
		boundary:   boundary,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_Fetch_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/states.csv":
			_, _ = io.WriteString(w, "date,perlis\n01/04/2020,1\n")
		case "/owid.csv":
			_, _ = io.WriteString(w, "iso_code,location,date\n")
		case "/malaysia.geojson":
			_, _ = io.WriteString(w, `{"features":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL+"/states.csv", srv.URL+"/owid.csv", srv.URL+"/malaysia.geojson")
	in, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "date,perlis\n01/04/2020,1\n", string(in.Cumulative))
	assert.Equal(t, "iso_code,location,date\n", string(in.National))
	assert.JSONEq(t, `{"features":[]}`, string(in.Boundary))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.SourceFetches.WithLabelValues("national", "success")))
}

func TestClient_Fetch_Files(t *testing.T) {
	dir := t.TempDir()
	cumulative := filepath.Join(dir, "states.csv")
	national := filepath.Join(dir, "owid.csv")
	require.NoError(t, os.WriteFile(cumulative, []byte("cum"), 0o600))
	require.NoError(t, os.WriteFile(national, []byte("nat"), 0o600))

	c := testClient(cumulative, "file://"+national, "")
	in, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "cum", string(in.Cumulative))
	assert.Equal(t, "nat", string(in.National))
	assert.Nil(t, in.Boundary, "boundary is skipped when unset")
}

func TestClient_Fetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL+"/states.csv", srv.URL+"/owid.csv", "")
	_, err := c.Fetch(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestClient_Fetch_MissingFile(t *testing.T) {
	c := testClient(filepath.Join(t.TempDir(), "absent.csv"), filepath.Join(t.TempDir(), "absent.csv"), "")
	_, err := c.Fetch(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "source")
}

func TestClient_Fetch_ContextCanceled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient(srv.URL+"/a", srv.URL+"/b", "")
	_, err := c.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, isRemote("https://example.com/a.csv"))
	assert.True(t, isRemote("http://localhost:8000/a.csv"))
	assert.False(t, isRemote("testdata/a.csv"))
	assert.False(t, isRemote("file:///tmp/a.csv"))
}

package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/covid-data-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SnapshotSource returns the most recently published snapshot.
type SnapshotSource interface {
	Latest() (domain.Snapshot, bool)
}

// Server exposes health, readiness, metrics, and snapshot summary HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and /snapshot routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, snapshots SnapshotSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /snapshot", handleSnapshot(snapshots))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type snapshotSummary struct {
	RunID         string           `json:"run_id"`
	ComputedAt    time.Time        `json:"computed_at"`
	LatestReport  string           `json:"latest_report,omitempty"`
	Tables        map[string]int   `json:"tables"`
	Corrections   int              `json:"corrections"`
	AnomalyMisses []string         `json:"anomaly_misses,omitempty"`
	StaleOverride int              `json:"stale_overrides"`
	National      *nationalSummary `json:"national,omitempty"`
}

type nationalSummary struct {
	Location    string  `json:"location"`
	Date        string  `json:"date"`
	TotalCases  float64 `json:"total_cases"`
	NewCases    float64 `json:"new_cases"`
	TotalDeaths float64 `json:"total_deaths"`
	NewDeaths   float64 `json:"new_deaths"`

	Vaccination *domain.VaccinationBreakdown `json:"vaccination,omitempty"`
}

func handleSnapshot(snapshots SnapshotSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap, ok := snapshots.Latest()
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no snapshot yet"})
			return
		}
		writeJSON(w, http.StatusOK, summarize(snap))
	}
}

func summarize(snap domain.Snapshot) snapshotSummary {
	sum := snapshotSummary{
		RunID:      snap.RunID,
		ComputedAt: snap.ComputedAt,
		Tables: map[string]int{
			"cumulative":    len(snap.Cumulative.Rows),
			"daily":         len(snap.Daily.Rows),
			"monthly":       len(snap.Monthly.Rows),
			"long_form":     len(snap.LongForm),
			"state_profile": len(snap.Profiles),
			"national":      len(snap.National.Records),
			"continent":     len(snap.Continent),
		},
		Corrections:   len(snap.Daily.Corrections),
		StaleOverride: len(snap.Daily.Stale),
	}
	if row, ok := snap.Cumulative.Latest(); ok {
		sum.LatestReport = row.Date.Format(domain.DateLayout)
	}
	for _, m := range snap.Daily.Misses {
		sum.AnomalyMisses = append(sum.AnomalyMisses, m.Error())
	}
	if rec, ok := snap.National.Latest(); ok {
		sum.National = &nationalSummary{
			Location:    snap.National.Location,
			Date:        rec.Date.Format("2006-01-02"),
			TotalCases:  rec.TotalCases,
			NewCases:    rec.NewCases,
			TotalDeaths: rec.TotalDeaths,
			NewDeaths:   rec.NewDeaths,
		}
		if vb, ok := snap.National.VaccinationStatus(rec.Date); ok {
			sum.National.Vaccination = &vb
		}
	}
	return sum
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

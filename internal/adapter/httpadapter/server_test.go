package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/covid-data-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/covid-data-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockSnapshots struct {
	snap *domain.Snapshot
}

func (m *mockSnapshots) Latest() (domain.Snapshot, bool) {
	if m.snap == nil {
		return domain.Snapshot{}, false
	}
	return *m.snap, true
}

func newTestServer(readyErr error, snap *domain.Snapshot) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockSnapshots{snap: snap}, slog.Default())
}

func serve(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(nil, nil), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(errors.New("no snapshot computed yet"), nil), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSnapshotReturns503BeforeFirstRun(t *testing.T) {
	rec := serve(newTestServer(nil, nil), "/snapshot")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSnapshotSummary(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2020, time.April, d, 0, 0, 0, 0, time.UTC) }
	snap := domain.Snapshot{
		RunID:      "run-1",
		ComputedAt: time.Date(2021, time.June, 1, 12, 0, 0, 0, time.UTC),
		Cumulative: domain.CumulativeTable{
			Regions: []string{"perlis"},
			Rows: []domain.CumulativeRow{
				{Date: day(1), Values: []int64{1}},
				{Date: day(2), Values: []int64{3}},
			},
		},
		Daily: domain.DailyTable{
			Regions: []string{"perlis"},
			Rows:    []domain.DailyRow{{Date: day(1), Values: []int64{0}}, {Date: day(2), Values: []int64{2}}},
			Misses:  []domain.AnomalyCorrectionMiss{{Date: day(2), Region: "perlis", Delta: -1}},
		},
		LongForm: make([]domain.LongRecord, 2),
		National: domain.NationalSeries{
			ISOCode:  "MYS",
			Location: "Malaysia",
			Records:  []domain.NationalRecord{{Date: day(2), TotalCases: 3662, NewCases: 217}},
		},
	}

	rec := serve(newTestServer(nil, &snap), "/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RunID         string         `json:"run_id"`
		LatestReport  string         `json:"latest_report"`
		Tables        map[string]int `json:"tables"`
		AnomalyMisses []string       `json:"anomaly_misses"`
		National      struct {
			Location   string  `json:"location"`
			Date       string  `json:"date"`
			TotalCases float64 `json:"total_cases"`
		} `json:"national"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "run-1", body.RunID)
	assert.Equal(t, "02/04/2020", body.LatestReport)
	assert.Equal(t, 2, body.Tables["daily"])
	assert.Equal(t, 2, body.Tables["long_form"])
	assert.Equal(t, 0, body.Tables["monthly"])
	assert.Len(t, body.AnomalyMisses, 1)
	assert.Equal(t, "Malaysia", body.National.Location)
	assert.Equal(t, "2020-04-02", body.National.Date)
	assert.Equal(t, 3662.0, body.National.TotalCases)
	assert.NotContains(t, rec.Body.String(), "vaccination")
}

func TestSnapshotSummaryVaccination(t *testing.T) {
	date := time.Date(2021, time.August, 1, 0, 0, 0, 0, time.UTC)
	snap := domain.Snapshot{
		RunID: "run-2",
		National: domain.NationalSeries{
			ISOCode:  "MYS",
			Location: "Malaysia",
			Records: []domain.NationalRecord{{
				Date:                  date,
				PeopleVaccinated:      15000000,
				PeopleFullyVaccinated: 9000000,
				Population:            32365998,
			}},
		},
	}

	rec := serve(newTestServer(nil, &snap), "/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		National struct {
			Vaccination *domain.VaccinationBreakdown `json:"vaccination"`
		} `json:"national"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.NotNil(t, body.National.Vaccination)
	assert.Equal(t, 6000000.0, body.National.Vaccination.FirstDoseOnly)
	assert.Equal(t, 17365998.0, body.National.Vaccination.Unvaccinated)
}

package api

import (
	"bytes"
	"encoding/json"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"macro-stress/internal/api/handlers"
	"macro-stress/internal/api/models"
	"macro-stress/internal/config"
	"macro-stress/internal/dashboard"
	"macro-stress/internal/data"
	"macro-stress/internal/model"
	"macro-stress/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// syntheticMacro has rates near 4%, Treasury yields, a Technology index and two stocks.
// The final day has no 10Y observation.
func syntheticMacro(t *testing.T, n int) *model.Table {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	tbl := model.NewTable("2Y_Treasury", "10Y_Treasury", "FedFunds", "HY_OAS", "Technology", "Consumer", "AAPL", "MSFT")
	ff, hy, tech, cons, aapl, msft := 0.5, 0.2, 100.0, 80.0, 150.0, 300.0
	d := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ff = 0.95*ff + 0.1*rng.NormFloat64()
		hy = 0.05*ff + 0.85*hy + 0.1*rng.NormFloat64()
		r := 0.01 * rng.NormFloat64()
		tech *= 1 + r
		cons *= 1 + 0.005*rng.NormFloat64()
		aapl *= 1 + 1.2*r + 0.002*rng.NormFloat64()
		msft *= 1 + 0.8*r + 0.002*rng.NormFloat64()
		tenY := 4.3 + hy
		if i == n-1 {
			tenY = math.NaN()
		}
		require.NoError(t, tbl.Append(d, []float64{3.8 + ff, tenY, 4 + ff, 4 + hy, tech, cons, aapl, msft}))
		d = model.NextBusinessDay(d)
	}
	return tbl
}

type testServer struct {
	router *gin.Engine
	ds     *handlers.Dataset
	macro  *model.Table
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.MacroCSV = filepath.Join(dir, "macro_data.csv")
	cfg.Paths.ModelPath = filepath.Join(dir, "var_model.yaml")
	cfg.Paths.ScenariosPath = filepath.Join(dir, "mc_paths.parquet")
	cfg.Paths.ValuationsPath = filepath.Join(dir, "valuations.parquet")
	cfg.Paths.CatalogPath = filepath.Join(dir, "series.json")
	cfg.Scenario.Horizon = 20
	cfg.Scenario.MaxLag = 2

	macro := syntheticMacro(t, 300)
	require.NoError(t, data.SaveMacroCSV(cfg.Paths.MacroCSV, macro))

	eng := pipeline.New(cfg, zerolog.Nop())
	ds, err := LoadDataset(cfg, eng, zerolog.Nop())
	require.NoError(t, err)

	router := NewRouter(Deps{Config: cfg, Dataset: ds, Engine: eng, Log: zerolog.Nop()})
	return &testServer{router: router, ds: ds, macro: macro}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[models.ErrorResponse](t, w).Error.Code
}

func TestLoadDatasetGeneratesInMemory(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, 300, s.ds.Macro.Len())
	assert.Equal(t, 20, s.ds.Scenarios.Horizon())
	assert.Len(t, s.ds.Valuations, 2*3*6)
	assert.Len(t, s.ds.Catalog.Entries, 10)
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestListScenariosAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/scenarios", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.ScenarioSetResponse](t, w)
	assert.Equal(t, []string{"base", "up", "down"}, resp.Scenarios)
	assert.Equal(t, []string{"FedFunds", "HY_OAS", "Technology"}, resp.Columns)
	assert.Equal(t, 20, resp.Horizon)
	assert.True(t, resp.Start.After(s.macro.LastDate()))

	w = s.do(t, http.MethodGet, "/api/v1/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	metrics := decode[map[string][]dashboard.MetricOption](t, w)
	assert.Len(t, metrics["metrics"], 3)
}

func TestTimeSeries(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/timeseries?scenario=up&metric=FedFunds&shock_bp=250", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ts := decode[dashboard.TimeSeries](t, w)
	require.Len(t, ts.Shocked.Points, 20)
	assert.Greater(t, ts.Shocked.Points[0].Value, ts.Base.Points[0].Value)

	w = s.do(t, http.MethodGet, "/api/v1/timeseries?scenario=up&metric=FedFunds&shock_bp=0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	zero := decode[dashboard.TimeSeries](t, w)
	assert.Equal(t, zero.Base.Points, zero.Shocked.Points)

	cases := []struct {
		query string
		code  string
	}{
		{"scenario=up&metric=FedFunds&shock_bp=400", "INVALID_REQUEST"},
		{"scenario=sideways&metric=FedFunds", "INVALID_SCENARIO"},
		{"scenario=up&metric=AAPL", "UNKNOWN_METRIC"},
		{"scenario=up&run_id=nope", "RUN_NOT_FOUND"},
	}
	for _, tc := range cases {
		w := s.do(t, http.MethodGet, "/api/v1/timeseries?"+tc.query, nil)
		assert.GreaterOrEqual(t, w.Code, 400, tc.query)
		assert.Equal(t, tc.code, errorCode(t, w), tc.query)
	}
}

func TestStats(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.StatsResponse](t, w)
	require.Len(t, resp.Stats, 9)
	require.NotNil(t, resp.Stats[0].MaxDeviation)
	assert.Equal(t, 0.0, *resp.Stats[0].MaxDeviation)
}

func TestYields(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/yields/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode[map[string][]dashboard.Series](t, w)
	require.Len(t, hist["series"], 2)
	assert.Len(t, hist["series"][0].Points, 300)
	assert.Len(t, hist["series"][1].Points, 299)

	w = s.do(t, http.MethodGet, "/api/v1/yields/snapshot?scenario=up&shock_bp=250", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[dashboard.Snapshot](t, w)
	assert.Equal(t, s.macro.Date(298), snap.AsOf)
	assert.InDelta(t, snap.Base[0]*1.2, snap.Shocked[0], 1e-9)
}

func TestValuationsAndRanking(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/valuations?company=AAPL&scenario=up", nil)
	require.Equal(t, http.StatusOK, w.Code)
	vals := decode[models.ValuationResponse](t, w)
	assert.Equal(t, 6, vals.Count)
	assert.Equal(t, "TV", vals.Records[5].Year)

	w = s.do(t, http.MethodGet, "/api/v1/valuations/ranking?scenario=base", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rank := decode[models.RankResponse](t, w)
	require.Len(t, rank.Rankings, 2)
	// MSFT has the lower beta, so the lower discount rate and the higher value.
	assert.Equal(t, "MSFT", rank.Rankings[0].Company)
	assert.Equal(t, 1, rank.Rankings[0].Rank)
	assert.Len(t, rank.Rankings[0].TotalPV, 3)
}

func TestRuns(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/runs", map[string]any{"shock_magnitude": 0, "value": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	run := decode[models.RunResponse](t, w)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 0.0, run.Shock.Magnitude)
	assert.Equal(t, "FedFunds", run.Shock.Column)
	assert.Equal(t, 36, run.Valuations)
	assert.Len(t, run.Stats, 9)

	w = s.do(t, http.MethodGet, "/api/v1/runs/"+run.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/timeseries?scenario=up&metric=FedFunds&shock_bp=250&run_id="+run.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ts := decode[dashboard.TimeSeries](t, w)
	assert.Equal(t, ts.Base.Points, ts.Shocked.Points, "a zero shock leaves every path on base")

	w = s.do(t, http.MethodPost, "/api/v1/runs", map[string]any{"horizon": 5, "criterion": "aic"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/runs", nil)
	list := decode[models.RunListResponse](t, w)
	require.Len(t, list.Runs, 2)
	assert.Equal(t, 5, list.Runs[0].Horizon, "newest first")

	w = s.do(t, http.MethodGet, "/api/v1/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/runs", map[string]any{"shock_column": "Unemployment"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SHOCK_COLUMN_MISSING", errorCode(t, w))

	w = s.do(t, http.MethodPost, "/api/v1/runs", map[string]any{"columns": []string{"FedFunds", "Industrials"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "COLUMN_NOT_FOUND", errorCode(t, w))

	w = s.do(t, http.MethodPost, "/api/v1/runs", map[string]any{"criterion": "aicc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))

	w = s.do(t, http.MethodPost, "/api/v1/runs", map[string]any{"shock_magnitude": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportWorkbook(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/export.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxMIME, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "macro_stress.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"base", "up", "down", "valuations"}, f.GetSheetList())
}

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func TestSeriesCatalog(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/series?kind=sector", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Series []models.SeriesInfo `json:"series"`
		Count  int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "XLK", resp.Series[0].Code)
}

func TestCORSPreflightAndMetrics(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	s.do(t, http.MethodGet, "/api/v1/scenarios", nil)
	w = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `macro_stress_http_requests_total{method="GET",path="/api/v1/scenarios",status="200"} 1`), body)
}

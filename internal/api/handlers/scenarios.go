package handlers

import (
	"math"
	"net/http"

	"macro-stress/internal/analysis"
	"macro-stress/internal/api/models"
	"macro-stress/internal/dashboard"
	"macro-stress/internal/scenario"
	"macro-stress/internal/valuation"

	"github.com/gin-gonic/gin"
)

// source resolves either the startup dataset or a stored run.
type source struct {
	ds   *Dataset
	runs *RunRegistry
}

func (s source) resolve(c *gin.Context, runID string) (*scenario.Set, []valuation.Record, bool) {
	if runID == "" {
		if s.ds.Scenarios == nil {
			writeError(c, http.StatusNotFound, "NO_SCENARIOS", "no scenario table loaded")
			return nil, nil, false
		}
		return s.ds.Scenarios, s.ds.Valuations, true
	}
	run, ok := s.runs.Get(runID)
	if !ok {
		writeError(c, http.StatusNotFound, "RUN_NOT_FOUND", "no run with id "+runID)
		return nil, nil, false
	}
	return run.Result.Set, run.Records(), true
}

// ScenarioHandler serves scenario paths and the chart data built from them.
type ScenarioHandler struct {
	source
}

func NewScenarioHandler(ds *Dataset, runs *RunRegistry) *ScenarioHandler {
	return &ScenarioHandler{source{ds: ds, runs: runs}}
}

// ListScenarios handles GET /api/v1/scenarios
func (h *ScenarioHandler) ListScenarios(c *gin.Context) {
	runID := c.Query("run_id")
	set, _, ok := h.resolve(c, runID)
	if !ok {
		return
	}
	resp := setResponse(set)
	resp.RunID = runID
	c.JSON(http.StatusOK, resp)
}

// ListMetrics handles GET /api/v1/metrics
func (h *ScenarioHandler) ListMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"metrics": dashboard.MetricOptions()})
}

// TimeSeries handles GET /api/v1/timeseries
func (h *ScenarioHandler) TimeSeries(c *gin.Context) {
	var q models.TimeSeriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalidRequest(c, err)
		return
	}
	label, ok := parseScenario(c, q.Scenario)
	if !ok {
		return
	}
	if q.Metric == "" {
		q.Metric = dashboard.MetricOptions()[0].Value
	}
	set, _, ok := h.resolve(c, q.RunID)
	if !ok {
		return
	}
	ts, err := dashboard.ScaledSeries(set, label, q.Metric, q.ShockBP)
	if err != nil {
		writeDomainError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, ts)
}

// Stats handles GET /api/v1/stats
func (h *ScenarioHandler) Stats(c *gin.Context) {
	runID := c.Query("run_id")
	set, _, ok := h.resolve(c, runID)
	if !ok {
		return
	}
	stats, err := analysis.ComputeStats(set)
	if err != nil {
		writeDomainError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, models.StatsResponse{RunID: runID, Stats: pathStats(stats)})
}

// YieldHistory handles GET /api/v1/yields/history
func (h *ScenarioHandler) YieldHistory(c *gin.Context) {
	series, err := dashboard.YieldHistory(h.ds.Macro)
	if err != nil {
		writeDomainError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"series": series})
}

// YieldSnapshot handles GET /api/v1/yields/snapshot
func (h *ScenarioHandler) YieldSnapshot(c *gin.Context) {
	var q models.SnapshotQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalidRequest(c, err)
		return
	}
	label, ok := parseScenario(c, q.Scenario)
	if !ok {
		return
	}
	snap, err := dashboard.YieldSnapshot(h.ds.Macro, label, q.ShockBP)
	if err != nil {
		writeDomainError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func setResponse(set *scenario.Set) models.ScenarioSetResponse {
	resp := models.ScenarioSetResponse{
		Columns: set.Columns,
		Horizon: set.Horizon(),
		KAr:     set.KAr,
	}
	for _, l := range set.Labels() {
		resp.Scenarios = append(resp.Scenarios, string(l))
	}
	if len(set.Paths) > 0 && set.Horizon() > 0 {
		dates := set.Paths[0].Dates
		resp.Start, resp.End = dates[0], dates[len(dates)-1]
	}
	return resp
}

func pathStats(stats []analysis.PathStats) []models.PathStat {
	out := make([]models.PathStat, len(stats))
	for i, s := range stats {
		out[i] = models.PathStat{
			Scenario: string(s.Scenario),
			Column:   s.Column,
			Terminal: s.Terminal,
			Min:      s.Min,
			Max:      s.Max,
			Mean:     s.Mean,
			P05:      s.P05,
			P95:      s.P95,
		}
		if !math.IsNaN(s.MaxDeviation) {
			dev := s.MaxDeviation
			out[i].MaxDeviation = &dev
		}
	}
	return out
}

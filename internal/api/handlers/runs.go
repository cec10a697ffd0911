package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"macro-stress/internal/api/middleware"
	"macro-stress/internal/api/models"
	"macro-stress/internal/config"
	"macro-stress/internal/pipeline"
	"macro-stress/internal/scenario"
	"macro-stress/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RunHandler creates ad-hoc scenario runs and exports results.
type RunHandler struct {
	source
	defaults config.ScenarioConfig
	engine   *pipeline.Engine
	metrics  *middleware.Metrics
	log      zerolog.Logger
}

func NewRunHandler(ds *Dataset, runs *RunRegistry, engine *pipeline.Engine, defaults config.ScenarioConfig, metrics *middleware.Metrics, log zerolog.Logger) *RunHandler {
	return &RunHandler{
		source:   source{ds: ds, runs: runs},
		defaults: defaults,
		engine:   engine,
		metrics:  metrics,
		log:      log,
	}
}

// CreateRun handles POST /api/v1/runs
func (h *RunHandler) CreateRun(c *gin.Context) {
	var req models.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	if h.ds.Macro == nil {
		writeError(c, http.StatusServiceUnavailable, "NO_MACRO_DATA", "no macro table loaded")
		return
	}

	sc := config.MergeScenario(h.defaults, config.ScenarioConfig{
		Columns:     req.Columns,
		MaxLag:      req.MaxLag,
		Criterion:   req.Criterion,
		Horizon:     req.Horizon,
		ShockColumn: req.ShockColumn,
	})
	if req.ShockMagnitude != nil {
		sc.ShockMagnitude = *req.ShockMagnitude
	}
	// Ad-hoc runs never touch the persisted model.
	sc.ReuseModel = false

	start := time.Now()
	res, err := h.engine.Run(h.ds.Macro, sc, false, req.Value)
	h.metrics.ObserveRun(err, time.Since(start))
	if err != nil {
		h.log.Warn().Err(err).Str("shock_column", sc.ShockColumn).Msg("run failed")
		writeDomainError(c, err, http.StatusUnprocessableEntity)
		return
	}

	run := &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Shock:     scenario.Shock{Column: sc.ShockColumn, Magnitude: sc.ShockMagnitude},
		Result:    res,
	}
	h.runs.Add(run)
	h.log.Info().Str("run_id", run.ID).Float64("shock", sc.ShockMagnitude).Msg("stored run")
	c.JSON(http.StatusCreated, runResponse(run))
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	run, ok := h.runs.Get(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, "RUN_NOT_FOUND", "no run with id "+c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, runResponse(run))
}

// ListRuns handles GET /api/v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	runs := h.runs.List()
	out := make([]models.RunSummary, len(runs))
	for i, r := range runs {
		out[i] = models.RunSummary{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			Shock:     models.ShockInfo{Column: r.Shock.Column, Magnitude: r.Shock.Magnitude},
			Horizon:   r.Result.Set.Horizon(),
		}
	}
	c.JSON(http.StatusOK, models.RunListResponse{Runs: out})
}

// Export handles GET /api/v1/export.xlsx
func (h *RunHandler) Export(c *gin.Context) {
	runID := c.Query("run_id")
	set, records, ok := h.resolve(c, runID)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := store.WriteWorkbook(&buf, set, records); err != nil {
		writeDomainError(c, err, http.StatusInternalServerError)
		return
	}
	name := "macro_stress.xlsx"
	if runID != "" {
		name = fmt.Sprintf("macro_stress_%s.xlsx", runID)
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func runResponse(run *Run) models.RunResponse {
	resp := models.RunResponse{
		ID:         run.ID,
		CreatedAt:  run.CreatedAt,
		Shock:      models.ShockInfo{Column: run.Shock.Column, Magnitude: run.Shock.Magnitude},
		Set:        setResponse(run.Result.Set),
		Stats:      pathStats(run.Result.Stats),
		DurationMS: run.Result.Duration.Milliseconds(),
	}
	resp.Set.RunID = run.ID
	if v := run.Result.Valuation; v != nil {
		resp.Valuations = len(v.Records)
		resp.Skipped = v.Skipped
	}
	return resp
}

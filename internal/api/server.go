// Package api assembles the dashboard HTTP server.
package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"macro-stress/internal/api/handlers"
	"macro-stress/internal/api/middleware"
	"macro-stress/internal/config"
	"macro-stress/internal/data"
	"macro-stress/internal/logging"
	"macro-stress/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the router needs.
type Deps struct {
	Config  *config.Config
	Dataset *handlers.Dataset
	Engine  *pipeline.Engine
	Runs    *handlers.RunRegistry
	Metrics *middleware.Metrics
	Log     zerolog.Logger
}

// LoadDataset reads the macro table, the scenario table and the valuations, generating
// the latter two in memory when they have not been written yet.
func LoadDataset(cfg *config.Config, eng *pipeline.Engine, log zerolog.Logger) (*handlers.Dataset, error) {
	macro, err := eng.LoadMacro()
	if err != nil {
		return nil, err
	}
	set, err := eng.LoadScenarios(macro)
	if err != nil {
		return nil, err
	}
	ds := &handlers.Dataset{
		Macro:      macro,
		Scenarios:  set,
		Valuations: eng.LoadValuations(macro, set),
	}

	ds.Catalog, err = data.LoadCatalog(cfg.Paths.CatalogPath)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		ds.Catalog = data.CatalogFromSources(cfg.Sources)
	default:
		log.Warn().Err(err).Str("path", cfg.Paths.CatalogPath).Msg("catalog unreadable, using configured sources")
		ds.Catalog = data.CatalogFromSources(cfg.Sources)
	}

	log.Info().
		Int("macro_rows", macro.Len()).
		Int("horizon", set.Horizon()).
		Int("valuations", len(ds.Valuations)).
		Int("series", len(ds.Catalog.Entries)).
		Msg("dataset loaded")
	return ds, nil
}

// NewRouter builds the gin engine with middleware, API routes and optional SPA serving.
func NewRouter(d Deps) *gin.Engine {
	if d.Runs == nil {
		d.Runs = handlers.NewRunRegistry(0)
	}
	if d.Metrics == nil {
		d.Metrics = middleware.NewMetrics()
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(d.Log))
	router.Use(middleware.ErrorHandler(d.Log))
	router.Use(middleware.CORS(d.Config.Env.AllowedOrigins))
	router.Use(d.Metrics.Middleware())

	scenarioHandler := handlers.NewScenarioHandler(d.Dataset, d.Runs)
	valuationHandler := handlers.NewValuationHandler(d.Dataset, d.Runs)
	seriesHandler := handlers.NewSeriesHandler(d.Dataset)
	runHandler := handlers.NewRunHandler(d.Dataset, d.Runs, d.Engine, d.Config.Scenario, d.Metrics,
		logging.Component(d.Log, "runs"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/scenarios", scenarioHandler.ListScenarios)
		api.GET("/metrics", scenarioHandler.ListMetrics)
		api.GET("/timeseries", scenarioHandler.TimeSeries)
		api.GET("/stats", scenarioHandler.Stats)
		api.GET("/yields/history", scenarioHandler.YieldHistory)
		api.GET("/yields/snapshot", scenarioHandler.YieldSnapshot)

		api.GET("/valuations", valuationHandler.ListValuations)
		api.GET("/valuations/ranking", valuationHandler.RankCompanies)

		api.GET("/runs", runHandler.ListRuns)
		api.POST("/runs", runHandler.CreateRun)
		api.GET("/runs/:id", runHandler.GetRun)
		api.GET("/export.xlsx", runHandler.Export)

		api.GET("/series", seriesHandler.ListSeries)
	}

	serveStatic(router, d.Config.Env.StaticDir, d.Log)
	return router
}

// serveStatic serves a built SPA from dir, answering unknown non-API paths with index.html.
func serveStatic(router *gin.Engine, dir string, log zerolog.Logger) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.Info().Str("dir", dir).Msg("static directory not found, skipping static file serving")
		return
	}
	router.Static("/assets", filepath.Join(dir, "assets"))
	router.StaticFile("/favicon.ico", filepath.Join(dir, "favicon.ico"))
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
			return
		}
		c.File(filepath.Join(dir, "index.html"))
	})
	log.Info().Str("dir", dir).Msg("serving static files")
}

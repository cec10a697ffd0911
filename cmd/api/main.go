package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"macro-stress/internal/api"
	"macro-stress/internal/api/handlers"
	"macro-stress/internal/api/middleware"
	"macro-stress/internal/config"
	"macro-stress/internal/logging"
	"macro-stress/internal/pipeline"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("MACRO_STRESS_CONFIG"), "Path to YAML config (defaults apply when empty)")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}

	if wd, err := os.Getwd(); err == nil {
		log.Info().Str("wd", wd).Str("macro_csv", cfg.Paths.MacroCSV).Msg("starting")
	}

	if cfg.Env.APIEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	eng := pipeline.New(cfg, logging.Component(log, "pipeline"))
	ds, err := api.LoadDataset(cfg, eng, logging.Component(log, "dataset"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load dataset")
	}

	router := api.NewRouter(api.Deps{
		Config:  cfg,
		Dataset: ds,
		Engine:  eng,
		Runs:    handlers.NewRunRegistry(0),
		Metrics: middleware.NewMetrics(),
		Log:     logging.Component(log, "http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Env.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("server stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		if err := cfg.LoadEnv(); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

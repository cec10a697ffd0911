package main

import (
	"flag"
	"fmt"
	"os"

	"macro-stress/internal/config"
	"macro-stress/internal/logging"
	"macro-stress/internal/pipeline"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// env is the configuration shared by every command.
type env struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log zerolog.Logger
}

func (e *env) setFlags(f *flag.FlagSet) {
	f.StringVar(&e.configPath, "config", "", "Path to YAML config (defaults apply when empty)")
	f.StringVar(&e.logLevel, "log-level", "", "Override the configured log level")
}

// load loads and validates the configuration and builds the logger.
func (e *env) load() error {
	var err error
	if e.configPath == "" {
		e.cfg = config.Default()
		if err := e.cfg.LoadEnv(); err != nil {
			return err
		}
	} else if e.cfg, err = config.LoadUnchecked(e.configPath); err != nil {
		return err
	}
	if e.logLevel != "" {
		e.cfg.Logging.Level = e.logLevel
	}
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	e.log, err = logging.New(logging.Config{Level: e.cfg.Logging.Level, Format: e.cfg.Logging.Format})
	return err
}

func (e *env) engine() *pipeline.Engine {
	return pipeline.New(e.cfg, logging.Component(e.log, "pipeline"))
}

func usageError(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitUsageError
}

func failure(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

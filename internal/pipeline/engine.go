// Package pipeline wires the generator, valuation and storage into one run.
package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"macro-stress/internal/analysis"
	"macro-stress/internal/config"
	"macro-stress/internal/data"
	"macro-stress/internal/model"
	"macro-stress/internal/scenario"
	"macro-stress/internal/store"
	"macro-stress/internal/valuation"
	"macro-stress/internal/varmodel"

	"github.com/rs/zerolog"
)

type Engine struct {
	cfg *config.Config
	log zerolog.Logger
	gen *scenario.Generator
	val *valuation.Engine
}

func New(cfg *config.Config, log zerolog.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		log: log,
		gen: scenario.NewGenerator(log.With().Str("component", "generator").Logger()),
		val: valuation.New(cfg.Valuation, log.With().Str("component", "valuation").Logger()),
	}
}

// Result is the output of one run.
type Result struct {
	Set       *scenario.Set
	Stats     []analysis.PathStats
	Valuation *valuation.Result
	Duration  time.Duration
}

// Options converts a scenario config into generator options. An empty modelPath
// disables model persistence and reuse.
func Options(sc config.ScenarioConfig, modelPath string) scenario.Options {
	return scenario.Options{
		Columns:   sc.Columns,
		MaxLag:    sc.MaxLag,
		Criterion: varmodel.Criterion(sc.Criterion),
		Horizon:   sc.Horizon,
		Shock: scenario.Shock{
			Column:    sc.ShockColumn,
			Magnitude: sc.ShockMagnitude,
		},
		ModelPath:  modelPath,
		ReuseModel: sc.ReuseModel && modelPath != "",
	}
}

// LoadMacro reads the configured macro CSV.
func (e *Engine) LoadMacro() (*model.Table, error) {
	tbl, err := data.LoadMacroCSV(e.cfg.Paths.MacroCSV)
	if err != nil {
		return nil, fmt.Errorf("load macro table: %w", err)
	}
	return tbl, nil
}

// Scenarios generates paths with sc. With persist set, the fitted model is written to
// the configured model path.
func (e *Engine) Scenarios(macro *model.Table, sc config.ScenarioConfig, persist bool) (*Result, error) {
	start := time.Now()
	modelPath := ""
	if persist {
		modelPath = e.cfg.Paths.ModelPath
	}
	set, err := e.gen.Generate(macro, Options(sc, modelPath))
	if err != nil {
		return nil, err
	}
	stats, err := analysis.ComputeStats(set)
	if err != nil {
		return nil, err
	}
	return &Result{Set: set, Stats: stats, Duration: time.Since(start)}, nil
}

// Value runs the valuation over set for the configured companies.
func (e *Engine) Value(macro *model.Table, set *scenario.Set) (*valuation.Result, error) {
	return e.val.Run(macro, set, e.cfg.Sources.Companies)
}

// Run generates scenarios and, when value is set, values every company.
func (e *Engine) Run(macro *model.Table, sc config.ScenarioConfig, persist, value bool) (*Result, error) {
	res, err := e.Scenarios(macro, sc, persist)
	if err != nil {
		return nil, err
	}
	if value {
		start := time.Now()
		v, err := e.Value(macro, res.Set)
		if err != nil {
			return nil, fmt.Errorf("valuation: %w", err)
		}
		res.Valuation = v
		res.Duration += time.Since(start)
	}
	e.log.Info().
		Int("horizon", res.Set.Horizon()).
		Int("k_ar", res.Set.KAr).
		Bool("valued", res.Valuation != nil).
		Dur("duration", res.Duration).
		Msg("run complete")
	return res, nil
}

// Persist writes the scenario table and, when present, the valuation records.
func (e *Engine) Persist(res *Result) error {
	if err := store.WriteScenarios(e.cfg.Paths.ScenariosPath, res.Set); err != nil {
		return fmt.Errorf("write scenarios: %w", err)
	}
	e.log.Info().Str("path", e.cfg.Paths.ScenariosPath).Int("rows", len(res.Set.Rows())).Msg("wrote scenarios")
	if res.Valuation == nil {
		return nil
	}
	if err := store.WriteValuations(e.cfg.Paths.ValuationsPath, res.Valuation.Records); err != nil {
		return fmt.Errorf("write valuations: %w", err)
	}
	e.log.Info().Str("path", e.cfg.Paths.ValuationsPath).Int("rows", len(res.Valuation.Records)).Msg("wrote valuations")
	return nil
}

// LoadScenarios reads the persisted scenario table. When it does not exist the base run
// is generated in memory from macro without writing anything.
func (e *Engine) LoadScenarios(macro *model.Table) (*scenario.Set, error) {
	set, err := store.ReadScenarios(e.cfg.Paths.ScenariosPath)
	if err == nil {
		return set, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	e.log.Warn().Str("path", e.cfg.Paths.ScenariosPath).Msg("scenario table not found, generating in memory")
	res, err := e.Scenarios(macro, e.cfg.Scenario, false)
	if err != nil {
		return nil, err
	}
	return res.Set, nil
}

// LoadValuations reads persisted valuation records, falling back to an in-memory run.
// A failed fallback yields no records.
func (e *Engine) LoadValuations(macro *model.Table, set *scenario.Set) []valuation.Record {
	records, err := store.ReadValuations(e.cfg.Paths.ValuationsPath)
	if err == nil {
		return records
	}
	if !errors.Is(err, fs.ErrNotExist) {
		e.log.Warn().Err(err).Str("path", e.cfg.Paths.ValuationsPath).Msg("could not read valuations")
		return nil
	}
	v, err := e.Value(macro, set)
	if err != nil {
		e.log.Warn().Err(err).Msg("valuation unavailable")
		return nil
	}
	return v.Records
}

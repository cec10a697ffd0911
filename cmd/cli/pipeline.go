package main

import (
	"context"
	"flag"
	"fmt"

	"macro-stress/internal/analysis"
	"macro-stress/internal/config"
	"macro-stress/internal/model"
	"macro-stress/internal/store"
	"macro-stress/internal/valuation"

	"github.com/google/subcommands"
)

type scenariosCmd struct {
	env
	shock       float64
	shockColumn string
	horizon     int
	maxLag      int
	criterion   string
	reuse       bool
	value       bool
	csv         string
}

func (*scenariosCmd) Name() string     { return "scenarios" }
func (*scenariosCmd) Synopsis() string { return "fit the VAR and write base, up and down paths" }
func (*scenariosCmd) Usage() string {
	return `scenarios [-config <file>] [-shock <x>] [-horizon <n>] [-criterion aic|bic|hqic|fpe] [-value] [-csv <file>]

  Fits the VAR on the macro table, forecasts the base path and the shocked
  up and down paths, and writes the scenario table. With -value the company
  valuations are computed and written as well.
`
}

func (c *scenariosCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.Float64Var(&c.shock, "shock", -1, "Shock magnitude in column units (negative keeps scenario.shock_magnitude)")
	f.StringVar(&c.shockColumn, "shock-column", "", "Column to shock (defaults to scenario.shock_column)")
	f.IntVar(&c.horizon, "horizon", 0, "Forecast horizon in business days (0 keeps scenario.horizon)")
	f.IntVar(&c.maxLag, "max-lag", 0, "Maximum lag order (0 keeps scenario.max_lag)")
	f.StringVar(&c.criterion, "criterion", "", "Select the lag order by information criterion")
	f.BoolVar(&c.reuse, "reuse", false, "Reuse the saved model when its columns match")
	f.BoolVar(&c.value, "value", false, "Also value the configured companies")
	f.StringVar(&c.csv, "csv", "", "Optional CSV copy of the scenario table")
}

func (c *scenariosCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.load(); err != nil {
		return usageError(err)
	}
	sc := config.MergeScenario(c.cfg.Scenario, config.ScenarioConfig{
		MaxLag:      c.maxLag,
		Criterion:   c.criterion,
		Horizon:     c.horizon,
		ShockColumn: c.shockColumn,
	})
	if c.shock >= 0 {
		sc.ShockMagnitude = c.shock
	}
	sc.ReuseModel = sc.ReuseModel || c.reuse

	eng := c.engine()
	macro, err := eng.LoadMacro()
	if err != nil {
		return failure(err)
	}
	res, err := eng.Run(macro, sc, true, c.value)
	if err != nil {
		return failure(err)
	}
	if err := eng.Persist(res); err != nil {
		return failure(err)
	}
	if c.csv != "" {
		if err := store.WriteScenariosCSV(c.csv, res.Set); err != nil {
			return failure(err)
		}
	}

	fmt.Printf("lag order %d, %d business days from %s\n",
		res.Set.KAr, res.Set.Horizon(), res.Set.Paths[0].Dates[0].Format(model.DateFormat))
	fmt.Printf("%-6s %-14s %12s %12s %12s\n", "path", "column", "terminal", "min", "max")
	for _, s := range res.Stats {
		fmt.Printf("%-6s %-14s %12.4f %12.4f %12.4f\n", s.Scenario, s.Column, s.Terminal, s.Min, s.Max)
	}
	if res.Valuation != nil {
		printRanking(res.Valuation.Records, res.Valuation.Skipped)
	}
	fmt.Printf("wrote %s\n", c.cfg.Paths.ScenariosPath)
	return subcommands.ExitSuccess
}

type valueCmd struct {
	env
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "discount company cash flows under each scenario" }
func (*valueCmd) Usage() string {
	return `value [-config <file>]

  Values every configured company against the saved scenario table
  (generated in memory when absent) and writes the valuation table.
`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
}

func (c *valueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.load(); err != nil {
		return usageError(err)
	}
	eng := c.engine()
	macro, err := eng.LoadMacro()
	if err != nil {
		return failure(err)
	}
	set, err := eng.LoadScenarios(macro)
	if err != nil {
		return failure(err)
	}
	v, err := eng.Value(macro, set)
	if err != nil {
		return failure(err)
	}
	if err := store.WriteValuations(c.cfg.Paths.ValuationsPath, v.Records); err != nil {
		return failure(err)
	}
	printRanking(v.Records, v.Skipped)
	fmt.Printf("wrote %d records to %s\n", len(v.Records), c.cfg.Paths.ValuationsPath)
	return subcommands.ExitSuccess
}

func printRanking(records []valuation.Record, skipped []string) {
	fmt.Printf("%-4s %-8s %16s %16s\n", "rank", "company", "base value", "downside")
	for _, r := range analysis.RankByValue(records, model.ScenarioBase) {
		fmt.Printf("%-4d %-8s %16s %16s\n", r.Rank, r.Company, r.Value.StringFixed(0), r.Downside.StringFixed(0))
	}
	for _, s := range skipped {
		fmt.Printf("skipped %s: no usable beta\n", s)
	}
}

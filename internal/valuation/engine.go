// Package valuation discounts projected company cash flows at scenario-dependent
// costs of capital.
package valuation

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"macro-stress/internal/config"
	"macro-stress/internal/model"
	"macro-stress/internal/scenario"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TerminalYear labels the discounted terminal value record.
const TerminalYear = "TV"

// Record is one discounted cash flow for a company under a scenario.
type Record struct {
	Company  string
	Scenario model.Scenario
	// Year is "1".."N" for explicit years or TerminalYear.
	Year        string
	ProjectedCF decimal.Decimal
	WACC        float64
	PV          decimal.Decimal
}

// Result holds the output of one valuation run.
type Result struct {
	Betas   map[string]float64
	Records []Record
	// Skipped lists companies without a usable beta.
	Skipped []string
}

type Engine struct {
	cfg config.ValuationConfig
	log zerolog.Logger
}

func New(cfg config.ValuationConfig, log zerolog.Logger) *Engine {
	return &Engine{cfg: cfg, log: log}
}

// Run values every company under every scenario in set. Scenarios are visited in
// label order.
func (e *Engine) Run(macro *model.Table, set *scenario.Set, companies []string) (*Result, error) {
	if set == nil || len(set.Paths) == 0 {
		return nil, fmt.Errorf("no scenarios to value")
	}
	if e.cfg.ForecastYears <= 0 {
		return nil, fmt.Errorf("forecast years must be > 0, got %d", e.cfg.ForecastYears)
	}
	if set.Horizon() < e.cfg.ForecastYears {
		return nil, fmt.Errorf("scenario horizon %d shorter than %d forecast years: %w",
			set.Horizon(), e.cfg.ForecastYears, model.ErrInsufficientHistory)
	}

	res := &Result{Betas: Betas(macro, companies, e.cfg.SectorFor)}
	var valued []string
	for _, c := range companies {
		if math.IsNaN(res.Betas[c]) {
			e.log.Warn().Str("company", c).Str("sector", e.cfg.SectorFor(c)).Msg("no beta, skipping company")
			res.Skipped = append(res.Skipped, c)
			continue
		}
		valued = append(valued, c)
	}

	labels := set.Labels()
	slices.Sort(labels)
	for _, label := range labels {
		wacc, err := e.waccInputs(set, label)
		if err != nil {
			return nil, err
		}
		for _, c := range valued {
			res.Records = append(res.Records, e.discount(c, label, res.Betas[c], wacc)...)
		}
	}

	e.log.Info().
		Int("companies", len(valued)).
		Int("scenarios", len(labels)).
		Int("records", len(res.Records)).
		Msg("valuation complete")
	return res, nil
}

// waccInputs returns rf+spread per path step for one scenario, as decimal rates.
func (e *Engine) waccInputs(set *scenario.Set, label model.Scenario) ([]float64, error) {
	xs, err := set.XS(label)
	if err != nil {
		return nil, err
	}
	rf, err := xs.Column(e.cfg.RateColumn)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", label, err)
	}
	spread, err := xs.Column(e.cfg.SpreadColumn)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", label, err)
	}
	out := make([]float64, len(rf))
	for i := range rf {
		out[i] = rf[i]/e.cfg.RateScale + spread[i]/e.cfg.RateScale
	}
	return out, nil
}

// discount projects cash flows and discounts year i at the rate of path step i-1.
// The terminal value uses the final step of the path.
func (e *Engine) discount(company string, label model.Scenario, beta float64, base []float64) []Record {
	n := e.cfg.ForecastYears
	premium := beta * e.cfg.ERP
	growth := decimal.NewFromFloat(1 + e.cfg.GrowthRate)
	cf := decimal.NewFromFloat(e.cfg.LastCashFlow)

	out := make([]Record, 0, n+1)
	for year := 1; year <= n; year++ {
		cf = cf.Mul(growth)
		wacc := base[year-1] + premium
		factor := decimal.NewFromFloat(1 + wacc).Pow(decimal.NewFromInt(int64(year)))
		out = append(out, Record{
			Company:     company,
			Scenario:    label,
			Year:        strconv.Itoa(year),
			ProjectedCF: cf,
			WACC:        wacc,
			PV:          cf.Div(factor),
		})
	}

	last := base[len(base)-1] + premium
	if last <= e.cfg.TerminalRate {
		e.log.Warn().
			Str("company", company).
			Str("scenario", string(label)).
			Float64("wacc", last).
			Float64("terminal_rate", e.cfg.TerminalRate).
			Msg("discount rate at or below terminal growth, no terminal value")
		return out
	}
	tv := cf.Mul(decimal.NewFromFloat(1 + e.cfg.TerminalRate)).
		Div(decimal.NewFromFloat(last - e.cfg.TerminalRate))
	factor := decimal.NewFromFloat(1 + last).Pow(decimal.NewFromInt(int64(n)))
	out = append(out, Record{
		Company:     company,
		Scenario:    label,
		Year:        TerminalYear,
		ProjectedCF: tv,
		WACC:        last,
		PV:          tv.Div(factor),
	})
	return out
}

// TotalPV sums PV per (company, scenario).
func TotalPV(records []Record) map[string]map[model.Scenario]decimal.Decimal {
	out := map[string]map[model.Scenario]decimal.Decimal{}
	for _, r := range records {
		m, ok := out[r.Company]
		if !ok {
			m = map[model.Scenario]decimal.Decimal{}
			out[r.Company] = m
		}
		m[r.Scenario] = m[r.Scenario].Add(r.PV)
	}
	return out
}

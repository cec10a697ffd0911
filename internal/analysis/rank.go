package analysis

import (
	"sort"

	"macro-stress/internal/model"
	"macro-stress/internal/valuation"

	"github.com/shopspring/decimal"
)

type RankedCompany struct {
	Rank    int
	Company string
	// TotalPV is the summed present value per scenario, terminal value included.
	TotalPV map[model.Scenario]decimal.Decimal
	// Value is TotalPV under the ranking scenario.
	Value decimal.Decimal
	// Downside is the worst scenario total minus the base total; zero when base is missing.
	Downside decimal.Decimal
}

// RankByValue totals PV per company and sorts descending by the total under label.
// Ties break on company name.
func RankByValue(records []valuation.Record, label model.Scenario) []RankedCompany {
	totals := valuation.TotalPV(records)
	out := make([]RankedCompany, 0, len(totals))
	for company, byScenario := range totals {
		r := RankedCompany{
			Company: company,
			TotalPV: byScenario,
			Value:   byScenario[label],
		}
		if base, ok := byScenario[model.ScenarioBase]; ok {
			worst := base
			for _, v := range byScenario {
				if v.LessThan(worst) {
					worst = v
				}
			}
			r.Downside = worst.Sub(base)
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Value.Cmp(out[j].Value); c != 0 {
			return c > 0
		}
		return out[i].Company < out[j].Company
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

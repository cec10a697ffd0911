package analysis

import (
	"math"
	"testing"
	"time"

	"macro-stress/internal/model"
	"macro-stress/internal/scenario"
	"macro-stress/internal/valuation"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func threePathSet() *scenario.Set {
	dates := model.BusinessDays(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 5)
	col := func(a, b []float64) *mat.Dense {
		m := mat.NewDense(5, 2, nil)
		m.SetCol(0, a)
		m.SetCol(1, b)
		return m
	}
	flat := []float64{7, 7, 7, 7, 7}
	return &scenario.Set{
		Columns: []string{"FedFunds", "HY_OAS"},
		Paths: []scenario.Path{
			{Label: model.ScenarioBase, Dates: dates, Values: col([]float64{1, 2, 3, 4, 5}, flat)},
			{Label: model.ScenarioUp, Dates: dates, Values: col([]float64{2, 3, 4, 5, 6}, flat)},
			{Label: model.ScenarioDown, Dates: dates, Values: col([]float64{0, 1, 2, 3, 10}, flat)},
		},
	}
}

func TestComputeStats(t *testing.T) {
	stats, err := ComputeStats(threePathSet())
	require.NoError(t, err)
	require.Len(t, stats, 6)
	assert.Equal(t, model.ScenarioBase, stats[0].Scenario)
	assert.Equal(t, "FedFunds", stats[0].Column)

	base, ok := Lookup(stats, model.ScenarioBase, "FedFunds")
	require.True(t, ok)
	assert.Equal(t, 5, base.Count)
	assert.Equal(t, 1.0, base.Min)
	assert.Equal(t, 5.0, base.Max)
	assert.InDelta(t, 3.0, base.Mean, 1e-12)
	assert.InDelta(t, 1.2, base.P05, 1e-12)
	assert.InDelta(t, 4.8, base.P95, 1e-12)
	assert.InDelta(t, 3.6, base.SpreadP95P05, 1e-12)
	assert.Equal(t, 5.0, base.Terminal)
	assert.Equal(t, 0.0, base.MaxDeviation)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), base.Start)

	up, _ := Lookup(stats, model.ScenarioUp, "FedFunds")
	assert.InDelta(t, 1.0, up.MaxDeviation, 1e-12)
	down, _ := Lookup(stats, model.ScenarioDown, "FedFunds")
	assert.InDelta(t, 5.0, down.MaxDeviation, 1e-12)
	hy, _ := Lookup(stats, model.ScenarioDown, "HY_OAS")
	assert.Equal(t, 0.0, hy.MaxDeviation)
	assert.Equal(t, 7.0, hy.P05)

	_, ok = Lookup(stats, model.ScenarioUp, "Technology")
	assert.False(t, ok)
}

func TestPercentileSortedFlatIsExact(t *testing.T) {
	for _, v := range []float64{7, 0.1, 0.3, 1e-3, 123.456, -2.7} {
		flat := []float64{v, v, v, v, v, v, v}
		for _, q := range []float64{0.05, 0.33, 0.5, 0.95} {
			assert.Equal(t, v, percentileSorted(flat, q), "v=%v q=%v", v, q)
		}
	}
	assert.InDelta(t, 1.5, percentileSorted([]float64{1, 2}, 0.5), 1e-12)
	assert.Equal(t, 0.0, percentileSorted(nil, 0.5))
}

func TestComputeStatsWithoutBase(t *testing.T) {
	set := threePathSet()
	set.Paths = set.Paths[1:]
	stats, err := ComputeStats(set)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(stats[0].MaxDeviation))

	_, err = ComputeStats(&scenario.Set{})
	assert.Error(t, err)
}

func record(company string, label model.Scenario, pv int64) valuation.Record {
	return valuation.Record{Company: company, Scenario: label, Year: "1", PV: decimal.NewFromInt(pv)}
}

func TestRankByValue(t *testing.T) {
	records := []valuation.Record{
		record("AAPL", model.ScenarioBase, 100), record("AAPL", model.ScenarioBase, 20),
		record("AAPL", model.ScenarioUp, 90), record("AAPL", model.ScenarioDown, 130),
		record("MSFT", model.ScenarioBase, 150),
		record("MSFT", model.ScenarioUp, 110), record("MSFT", model.ScenarioDown, 160),
		record("GOOGL", model.ScenarioBase, 120),
	}

	ranked := RankByValue(records, model.ScenarioBase)
	require.Len(t, ranked, 3)
	assert.Equal(t, "MSFT", ranked[0].Company)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.True(t, ranked[0].Downside.Equal(decimal.NewFromInt(-40)))

	// AAPL and GOOGL tie at 120; name order decides.
	assert.Equal(t, "AAPL", ranked[1].Company)
	assert.Equal(t, "GOOGL", ranked[2].Company)
	assert.True(t, ranked[1].Value.Equal(decimal.NewFromInt(120)))
	assert.True(t, ranked[1].Downside.Equal(decimal.NewFromInt(-30)))
	assert.True(t, ranked[2].Downside.IsZero())

	byUp := RankByValue(records, model.ScenarioUp)
	assert.Equal(t, "MSFT", byUp[0].Company)
	assert.Equal(t, "GOOGL", byUp[2].Company)
}

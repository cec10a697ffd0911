package dashboard

import (
	"math"
	"testing"
	"time"

	"macro-stress/internal/model"
	"macro-stress/internal/scenario"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testSet() *scenario.Set {
	dates := model.BusinessDays(time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC), 3)
	cols := []string{"FedFunds", "HY_OAS", "Technology"}
	set := &scenario.Set{Columns: cols}
	for _, label := range model.Scenarios() {
		v := mat.NewDense(3, 3, nil)
		for i := range 3 {
			v.SetRow(i, []float64{5 + 2.5*label.Sign(), 3 + label.Sign(), 200 + float64(i)})
		}
		set.Paths = append(set.Paths, scenario.Path{Label: label, Dates: dates, Values: v})
	}
	return set
}

func TestScaledSeries(t *testing.T) {
	set := testSet()

	ts, err := ScaledSeries(set, model.ScenarioUp, "FedFunds", 250)
	require.NoError(t, err)
	require.Len(t, ts.Shocked.Points, 3)
	assert.InDelta(t, 7.5, ts.Shocked.Points[0].Value, 1e-12)
	assert.InDelta(t, 5.0, ts.Base.Points[0].Value, 1e-12)
	assert.Equal(t, "FedFunds under 'up' shock (250 bp)", ts.Title)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), ts.Shocked.Points[0].Date)

	half, err := ScaledSeries(set, model.ScenarioDown, "HY_OAS", 125)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, half.Shocked.Points[2].Value, 1e-12)

	zero, err := ScaledSeries(set, model.ScenarioUp, "FedFunds", 0)
	require.NoError(t, err)
	assert.Equal(t, zero.Base.Points, zero.Shocked.Points)

	base, err := ScaledSeries(set, model.ScenarioBase, "Technology", 300)
	require.NoError(t, err)
	assert.Equal(t, base.Base.Points, base.Shocked.Points)
}

func TestScaledSeriesUsesRecordedShock(t *testing.T) {
	set := testSet()
	set.ShockMagnitude = 1.0
	assert.Equal(t, 100.0, ReferenceBP(set))

	full, err := ScaledSeries(set, model.ScenarioUp, "FedFunds", 100)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, full.Shocked.Points[0].Value, 1e-12)

	half, err := ScaledSeries(set, model.ScenarioUp, "FedFunds", 50)
	require.NoError(t, err)
	assert.InDelta(t, 6.25, half.Shocked.Points[0].Value, 1e-12)

	set.ShockMagnitude = 0
	assert.Equal(t, float64(DefaultReferenceShockBP), ReferenceBP(set))
}

func TestScaledSeriesRejectsBadInput(t *testing.T) {
	set := testSet()
	_, err := ScaledSeries(set, model.ScenarioUp, "AAPL", 100)
	assert.ErrorIs(t, err, ErrUnknownMetric)
	_, err = ScaledSeries(set, model.ScenarioUp, "FedFunds", 310)
	assert.ErrorIs(t, err, ErrShockOutOfRange)
	_, err = ScaledSeries(set, model.ScenarioUp, "FedFunds", -10)
	assert.ErrorIs(t, err, ErrShockOutOfRange)

	set.Paths = set.Paths[:1]
	_, err = ScaledSeries(set, model.ScenarioDown, "FedFunds", 100)
	assert.ErrorIs(t, err, ErrScenarioNotInSet)
}

func yieldTable(t *testing.T) *model.Table {
	t.Helper()
	tbl := model.NewTable(TwoYear, TenYear, "FedFunds")
	nan := math.NaN()
	rows := []struct {
		day  int
		vals []float64
	}{
		{1, []float64{4.0, 4.2, 5.5}},
		{2, []float64{nan, 4.3, 5.5}},
		{3, []float64{4.5, 4.0, 5.5}},
		{4, []float64{4.6, nan, 5.5}},
	}
	for _, r := range rows {
		require.NoError(t, tbl.Append(time.Date(2024, 7, r.day, 0, 0, 0, 0, time.UTC), r.vals))
	}
	return tbl
}

func TestYieldHistory(t *testing.T) {
	hist, err := YieldHistory(yieldTable(t))
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "2Y", hist[0].Name)
	assert.Len(t, hist[0].Points, 3)
	assert.Equal(t, "10Y", hist[1].Name)
	assert.Len(t, hist[1].Points, 3)

	_, err = YieldHistory(model.NewTable("FedFunds"))
	assert.Error(t, err)
}

func TestYieldSnapshot(t *testing.T) {
	tbl := yieldTable(t)

	snap, err := YieldSnapshot(tbl, model.ScenarioUp, 250)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC), snap.AsOf)
	assert.Equal(t, []float64{4.5, 4.0}, snap.Base)
	assert.InDelta(t, 5.4, snap.Shocked[0], 1e-12)
	assert.InDelta(t, 4.8, snap.Shocked[1], 1e-12)
	assert.Equal(t, "2Y: 5.40%, 10Y: 4.80% (as of 2024-07-03)", snap.Text)

	down, err := YieldSnapshot(tbl, model.ScenarioDown, 125)
	require.NoError(t, err)
	assert.InDelta(t, 4.05, down.Shocked[0], 1e-12)

	base, err := YieldSnapshot(tbl, model.ScenarioBase, 300)
	require.NoError(t, err)
	assert.Equal(t, base.Base, base.Shocked)

	empty := model.NewTable(TwoYear, TenYear)
	_, err = YieldSnapshot(empty, model.ScenarioUp, 100)
	assert.ErrorIs(t, err, ErrNoYieldObservations)
}

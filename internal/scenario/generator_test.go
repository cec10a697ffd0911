package scenario

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"macro-stress/internal/model"
	"macro-stress/internal/varmodel"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var varCols = []string{"FedFunds", "HY_OAS", "Technology"}

// syntheticTable returns n business days of a persistent VAR(1) driven by seeded noise,
// starting Monday 2024-01-01.
func syntheticTable(t *testing.T, n int, extra ...string) *model.Table {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	cols := append(append([]string{}, varCols...), extra...)
	tbl := model.NewTable(cols...)

	ff, hy, tech := 1.0, 0.5, -0.5
	d := time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC) // Friday
	for i := 0; i < n; i++ {
		ff, hy, tech =
			0.95*ff+0.02*hy+0.1*rng.NormFloat64(),
			0.05*ff+0.85*hy+0.1*rng.NormFloat64(),
			-0.1*hy+0.9*tech+0.2*rng.NormFloat64()
		d = model.NextBusinessDay(d)
		row := []float64{ff, hy, tech}
		for range extra {
			row = append(row, rng.Float64())
		}
		require.NoError(t, tbl.Append(d, row))
	}
	return tbl
}

func defaultOptions() Options {
	return Options{
		Columns: varCols,
		MaxLag:  5,
		Horizon: 252,
		Shock:   Shock{Column: "FedFunds", Magnitude: 2.5},
	}
}

func generate(t *testing.T, tbl *model.Table, opts Options) *Set {
	t.Helper()
	set, err := NewGenerator(zerolog.Nop()).Generate(tbl, opts)
	require.NoError(t, err)
	return set
}

func path(t *testing.T, set *Set, label model.Scenario) Path {
	t.Helper()
	p, ok := set.Path(label)
	require.True(t, ok, label)
	return p
}

func TestGenerateSyntheticExample(t *testing.T) {
	tbl := syntheticTable(t, 300)
	set := generate(t, tbl, defaultOptions())

	assert.Equal(t, []model.Scenario{model.ScenarioBase, model.ScenarioUp, model.ScenarioDown}, set.Labels())
	assert.Equal(t, varCols, set.Columns)
	assert.Equal(t, 5, set.KAr)
	assert.Equal(t, 252, set.Horizon())
	assert.Len(t, set.Rows(), 756)

	base := path(t, set, model.ScenarioBase)
	for _, label := range []model.Scenario{model.ScenarioUp, model.ScenarioDown} {
		p := path(t, set, label)
		r, c := p.Values.Dims()
		assert.Equal(t, 252, r)
		assert.Equal(t, 3, c)
		assert.Equal(t, base.Dates, p.Dates)
	}

	// The shock's first-step effect on FedFunds is its own lag-1 coefficient times the shock.
	data := mat.NewDense(tbl.Len(), 3, flatten(tbl.Values()))
	m, err := varmodel.Fit(data, varCols, varmodel.FitOptions{MaxLag: 5})
	require.NoError(t, err)
	own := m.Coefs[0].At(0, 0)
	require.Greater(t, own, 0.0)

	up, err := set.XS(model.ScenarioUp)
	require.NoError(t, err)
	bs, err := set.XS(model.ScenarioBase)
	require.NoError(t, err)
	upFF, _ := up.Value(0, "FedFunds")
	baseFF, _ := bs.Value(0, "FedFunds")
	assert.Greater(t, upFF, baseFF)
	assert.InDelta(t, 2.5*own, upFF-baseFF, 1e-9)
}

func TestGenerateBaseIsReproducible(t *testing.T) {
	tbl := syntheticTable(t, 300)
	a := generate(t, tbl, defaultOptions())
	b := generate(t, tbl, defaultOptions())

	pa, pb := path(t, a, model.ScenarioBase), path(t, b, model.ScenarioBase)
	assert.True(t, mat.Equal(pa.Values, pb.Values))
	assert.Equal(t, pa.Dates, pb.Dates)
}

func TestGenerateZeroShockGivesIdenticalPaths(t *testing.T) {
	opts := defaultOptions()
	opts.Shock.Magnitude = 0
	set := generate(t, syntheticTable(t, 120), opts)

	base := path(t, set, model.ScenarioBase)
	assert.True(t, mat.Equal(base.Values, path(t, set, model.ScenarioUp).Values))
	assert.True(t, mat.Equal(base.Values, path(t, set, model.ScenarioDown).Values))
}

func TestGenerateNegatedShockSwapsUpAndDown(t *testing.T) {
	tbl := syntheticTable(t, 120)
	for _, mag := range []float64{0.25, 2.5, 7} {
		pos := defaultOptions()
		pos.Shock.Magnitude = mag
		neg := defaultOptions()
		neg.Shock.Magnitude = -mag

		a := generate(t, tbl, pos)
		b := generate(t, tbl, neg)
		assert.True(t, mat.Equal(path(t, a, model.ScenarioUp).Values, path(t, b, model.ScenarioDown).Values), mag)
		assert.True(t, mat.Equal(path(t, a, model.ScenarioDown).Values, path(t, b, model.ScenarioUp).Values), mag)
	}
}

func TestGenerateDatesFollowInputOnBusinessDays(t *testing.T) {
	tbl := syntheticTable(t, 300)
	last := tbl.LastDate()
	opts := defaultOptions()
	opts.Horizon = 30
	set := generate(t, tbl, opts)

	for _, p := range set.Paths {
		require.Len(t, p.Dates, 30)
		assert.Equal(t, model.NextBusinessDay(last), p.Dates[0])
		for i, d := range p.Dates {
			assert.True(t, d.After(last))
			assert.NotEqual(t, time.Saturday, d.Weekday())
			assert.NotEqual(t, time.Sunday, d.Weekday())
			if i > 0 {
				assert.True(t, d.After(p.Dates[i-1]))
			}
		}
	}
}

func TestGenerateDatesFollowTrailingIncompleteRow(t *testing.T) {
	tbl := syntheticTable(t, 200)
	last := model.NextBusinessDay(tbl.LastDate())
	row := append([]float64{}, tbl.Row(tbl.Len()-1)...)
	row[0] = math.NaN()
	require.NoError(t, tbl.Append(last, row))

	opts := defaultOptions()
	opts.Horizon = 5
	set := generate(t, tbl, opts)

	base, err := set.XS(model.ScenarioBase)
	require.NoError(t, err)
	assert.Equal(t, model.NextBusinessDay(last), base.Date(0))
	assert.True(t, base.Date(0).After(last))
}

func TestGenerateDropsIncompleteRowsKeepingColumnOrder(t *testing.T) {
	tbl := syntheticTable(t, 150, "Consumer")
	noisy := model.NewTable(tbl.Columns...)
	for i := 0; i < tbl.Len(); i++ {
		row := append([]float64{}, tbl.Row(i)...)
		if i%10 == 3 {
			row[1] = math.NaN()
		}
		require.NoError(t, noisy.Append(tbl.Date(i), row))
	}

	opts := defaultOptions()
	opts.Columns = []string{"Technology", "FedFunds", "HY_OAS"}
	opts.Horizon = 10
	set := generate(t, noisy, opts)

	assert.Equal(t, []string{"Technology", "FedFunds", "HY_OAS"}, set.Columns)
	base, err := set.XS(model.ScenarioBase)
	require.NoError(t, err)
	assert.Equal(t, 10, base.Len())
	for i := 0; i < base.Len(); i++ {
		for _, v := range base.Row(i) {
			assert.False(t, math.IsNaN(v))
		}
	}
}

func TestGenerateShockColumnMissing(t *testing.T) {
	opts := defaultOptions()
	opts.Shock.Column = "Consumer"
	_, err := NewGenerator(zerolog.Nop()).Generate(syntheticTable(t, 50), opts)
	assert.ErrorIs(t, err, model.ErrShockColumnMissing)
}

func TestGenerateInsufficientHistory(t *testing.T) {
	_, err := NewGenerator(zerolog.Nop()).Generate(syntheticTable(t, 5), defaultOptions())
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)
}

func TestGenerateMissingColumn(t *testing.T) {
	opts := defaultOptions()
	opts.Columns = []string{"FedFunds", "Industrials"}
	_, err := NewGenerator(zerolog.Nop()).Generate(syntheticTable(t, 50), opts)
	assert.ErrorIs(t, err, model.ErrColumnNotFound)
}

func TestGeneratePersistsAndReusesModel(t *testing.T) {
	tbl := syntheticTable(t, 200)
	opts := defaultOptions()
	opts.Horizon = 20
	opts.ModelPath = filepath.Join(t.TempDir(), "var_model.yaml")

	first := generate(t, tbl, opts)
	_, err := os.Stat(opts.ModelPath)
	require.NoError(t, err)

	opts.ReuseModel = true
	second := generate(t, tbl, opts)
	for _, label := range model.Scenarios() {
		assert.True(t, mat.Equal(path(t, first, label).Values, path(t, second, label).Values), label)
	}
}

func TestGenerateFailureWritesNoModel(t *testing.T) {
	opts := defaultOptions()
	opts.ModelPath = filepath.Join(t.TempDir(), "var_model.yaml")
	_, err := NewGenerator(zerolog.Nop()).Generate(syntheticTable(t, 4), opts)
	require.Error(t, err)
	_, err = os.Stat(opts.ModelPath)
	assert.True(t, os.IsNotExist(err))
}

package scenario

import (
	"testing"
	"time"

	"macro-stress/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestApplyShockTouchesLastRowOnly(t *testing.T) {
	window := mat.NewDense(3, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
	})
	out, err := ApplyShock(window, []string{"FedFunds", "HY_OAS"}, Shock{Column: "FedFunds", Magnitude: 2.5, Sign: -1})
	require.NoError(t, err)

	want := mat.NewDense(3, 2, []float64{
		1, 10,
		2, 20,
		0.5, 30,
	})
	assert.True(t, mat.Equal(want, out))
	assert.Equal(t, 3.0, window.At(2, 0), "input must not be modified")
}

func TestApplyShockMissingColumn(t *testing.T) {
	_, err := ApplyShock(mat.NewDense(1, 1, []float64{1}), []string{"HY_OAS"}, Shock{Column: "FedFunds", Magnitude: 1, Sign: 1})
	assert.ErrorIs(t, err, model.ErrShockColumnMissing)
}

func TestShockForScenario(t *testing.T) {
	s := Shock{Column: "FedFunds", Magnitude: 2.5}
	assert.Equal(t, 2.5, s.For(model.ScenarioUp).Offset())
	assert.Equal(t, -2.5, s.For(model.ScenarioDown).Offset())
	assert.Equal(t, 0.0, s.For(model.ScenarioBase).Offset())
}

func TestSetRowsRoundTrip(t *testing.T) {
	d0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	dates := model.BusinessDays(d0, 2)
	set := &Set{
		Columns: []string{"a", "b"},
		Paths: []Path{
			{Label: model.ScenarioBase, Dates: dates, Values: mat.NewDense(2, 2, []float64{1, 2, 3, 4})},
			{Label: model.ScenarioUp, Dates: dates, Values: mat.NewDense(2, 2, []float64{5, 6, 7, 8})},
		},
	}
	rows := set.Rows()
	require.Len(t, rows, 4)
	assert.Equal(t, model.ScenarioUp, rows[2].Scenario)
	assert.Equal(t, []float64{5, 6}, rows[2].Values)

	back, err := FromRows(set.Columns, rows)
	require.NoError(t, err)
	assert.Equal(t, set.Labels(), back.Labels())
	xs, err := back.XS(model.ScenarioUp)
	require.NoError(t, err)
	v, ok := xs.Value(1, "b")
	require.True(t, ok)
	assert.Equal(t, 8.0, v)

	_, err = back.XS(model.ScenarioDown)
	assert.Error(t, err)

	rows[1].Date = rows[0].Date
	_, err = FromRows(set.Columns, rows)
	assert.Error(t, err)
}

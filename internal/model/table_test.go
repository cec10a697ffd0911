package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestTableAppendRejectsUnordered(t *testing.T) {
	tbl := NewTable("a", "b")
	require.NoError(t, tbl.Append(day(2024, 1, 2), []float64{1, 2}))
	assert.Error(t, tbl.Append(day(2024, 1, 2), []float64{1, 2}), "duplicate date")
	assert.Error(t, tbl.Append(day(2024, 1, 1), []float64{1, 2}), "earlier date")
	assert.Error(t, tbl.Append(day(2024, 1, 3), []float64{1}), "short row")
	assert.Equal(t, 1, tbl.Len())
}

func TestTableSelectAndDropIncomplete(t *testing.T) {
	nan := math.NaN()
	tbl := NewTable("x", "FedFunds", "HY_OAS", "Technology")
	require.NoError(t, tbl.Append(day(2024, 1, 1), []float64{9, 5, nan, 100}))
	require.NoError(t, tbl.Append(day(2024, 1, 2), []float64{nan, 5.1, 3.0, 101}))
	require.NoError(t, tbl.Append(day(2024, 1, 3), []float64{9, 5.2, 3.1, 102}))

	sel, err := tbl.Select("FedFunds", "HY_OAS", "Technology")
	require.NoError(t, err)
	clean := sel.DropIncomplete()

	assert.Equal(t, []string{"FedFunds", "HY_OAS", "Technology"}, clean.Columns)
	require.Equal(t, 2, clean.Len())
	assert.Equal(t, day(2024, 1, 2), clean.Date(0))
	assert.Equal(t, []float64{5.1, 3.0, 101}, clean.Row(0))

	_, err = tbl.Select("Missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestTableMergeOuterJoin(t *testing.T) {
	a := NewTable("a")
	require.NoError(t, a.Append(day(2024, 1, 1), []float64{1}))
	require.NoError(t, a.Append(day(2024, 1, 3), []float64{3}))

	b := NewTable("b")
	require.NoError(t, b.Append(day(2024, 1, 2), []float64{20}))
	require.NoError(t, b.Append(day(2024, 1, 3), []float64{30}))

	m, err := a.Merge(b)
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())
	assert.Equal(t, []string{"a", "b"}, m.Columns)
	assert.True(t, math.IsNaN(m.Row(0)[1]))
	assert.True(t, math.IsNaN(m.Row(1)[0]))
	assert.Equal(t, []float64{3, 30}, m.Row(2))

	_, err = a.Merge(a)
	assert.Error(t, err)
}

func TestTablePctChange(t *testing.T) {
	tbl := NewTable("p")
	require.NoError(t, tbl.Append(day(2024, 1, 1), []float64{100}))
	require.NoError(t, tbl.Append(day(2024, 1, 2), []float64{110}))
	require.NoError(t, tbl.Append(day(2024, 1, 3), []float64{math.NaN()}))

	pc := tbl.PctChange()
	require.Equal(t, 2, pc.Len())
	assert.InDelta(t, 0.1, pc.Row(0)[0], 1e-12)
	assert.True(t, math.IsNaN(pc.Row(1)[0]))
}

func TestTableTail(t *testing.T) {
	tbl := NewTable("v")
	for i := 1; i <= 5; i++ {
		require.NoError(t, tbl.Append(day(2024, 1, i), []float64{float64(i)}))
	}
	tail := tbl.Tail(2)
	assert.Equal(t, [][]float64{{4}, {5}}, tail.Values())
	assert.Equal(t, 5, tbl.Tail(10).Len())
}

// Package analysis summarizes scenario paths and valuation runs.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"macro-stress/internal/model"
	"macro-stress/internal/scenario"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PathStats summarizes one column of one scenario path.
type PathStats struct {
	Scenario model.Scenario
	Column   string

	Start time.Time
	End   time.Time
	Count int

	Min  float64
	Max  float64
	Mean float64
	P05  float64
	P95  float64

	SpreadP95P05 float64

	// Terminal is the value at the last step.
	Terminal float64
	// MaxDeviation is the largest absolute gap to the base path at the same step.
	// It is zero for the base path and NaN when the set has no base path.
	MaxDeviation float64
}

// ComputeStats returns one entry per (scenario, column), scenarios in stored order
// and columns in set order.
func ComputeStats(set *scenario.Set) ([]PathStats, error) {
	if set == nil || len(set.Paths) == 0 {
		return nil, fmt.Errorf("no scenarios to summarize")
	}
	base, hasBase := set.Path(model.ScenarioBase)

	out := make([]PathStats, 0, len(set.Paths)*len(set.Columns))
	for _, p := range set.Paths {
		n := len(p.Dates)
		if n == 0 {
			continue
		}
		if hasBase && len(base.Dates) != n {
			return nil, fmt.Errorf("scenario %q has %d steps, base has %d", p.Label, n, len(base.Dates))
		}
		for j, col := range set.Columns {
			vals := make([]float64, n)
			for i := range n {
				vals[i] = p.Values.At(i, j)
			}
			s := PathStats{
				Scenario: p.Label,
				Column:   col,
				Start:    p.Dates[0],
				End:      p.Dates[n-1],
				Count:    n,
				Min:      floats.Min(vals),
				Max:      floats.Max(vals),
				Mean:     stat.Mean(vals, nil),
				Terminal: vals[n-1],
			}
			sorted := append([]float64(nil), vals...)
			sort.Float64s(sorted)
			s.P05 = percentileSorted(sorted, 0.05)
			s.P95 = percentileSorted(sorted, 0.95)
			s.SpreadP95P05 = s.P95 - s.P05

			s.MaxDeviation = math.NaN()
			if hasBase {
				s.MaxDeviation = 0
				for i, v := range vals {
					s.MaxDeviation = math.Max(s.MaxDeviation, math.Abs(v-base.Values.At(i, j)))
				}
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// Lookup finds the stats for (label, column).
func Lookup(stats []PathStats, label model.Scenario, column string) (PathStats, bool) {
	for _, s := range stats {
		if s.Scenario == label && s.Column == column {
			return s, true
		}
	}
	return PathStats{}, false
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Package dashboard builds the chart data served to the scenario dashboard.
package dashboard

import (
	"errors"
	"fmt"
	"math"
	"time"

	"macro-stress/internal/model"
	"macro-stress/internal/scenario"
)

const (
	// DefaultReferenceShockBP is assumed when a set does not record its shock size.
	DefaultReferenceShockBP = 250
	MaxShockBP              = 300

	// snapshotSensitivity maps the shock scale to a relative yield move.
	snapshotSensitivity = 0.2

	TwoYear = "2Y_Treasury"
	TenYear = "10Y_Treasury"
)

var (
	ErrUnknownMetric       = errors.New("unknown metric")
	ErrShockOutOfRange     = errors.New("shock size out of range")
	ErrScenarioNotInSet    = errors.New("scenario not in set")
	ErrNoYieldObservations = errors.New("no complete yield observations")
)

type MetricOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// MetricOptions lists the metrics the time-series chart can plot.
func MetricOptions() []MetricOption {
	return []MetricOption{
		{Label: "Fed Funds Rate", Value: "FedFunds"},
		{Label: "Credit Spread", Value: "HY_OAS"},
		{Label: "Tech ETF", Value: "Technology"},
	}
}

func validMetric(metric string) bool {
	for _, m := range MetricOptions() {
		if m.Value == metric {
			return true
		}
	}
	return false
}

type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// TimeSeries is the base path next to a scaled shock path for one metric.
type TimeSeries struct {
	Title    string         `json:"title"`
	Scenario model.Scenario `json:"scenario"`
	Metric   string         `json:"metric"`
	ShockBP  int            `json:"shock_bp"`
	Base     Series         `json:"base"`
	Shocked  Series         `json:"shocked"`
}

// ReferenceBP is the shock, in basis points, the set's up/down paths were generated with.
func ReferenceBP(set *scenario.Set) float64 {
	if m := math.Abs(set.ShockMagnitude); m > 0 {
		return m * 100
	}
	return DefaultReferenceShockBP
}

// ShockScale converts a shock size in basis points to a multiple of the reference shock.
func ShockScale(bp int, referenceBP float64) (float64, error) {
	if bp < 0 || bp > MaxShockBP {
		return 0, fmt.Errorf("%w: %d bp not in [0, %d]", ErrShockOutOfRange, bp, MaxShockBP)
	}
	return float64(bp) / referenceBP, nil
}

// ScaledSeries interpolates the stored shock path: base + (shocked - base) * bp/reference,
// where reference is ReferenceBP(set). The base scenario returns the base path unchanged.
func ScaledSeries(set *scenario.Set, label model.Scenario, metric string, bp int) (*TimeSeries, error) {
	if !validMetric(metric) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	scale, err := ShockScale(bp, ReferenceBP(set))
	if err != nil {
		return nil, err
	}
	base, err := column(set, model.ScenarioBase, metric)
	if err != nil {
		return nil, err
	}
	shocked := Series{Name: fmt.Sprintf("%s shock (%d bp)", label, bp), Points: make([]Point, len(base))}
	if label == model.ScenarioBase {
		copy(shocked.Points, base)
	} else {
		scn, err := column(set, label, metric)
		if err != nil {
			return nil, err
		}
		for i, p := range base {
			shocked.Points[i] = Point{Date: p.Date, Value: p.Value + (scn[i].Value-p.Value)*scale}
		}
	}
	return &TimeSeries{
		Title:    fmt.Sprintf("%s under '%s' shock (%d bp)", metric, label, bp),
		Scenario: label,
		Metric:   metric,
		ShockBP:  bp,
		Base:     Series{Name: string(model.ScenarioBase), Points: base},
		Shocked:  shocked,
	}, nil
}

func column(set *scenario.Set, label model.Scenario, metric string) ([]Point, error) {
	xs, err := set.XS(label)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrScenarioNotInSet, label)
	}
	vals, err := xs.Column(metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMetric, err)
	}
	out := make([]Point, len(vals))
	for i, v := range vals {
		out[i] = Point{Date: xs.Date(i), Value: v}
	}
	return out, nil
}

// YieldHistory returns the 2Y and 10Y Treasury series, each without missing days.
func YieldHistory(macro *model.Table) ([]Series, error) {
	out := make([]Series, 0, 2)
	for _, tenor := range []struct{ name, column string }{{"2Y", TwoYear}, {"10Y", TenYear}} {
		vals, err := macro.Column(tenor.column)
		if err != nil {
			return nil, err
		}
		s := Series{Name: tenor.name}
		for i, v := range vals {
			if !math.IsNaN(v) {
				s.Points = append(s.Points, Point{Date: macro.Date(i), Value: v})
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// Snapshot compares the latest observed 2Y/10Y yields with a stylized shocked curve.
type Snapshot struct {
	AsOf     time.Time      `json:"as_of"`
	Scenario model.Scenario `json:"scenario"`
	ShockBP  int            `json:"shock_bp"`
	Tenors   []string       `json:"tenors"`
	Base     []float64      `json:"base"`
	Shocked  []float64      `json:"shocked"`
	Text     string         `json:"text"`
}

// YieldSnapshot takes the last date with both yields observed and moves each by
// ±base·(bp/250)·0.2 for up/down.
func YieldSnapshot(macro *model.Table, label model.Scenario, bp int) (*Snapshot, error) {
	scale, err := ShockScale(bp, DefaultReferenceShockBP)
	if err != nil {
		return nil, err
	}
	yields, err := macro.Select(TwoYear, TenYear)
	if err != nil {
		return nil, err
	}
	valid := yields.DropIncomplete()
	if valid.Len() == 0 {
		return nil, ErrNoYieldObservations
	}
	last := valid.Len() - 1
	base := valid.Row(last)
	move := label.Sign() * scale * snapshotSensitivity
	shocked := []float64{base[0] + base[0]*move, base[1] + base[1]*move}
	asOf := valid.Date(last)
	return &Snapshot{
		AsOf:     asOf,
		Scenario: label,
		ShockBP:  bp,
		Tenors:   []string{"2Y", "10Y"},
		Base:     []float64{base[0], base[1]},
		Shocked:  shocked,
		Text: fmt.Sprintf("2Y: %.2f%%, 10Y: %.2f%% (as of %s)",
			shocked[0], shocked[1], asOf.Format(model.DateFormat)),
	}, nil
}

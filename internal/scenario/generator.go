// Package scenario produces labeled base and shocked forecast paths from a fitted VAR.
package scenario

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"macro-stress/internal/model"
	"macro-stress/internal/varmodel"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Options configures one generation run.
type Options struct {
	Columns   []string
	MaxLag    int
	Criterion varmodel.Criterion
	Horizon   int
	// Shock carries the column and magnitude; the sign is set per scenario.
	Shock Shock

	// ModelPath, when set, receives the fitted model after a successful run.
	ModelPath string
	// ReuseModel loads ModelPath instead of refitting when it matches Columns.
	ReuseModel bool
}

func (o Options) validate() error {
	if len(o.Columns) == 0 {
		return errors.New("no columns selected")
	}
	if o.Horizon <= 0 {
		return fmt.Errorf("horizon must be > 0, got %d", o.Horizon)
	}
	if o.MaxLag <= 0 {
		return fmt.Errorf("max lag must be > 0, got %d", o.MaxLag)
	}
	if !slices.Contains(o.Columns, o.Shock.Column) {
		return fmt.Errorf("shock column %q not in %v: %w", o.Shock.Column, o.Columns, model.ErrShockColumnMissing)
	}
	return nil
}

type Generator struct {
	log zerolog.Logger
}

func NewGenerator(log zerolog.Logger) *Generator {
	return &Generator{log: log}
}

// Generate fits (or loads) the model and returns base, up and down paths.
// Nothing is written unless every step succeeds.
func (g *Generator) Generate(tbl *model.Table, opts Options) (*Set, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	sub, err := tbl.Select(opts.Columns...)
	if err != nil {
		return nil, err
	}
	clean := sub.DropIncomplete()
	g.log.Debug().
		Int("rows", tbl.Len()).
		Int("complete_rows", clean.Len()).
		Strs("columns", opts.Columns).
		Msg("estimation sample")
	if clean.Len() == 0 {
		return nil, fmt.Errorf("no complete rows for %v: %w", opts.Columns, model.ErrInsufficientHistory)
	}

	data := mat.NewDense(clean.Len(), len(clean.Columns), flatten(clean.Values()))

	m, fitted, err := g.model(data, clean.Columns, opts)
	if err != nil {
		return nil, err
	}

	window := data.Slice(clean.Len()-m.KAr, clean.Len(), 0, len(clean.Columns))
	// Forecasts start after the input's last date even when trailing rows were dropped.
	dates := model.BusinessDays(tbl.LastDate(), opts.Horizon)

	set := &Set{Columns: slices.Clone(clean.Columns), KAr: m.KAr, ShockMagnitude: opts.Shock.Magnitude}
	for _, label := range model.Scenarios() {
		seed, err := ApplyShock(window, clean.Columns, opts.Shock.For(label))
		if err != nil {
			return nil, err
		}
		fc, err := m.Forecast(seed, opts.Horizon)
		if err != nil {
			return nil, fmt.Errorf("forecast %s: %w", label, err)
		}
		set.Paths = append(set.Paths, Path{Label: label, Dates: slices.Clone(dates), Values: fc})
	}

	if fitted && opts.ModelPath != "" {
		if err := m.Save(opts.ModelPath); err != nil {
			return nil, err
		}
		g.log.Info().Str("path", opts.ModelPath).Msg("saved model")
	}

	g.log.Info().
		Int("k_ar", m.KAr).
		Int("horizon", opts.Horizon).
		Str("first_date", dates[0].Format(model.DateFormat)).
		Msg("generated scenarios")
	return set, nil
}

// model returns the model to forecast with and whether it was freshly fitted.
func (g *Generator) model(data *mat.Dense, columns []string, opts Options) (*varmodel.Model, bool, error) {
	if opts.ReuseModel && opts.ModelPath != "" {
		m, err := varmodel.Load(opts.ModelPath)
		switch {
		case err == nil && m.Matches(columns):
			r, _ := data.Dims()
			if r < m.KAr {
				return nil, false, fmt.Errorf("seed window needs %d rows, got %d: %w", m.KAr, r, model.ErrInsufficientHistory)
			}
			g.log.Info().Str("path", opts.ModelPath).Int("k_ar", m.KAr).Msg("reusing persisted model")
			return m, false, nil
		case err == nil:
			g.log.Warn().Strs("model_columns", m.Columns).Strs("columns", columns).Msg("persisted model columns differ, refitting")
		case errors.Is(err, fs.ErrNotExist):
			g.log.Info().Str("path", opts.ModelPath).Msg("no persisted model, fitting")
		default:
			g.log.Warn().Err(err).Msg("persisted model unreadable, refitting")
		}
	}

	m, err := varmodel.Fit(data, columns, varmodel.FitOptions{MaxLag: opts.MaxLag, Criterion: opts.Criterion})
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func flatten(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

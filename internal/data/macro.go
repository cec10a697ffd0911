package data

import (
	"context"
	"fmt"
	"time"

	"macro-stress/internal/config"
	"macro-stress/internal/model"

	"github.com/rs/zerolog"
)

// MacroFetcher assembles the macro table: FRED rates and spreads, then sector ETF
// and company adjusted closes, outer-joined on date.
type MacroFetcher struct {
	FRED  *FREDClient
	Yahoo *YahooClient
	log   zerolog.Logger
}

// NewMacroFetcher builds both clients from configuration. A missing FRED key is
// reported here, before any request is made.
func NewMacroFetcher(cfg *config.Config, log zerolog.Logger) (*MacroFetcher, error) {
	key, err := cfg.RequireFREDKey()
	if err != nil {
		return nil, err
	}
	s := cfg.Sources
	return &MacroFetcher{
		FRED:  NewFREDClient(key, s.FREDURL, s.RateLimit, log.With().Str("source", "fred").Logger()),
		Yahoo: NewYahooClient(s.YahooURL, s.RateLimit, log.With().Str("source", "yahoo").Logger()),
		log:   log,
	}, nil
}

// Fetch retrieves every configured series. Any failure aborts the whole fetch.
func (m *MacroFetcher) Fetch(ctx context.Context, src config.SourcesConfig) (*model.Table, error) {
	if err := m.FRED.validateAPIKey(); err != nil {
		return nil, err
	}
	var start time.Time
	if src.Start != "" {
		t, err := time.Parse(model.DateFormat, src.Start)
		if err != nil {
			return nil, fmt.Errorf("sources.start: %w", err)
		}
		start = t
	}

	var out *model.Table
	merge := func(t *model.Table) error {
		if out == nil {
			out = t
			return nil
		}
		merged, err := out.Merge(t)
		if err != nil {
			return err
		}
		out = merged
		return nil
	}

	for _, s := range src.FRED {
		t, err := m.FRED.Observations(ctx, SeriesParams{Code: s.Code, Column: s.Name, Start: start})
		if err != nil {
			return nil, fmt.Errorf("fetch %s (%s): %w", s.Name, s.Code, err)
		}
		if err := merge(t); err != nil {
			return nil, err
		}
	}

	tickers := make([]config.Series, 0, len(src.Sectors)+len(src.Companies))
	tickers = append(tickers, src.Sectors...)
	for _, c := range src.Companies {
		tickers = append(tickers, config.Series{Name: c, Code: c})
	}
	for _, s := range tickers {
		t, err := m.Yahoo.AdjClose(ctx, SeriesParams{Code: s.Code, Column: s.Name, Start: start})
		if err != nil {
			return nil, fmt.Errorf("fetch %s (%s): %w", s.Name, s.Code, err)
		}
		if err := merge(t); err != nil {
			return nil, err
		}
	}

	if out == nil {
		return nil, fmt.Errorf("no series configured: %w", model.ErrMissingConfiguration)
	}
	m.log.Info().Int("rows", out.Len()).Int("columns", len(out.Columns)).Msg("macro table assembled")
	return out, nil
}

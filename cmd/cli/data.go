package main

import (
	"context"
	"flag"
	"fmt"

	"macro-stress/internal/data"
	"macro-stress/internal/logging"
	"macro-stress/internal/model"
	"macro-stress/internal/sentiment"

	"github.com/google/subcommands"
)

type fetchCmd struct {
	env
	out string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "download FRED and Yahoo series into the macro table" }
func (*fetchCmd) Usage() string {
	return `fetch [-config <file>] [-out <csv>]

  Fetches every configured FRED series, sector ETF and company close,
  outer-joins them on date and writes the macro CSV. Requires FRED_API_KEY.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.out, "out", "", "Output CSV (defaults to paths.macro_csv)")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.load(); err != nil {
		return usageError(err)
	}
	m, err := data.NewMacroFetcher(c.cfg, logging.Component(c.log, "fetch"))
	if err != nil {
		return usageError(err)
	}
	tbl, err := m.Fetch(ctx, c.cfg.Sources)
	if err != nil {
		return failure(err)
	}
	out := c.out
	if out == "" {
		out = c.cfg.Paths.MacroCSV
	}
	if err := data.SaveMacroCSV(out, tbl); err != nil {
		return failure(err)
	}
	fmt.Printf("wrote %d rows x %d columns (%s to %s) to %s\n",
		tbl.Len(), len(tbl.Columns),
		tbl.Date(0).Format(model.DateFormat), tbl.LastDate().Format(model.DateFormat), out)
	return subcommands.ExitSuccess
}

type fomcCmd struct {
	env
	out string
}

func (*fomcCmd) Name() string     { return "fomc" }
func (*fomcCmd) Synopsis() string { return "score FOMC policy statements on a hawk/dove scale" }
func (*fomcCmd) Usage() string {
	return `fomc [-config <file>] [-out <csv>]

  Scrapes the FOMC calendar, scores every statement and writes date,hawk_dove rows.
`
}

func (c *fomcCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.out, "out", "", "Output CSV (defaults to paths.sentiment_path)")
}

func (c *fomcCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.load(); err != nil {
		return usageError(err)
	}
	out := c.out
	if out == "" {
		out = c.cfg.Paths.SentimentPath
	}
	if out == "" {
		return usageError(fmt.Errorf("no output path: set -out or paths.sentiment_path"))
	}
	s := sentiment.NewScraper(c.cfg.Sources.FOMCURL, c.cfg.Sources.RateLimit, logging.Component(c.log, "fomc"))
	scores, err := s.Run(ctx)
	if err != nil {
		return failure(err)
	}
	if err := sentiment.SaveCSV(out, scores); err != nil {
		return failure(err)
	}
	fmt.Printf("scored %d statements, wrote %s\n", len(scores), out)
	if n := len(scores); n > 0 {
		last := scores[n-1]
		fmt.Printf("latest %s: %+.4f\n", last.Date.Format(model.DateFormat), last.HawkDove)
	}
	return subcommands.ExitSuccess
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"macro-stress/internal/report"
	"macro-stress/internal/store"

	"github.com/google/subcommands"
)

type exportCmd struct {
	env
	out string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write scenarios and valuations to an Excel workbook" }
func (*exportCmd) Usage() string {
	return `export [-config <file>] [-out <xlsx>]

  Writes one sheet per scenario path plus a valuations sheet.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.out, "out", "results/macro_stress.xlsx", "Output workbook")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.load(); err != nil {
		return usageError(err)
	}
	eng := c.engine()
	macro, err := eng.LoadMacro()
	if err != nil {
		return failure(err)
	}
	set, err := eng.LoadScenarios(macro)
	if err != nil {
		return failure(err)
	}
	records := eng.LoadValuations(macro, set)

	if err := os.MkdirAll(filepath.Dir(c.out), 0755); err != nil {
		return failure(fmt.Errorf("failed to create directory: %w", err))
	}
	file, err := os.Create(c.out)
	if err != nil {
		return failure(err)
	}
	defer file.Close()
	if err := store.WriteWorkbook(file, set, records); err != nil {
		return failure(err)
	}
	if err := file.Close(); err != nil {
		return failure(err)
	}
	fmt.Printf("wrote %s (%d paths, %d valuation records)\n", c.out, len(set.Paths), len(records))
	return subcommands.ExitSuccess
}

type reportCmd struct {
	env
	style string
	width int
	raw   bool
	out   string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "print a scenario and valuation report" }
func (*reportCmd) Usage() string {
	return `report [-config <file>] [-style auto|dark|light|notty] [-w <cols>] [-raw] [-out <md>]

  Summarizes the scenario paths and ranks companies by base-case value.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.style, "style", "auto", "Terminal style")
	f.IntVar(&c.width, "w", 100, "Word wrap width")
	f.BoolVar(&c.raw, "raw", false, "Print markdown without terminal styling")
	f.StringVar(&c.out, "out", "", "Also write the markdown to this file")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.load(); err != nil {
		return usageError(err)
	}
	eng := c.engine()
	macro, err := eng.LoadMacro()
	if err != nil {
		return failure(err)
	}
	set, err := eng.LoadScenarios(macro)
	if err != nil {
		return failure(err)
	}
	v, err := eng.Value(macro, set)
	if err != nil {
		return failure(err)
	}
	md, err := report.Markdown(set, v.Records, v.Skipped)
	if err != nil {
		return failure(err)
	}
	if c.out != "" {
		if err := os.WriteFile(c.out, []byte(md), 0644); err != nil {
			return failure(err)
		}
	}
	if c.raw {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}
	out, err := report.Render(md, c.style, c.width)
	if err != nil {
		return failure(err)
	}
	fmt.Print(out)
	return subcommands.ExitSuccess
}

type checkCmd struct {
	env
}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "validate the configuration and show the effective settings" }
func (*checkCmd) Usage() string {
	return `check [-config <file>]
`
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
}

func (c *checkCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.load(); err != nil {
		return usageError(err)
	}
	sc := c.cfg.Scenario
	lag := fmt.Sprintf("lag %d", sc.MaxLag)
	if sc.Criterion != "" {
		lag = fmt.Sprintf("lag <= %d by %s", sc.MaxLag, sc.Criterion)
	}
	fmt.Printf("columns:    %s (%s)\n", strings.Join(sc.Columns, ", "), lag)
	fmt.Printf("shock:      %s +/- %g over %d business days\n", sc.ShockColumn, sc.ShockMagnitude, sc.Horizon)
	fmt.Printf("companies:  %s\n", strings.Join(c.cfg.Sources.Companies, ", "))
	fmt.Printf("macro csv:  %s\n", c.cfg.Paths.MacroCSV)
	fmt.Printf("scenarios:  %s\n", c.cfg.Paths.ScenariosPath)
	fmt.Printf("valuations: %s\n", c.cfg.Paths.ValuationsPath)
	if _, err := c.cfg.RequireFREDKey(); err != nil {
		fmt.Println("FRED_API_KEY not set: fetch will fail")
	}
	return subcommands.ExitSuccess
}

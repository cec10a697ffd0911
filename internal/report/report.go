// Package report renders a run summary as markdown.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"macro-stress/internal/analysis"
	"macro-stress/internal/model"
	"macro-stress/internal/scenario"
	"macro-stress/internal/valuation"

	"github.com/charmbracelet/glamour"
	md "github.com/nao1215/markdown"
)

// Markdown summarizes the scenario paths and, when records are given, the valuations.
func Markdown(set *scenario.Set, records []valuation.Record, skipped []string) (string, error) {
	stats, err := analysis.ComputeStats(set)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Macro Stress Scenarios")
	first, last := stats[0].Start, stats[0].End
	summary := fmt.Sprintf("%d scenarios over %d business days (%s to %s). Columns: %s.",
		len(set.Paths), set.Horizon(), first.Format(model.DateFormat), last.Format(model.DateFormat),
		strings.Join(set.Columns, ", "))
	if set.KAr > 0 {
		summary += fmt.Sprintf(" VAR lag order %d.", set.KAr)
	}
	doc.PlainText(summary)

	doc.H2("Scenario paths")
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			string(s.Scenario), s.Column,
			num(s.Terminal), num(s.Min), num(s.Max), num(s.Mean),
			num(s.P05), num(s.P95), num(s.MaxDeviation),
		})
	}
	doc.Table(md.TableSet{
		Header: []string{"Scenario", "Column", "Terminal", "Min", "Max", "Mean", "P05", "P95", "Max dev vs base"},
		Rows:   rows,
	})

	if len(records) > 0 {
		doc.H2("Valuations")
		labels := model.Scenarios()
		header := []string{"Rank", "Company"}
		for _, l := range labels {
			header = append(header, fmt.Sprintf("PV %s", l))
		}
		header = append(header, "Downside")

		var vrows [][]string
		for _, r := range analysis.RankByValue(records, model.ScenarioBase) {
			row := []string{fmt.Sprintf("%d", r.Rank), r.Company}
			for _, l := range labels {
				v, ok := r.TotalPV[l]
				if !ok {
					row = append(row, "-")
					continue
				}
				row = append(row, v.StringFixed(0))
			}
			row = append(row, r.Downside.StringFixed(0))
			vrows = append(vrows, row)
		}
		doc.Table(md.TableSet{Header: header, Rows: vrows})
	}

	if len(skipped) > 0 {
		doc.H2("Skipped companies")
		doc.BulletList(skipped...)
	}
	return doc.String(), nil
}

func num(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

// Render formats markdown for a terminal. style is a glamour standard style name
// ("dark", "light", "notty") or "auto".
func Render(markdown, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	return r.Render(markdown)
}

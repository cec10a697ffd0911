package store

import (
	"fmt"
	"io"

	"macro-stress/internal/scenario"
	"macro-stress/internal/valuation"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook writes one sheet per scenario and, when records is non-empty,
// a "valuations" sheet.
func WriteWorkbook(w io.Writer, set *scenario.Set, records []valuation.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	for _, p := range set.Paths {
		sheet := string(p.Label)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		header := []interface{}{"date"}
		for _, c := range set.Columns {
			header = append(header, c)
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return err
		}
		for i, d := range p.Dates {
			row := []interface{}{fmtDate(d)}
			for _, v := range p.Values.RawRowView(i) {
				row = append(row, v)
			}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return err
			}
		}
	}

	if len(records) > 0 {
		const sheet = "valuations"
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		header := []interface{}{"company", "scenario", "year", "projected_cf", "wacc", "pv_cf"}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return err
		}
		for i, r := range records {
			row := []interface{}{
				r.Company,
				string(r.Scenario),
				r.Year,
				r.ProjectedCF.InexactFloat64(),
				r.WACC,
				r.PV.InexactFloat64(),
			}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return err
			}
		}
	}

	if len(set.Paths) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
		idx, err := f.GetSheetIndex(string(set.Paths[0].Label))
		if err != nil {
			return err
		}
		f.SetActiveSheet(idx)
	}
	return f.Write(w)
}

package store

import (
	"fmt"
	"os"
	"path/filepath"

	"macro-stress/internal/model"
	"macro-stress/internal/valuation"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
)

// valuationRow is the flat parquet shape of valuation.Record.
type valuationRow struct {
	Company     string  `parquet:"company"`
	Scenario    string  `parquet:"scenario"`
	Year        string  `parquet:"year"`
	ProjectedCF float64 `parquet:"projected_cf"`
	WACC        float64 `parquet:"wacc"`
	PVCF        float64 `parquet:"pv_cf"`
}

func WriteValuations(path string, records []valuation.Record) error {
	rows := make([]valuationRow, len(records))
	for i, r := range records {
		rows[i] = valuationRow{
			Company:     r.Company,
			Scenario:    string(r.Scenario),
			Year:        r.Year,
			ProjectedCF: r.ProjectedCF.InexactFloat64(),
			WACC:        r.WACC,
			PVCF:        r.PV.InexactFloat64(),
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write valuations: %w", err)
	}
	return os.Rename(tmp, path)
}

func ReadValuations(path string) ([]valuation.Record, error) {
	rows, err := parquet.ReadFile[valuationRow](path)
	if err != nil {
		return nil, fmt.Errorf("read valuations %s: %w", path, err)
	}
	out := make([]valuation.Record, len(rows))
	for i, r := range rows {
		out[i] = valuation.Record{
			Company:     r.Company,
			Scenario:    model.Scenario(r.Scenario),
			Year:        r.Year,
			ProjectedCF: decimal.NewFromFloat(r.ProjectedCF),
			WACC:        r.WACC,
			PV:          decimal.NewFromFloat(r.PVCF),
		}
	}
	return out, nil
}

package store

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"macro-stress/internal/model"
	"macro-stress/internal/scenario"
)

// WriteScenariosCSV writes the long-format scenario table with a scenario,date header.
func WriteScenariosCSV(path string, set *scenario.Set) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := append([]string{"scenario", "date"}, set.Columns...)
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range set.Rows() {
		row := make([]string, 0, len(header))
		row = append(row, string(r.Scenario), fmtDate(r.Date))
		for _, v := range r.Values {
			row = append(row, fmtFloat(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateFormat)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

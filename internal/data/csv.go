package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"macro-stress/internal/model"
)

// dateLayouts are accepted for the index column, most specific last.
var dateLayouts = []string{model.DateFormat, "2006-01-02 15:04:05", time.RFC3339}

// LoadMacroCSV reads a date-indexed table. The first column is the date (header
// "date" or empty); every other column is numeric. Empty, NA, NaN and "." cells
// are missing. Rows are sorted by date; duplicate dates are an error.
func LoadMacroCSV(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open macro table: %w", err)
	}
	defer f.Close()
	tbl, err := ReadMacroCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tbl, nil
}

func ReadMacroCSV(r io.Reader) (*model.Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header has %d columns, want a date column and at least one series", len(header))
	}
	if h := strings.ToLower(strings.TrimSpace(header[0])); h != "" && h != "date" {
		return nil, fmt.Errorf("first column must be the date, got %q", header[0])
	}

	type rec struct {
		date time.Time
		vals []float64
	}
	var recs []rec
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		d, err := parseDate(row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		vals := make([]float64, len(header)-1)
		for j, cell := range row[1:] {
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, header[j+1], err)
			}
			vals[j] = v
		}
		recs = append(recs, rec{date: d, vals: vals})
	}

	slices.SortStableFunc(recs, func(a, b rec) int { return a.date.Compare(b.date) })
	tbl := model.NewTable(header[1:]...)
	for _, r := range recs {
		if err := tbl.Append(r.date, r.vals); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// SaveMacroCSV writes tbl with a leading date column. NaN is written as an empty cell.
func SaveMacroCSV(path string, tbl *model.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := WriteMacroCSV(f, tbl); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func WriteMacroCSV(w io.Writer, tbl *model.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"date"}, tbl.Columns...)); err != nil {
		return err
	}
	for i := 0; i < tbl.Len(); i++ {
		row := make([]string, 0, len(tbl.Columns)+1)
		row = append(row, tbl.Date(i).Format(model.DateFormat))
		for _, v := range tbl.Row(i) {
			if math.IsNaN(v) {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", ".", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

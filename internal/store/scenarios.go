// Package store persists scenario and valuation tables.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"macro-stress/internal/model"
	"macro-stress/internal/scenario"

	"github.com/parquet-go/parquet-go"
)

const (
	scenarioField = "scenario"
	dateField     = "date"

	// ColumnsKey is the parquet key-value metadata entry holding the modeled column order.
	ColumnsKey = "macro_stress.columns"
	// ShockKey holds the shock magnitude behind the up/down paths.
	ShockKey = "macro_stress.shock_magnitude"
)

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

type scenarioLayout struct {
	schema   *parquet.Schema
	scenario int
	date     int
	values   []int
}

// layoutFor builds the schema for a set's columns. Group fields are stored in name
// order, so column indexes are looked up rather than assumed.
func layoutFor(columns []string) (*scenarioLayout, error) {
	group := parquet.Group{
		scenarioField: parquet.String(),
		dateField:     parquet.Date(),
	}
	for _, c := range columns {
		if _, dup := group[c]; dup {
			return nil, fmt.Errorf("column %q collides with a reserved or repeated name", c)
		}
		group[c] = parquet.Leaf(parquet.DoubleType)
	}
	l := &scenarioLayout{schema: parquet.NewSchema("scenarios", group)}
	idx := func(name string) int {
		leaf, _ := l.schema.Lookup(name)
		return leaf.ColumnIndex
	}
	l.scenario = idx(scenarioField)
	l.date = idx(dateField)
	for _, c := range columns {
		l.values = append(l.values, idx(c))
	}
	return l, nil
}

// WriteScenarios writes set in long format: one row per (scenario, date) with one
// DOUBLE column per modeled series. The file is only put in place once complete.
func WriteScenarios(path string, set *scenario.Set) error {
	l, err := layoutFor(set.Columns)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(set.Columns)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	w := parquet.NewWriter(f, l.schema,
		parquet.KeyValueMetadata(ColumnsKey, string(meta)),
		parquet.KeyValueMetadata(ShockKey, strconv.FormatFloat(set.ShockMagnitude, 'g', -1, 64)),
	)
	src := set.Rows()
	rows := make([]parquet.Row, 0, len(src))
	for _, r := range src {
		// Values must sit at their column index, which follows schema (name) order.
		row := make(parquet.Row, 2+len(r.Values))
		row[l.scenario] = parquet.ByteArrayValue([]byte(r.Scenario)).Level(0, 0, l.scenario)
		row[l.date] = parquet.Int32Value(daysSinceEpoch(r.Date)).Level(0, 0, l.date)
		for k, v := range r.Values {
			row[l.values[k]] = parquet.DoubleValue(v).Level(0, 0, l.values[k])
		}
		rows = append(rows, row)
	}
	if _, err := w.WriteRows(rows); err != nil {
		f.Close()
		return fmt.Errorf("write scenario rows: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadScenarios restores a set written by WriteScenarios.
func ReadScenarios(path string) (*scenario.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	raw, ok := pf.Lookup(ColumnsKey)
	if !ok {
		return nil, fmt.Errorf("parquet %s: missing %s metadata", path, ColumnsKey)
	}
	var columns []string
	if err := json.Unmarshal([]byte(raw), &columns); err != nil {
		return nil, fmt.Errorf("parquet %s: bad %s metadata: %w", path, ColumnsKey, err)
	}
	var shock float64
	if raw, ok := pf.Lookup(ShockKey); ok {
		if shock, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("parquet %s: bad %s metadata: %w", path, ShockKey, err)
		}
	}
	l, err := layoutFor(columns)
	if err != nil {
		return nil, err
	}
	byColumn := make(map[int]int, len(l.values))
	for k, c := range l.values {
		byColumn[c] = k
	}

	r := parquet.NewReader(pf)
	defer r.Close()

	var out []scenario.Row
	buf := make([]parquet.Row, 256)
	for {
		n, err := r.ReadRows(buf)
		for _, row := range buf[:n] {
			rec := scenario.Row{Values: make([]float64, len(columns))}
			for _, v := range row {
				switch c := v.Column(); {
				case c == l.scenario:
					rec.Scenario = model.Scenario(v.ByteArray())
				case c == l.date:
					rec.Date = epoch.AddDate(0, 0, int(v.Int32()))
				default:
					if k, ok := byColumn[c]; ok {
						rec.Values[k] = v.Double()
					}
				}
			}
			out = append(out, rec)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
	}
	set, err := scenario.FromRows(columns, out)
	if err != nil {
		return nil, err
	}
	set.ShockMagnitude = shock
	return set, nil
}

func daysSinceEpoch(t time.Time) int32 {
	return int32(model.Day(t).Sub(epoch).Hours() / 24)
}

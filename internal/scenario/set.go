package scenario

import (
	"fmt"
	"slices"
	"time"

	"macro-stress/internal/model"

	"gonum.org/v1/gonum/mat"
)

// Path is one labeled forecast over business days.
type Path struct {
	Label  model.Scenario
	Dates  []time.Time
	Values *mat.Dense // len(Dates) x len(Set.Columns)
}

// Set holds the forecast paths of one run, keyed by (scenario, date).
type Set struct {
	Columns []string
	Paths   []Path
	// KAr is the lag order of the model that produced the paths; 0 when read back from disk.
	KAr int
	// ShockMagnitude is the size of the shock behind the up/down paths, in the shocked
	// column's units. Zero when no shock was applied or the size is unknown.
	ShockMagnitude float64
}

// Row is one record of the long-format table.
type Row struct {
	Scenario model.Scenario
	Date     time.Time
	Values   []float64
}

// Horizon returns the number of steps per path.
func (s *Set) Horizon() int {
	if len(s.Paths) == 0 {
		return 0
	}
	return len(s.Paths[0].Dates)
}

// Labels returns the scenario labels in stored order.
func (s *Set) Labels() []model.Scenario {
	out := make([]model.Scenario, len(s.Paths))
	for i, p := range s.Paths {
		out[i] = p.Label
	}
	return out
}

// Path returns the path for label.
func (s *Set) Path(label model.Scenario) (Path, bool) {
	for _, p := range s.Paths {
		if p.Label == label {
			return p, true
		}
	}
	return Path{}, false
}

// XS returns the cross-section for one scenario as a date-indexed table.
func (s *Set) XS(label model.Scenario) (*model.Table, error) {
	p, ok := s.Path(label)
	if !ok {
		return nil, fmt.Errorf("scenario %q not in set", label)
	}
	t := model.NewTable(s.Columns...)
	for i, d := range p.Dates {
		if err := t.Append(d, p.Values.RawRowView(i)); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", label, err)
		}
	}
	return t, nil
}

// Rows flattens the set in (scenario, date) order.
func (s *Set) Rows() []Row {
	out := make([]Row, 0, len(s.Paths)*s.Horizon())
	for _, p := range s.Paths {
		for i, d := range p.Dates {
			out = append(out, Row{
				Scenario: p.Label,
				Date:     d,
				Values:   slices.Clone(p.Values.RawRowView(i)),
			})
		}
	}
	return out
}

// FromRows rebuilds a set from long-format rows. Scenarios keep first-seen order;
// dates must be strictly increasing within each scenario.
func FromRows(columns []string, rows []Row) (*Set, error) {
	type acc struct {
		dates []time.Time
		data  []float64
	}
	var order []model.Scenario
	by := map[model.Scenario]*acc{}
	for _, r := range rows {
		if len(r.Values) != len(columns) {
			return nil, fmt.Errorf("row %s/%s has %d values, want %d",
				r.Scenario, r.Date.Format(model.DateFormat), len(r.Values), len(columns))
		}
		a, ok := by[r.Scenario]
		if !ok {
			a = &acc{}
			by[r.Scenario] = a
			order = append(order, r.Scenario)
		}
		d := model.Day(r.Date)
		if n := len(a.dates); n > 0 && !d.After(a.dates[n-1]) {
			return nil, fmt.Errorf("scenario %q: date %s is not after %s",
				r.Scenario, d.Format(model.DateFormat), a.dates[n-1].Format(model.DateFormat))
		}
		a.dates = append(a.dates, d)
		a.data = append(a.data, r.Values...)
	}

	set := &Set{Columns: slices.Clone(columns)}
	for _, label := range order {
		a := by[label]
		set.Paths = append(set.Paths, Path{
			Label:  label,
			Dates:  a.dates,
			Values: mat.NewDense(len(a.dates), len(columns), a.data),
		})
	}
	return set, nil
}

package scenario

import (
	"fmt"
	"slices"

	"macro-stress/internal/model"

	"gonum.org/v1/gonum/mat"
)

// Shock is an offset applied to one series at the most recent seed observation.
type Shock struct {
	Column string
	// Magnitude is in the units of the column; 2.5 on a percent rate is 250bp.
	Magnitude float64
	// Sign is +1 for up, -1 for down and 0 for base.
	Sign float64
}

// For returns the shock for a scenario label.
func (s Shock) For(label model.Scenario) Shock {
	s.Sign = label.Sign()
	return s
}

// Offset is the amount added to the shocked cell.
func (s Shock) Offset() float64 { return s.Magnitude * s.Sign }

// ApplyShock returns a copy of window with Magnitude*Sign added to Column on the
// last row only. window is left untouched.
func ApplyShock(window mat.Matrix, columns []string, shock Shock) (*mat.Dense, error) {
	j := slices.Index(columns, shock.Column)
	if j < 0 {
		return nil, fmt.Errorf("shock column %q not in %v: %w", shock.Column, columns, model.ErrShockColumnMissing)
	}
	r, c := window.Dims()
	if c != len(columns) {
		return nil, fmt.Errorf("window has %d columns, names has %d", c, len(columns))
	}
	if r == 0 {
		return nil, fmt.Errorf("apply shock: %w", model.ErrEmptyTable)
	}
	out := mat.DenseCopyOf(window)
	out.Set(r-1, j, out.At(r-1, j)+shock.Offset())
	return out, nil
}

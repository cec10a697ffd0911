package valuation

import (
	"math"

	"macro-stress/internal/model"

	"gonum.org/v1/gonum/stat"
)

// Betas estimates cov(company, sector) / var(sector) on daily relative changes.
// Changes are taken over the whole table and any row with a missing value is
// dropped, so every beta uses the same sample. A non-positive sector variance or
// a missing column yields NaN.
func Betas(tbl *model.Table, companies []string, sectorFor func(string) string) map[string]float64 {
	ret := tbl.PctChange().DropIncomplete()
	out := make(map[string]float64, len(companies))
	for _, c := range companies {
		out[c] = beta(ret, c, sectorFor(c))
	}
	return out
}

func beta(ret *model.Table, company, sector string) float64 {
	x, err := ret.Column(company)
	if err != nil {
		return math.NaN()
	}
	y, err := ret.Column(sector)
	if err != nil {
		return math.NaN()
	}
	if len(y) < 2 {
		return math.NaN()
	}
	v := stat.Variance(y, nil)
	if !(v > 0) {
		return math.NaN()
	}
	return stat.Covariance(x, y, nil) / v
}

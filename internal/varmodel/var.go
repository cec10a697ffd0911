// Package varmodel estimates and forecasts reduced-form vector autoregressions
// without deterministic terms.
package varmodel

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"macro-stress/internal/model"

	"gonum.org/v1/gonum/mat"
)

// ErrNonFinite is returned when the estimation sample contains NaN or Inf.
var ErrNonFinite = errors.New("non-finite value in estimation sample")

// FitOptions controls lag order selection.
type FitOptions struct {
	// MaxLag is the largest lag order considered. With no Criterion it is the order used.
	MaxLag int
	// Criterion is one of aic, bic, hqic, fpe, or empty.
	Criterion Criterion
}

// Model is a fitted VAR(p): y_t = A_1 y_{t-1} + ... + A_p y_{t-p} + u_t.
type Model struct {
	Columns []string
	// KAr is the lag order actually used.
	KAr int
	// Coefs holds A_1..A_p, each K x K with row = equation, column = regressor.
	Coefs  []*mat.Dense
	SigmaU *mat.SymDense
	NObs   int
}

// K returns the number of equations.
func (m *Model) K() int { return len(m.Columns) }

// Fit estimates the model by equation-wise OLS on lag-stacked regressors.
// data is T x K with columns in the order of columns.
func Fit(data *mat.Dense, columns []string, opts FitOptions) (*Model, error) {
	if data == nil {
		return nil, fmt.Errorf("fit: %w", model.ErrEmptyTable)
	}
	T, K := data.Dims()
	if K != len(columns) {
		return nil, fmt.Errorf("fit: data has %d columns, names has %d", K, len(columns))
	}
	if opts.MaxLag <= 0 {
		return nil, fmt.Errorf("fit: max lag must be > 0, got %d", opts.MaxLag)
	}
	if err := checkFinite(data); err != nil {
		return nil, err
	}
	if T <= opts.MaxLag {
		return nil, fmt.Errorf("fit: need at least %d rows for lag %d, got %d: %w",
			opts.MaxLag+1, opts.MaxLag, T, model.ErrInsufficientHistory)
	}

	p := opts.MaxLag
	if opts.Criterion != "" {
		sel, err := SelectOrder(data, opts.MaxLag)
		if err != nil {
			return nil, err
		}
		p, err = sel.Best(opts.Criterion)
		if err != nil {
			return nil, err
		}
	}

	m, _, err := estimate(data, p)
	if err != nil {
		return nil, err
	}
	m.Columns = slices.Clone(columns)
	return m, nil
}

// estimate runs OLS for a fixed order and also returns the residual matrix.
func estimate(data mat.Matrix, p int) (*Model, *mat.Dense, error) {
	T, K := data.Dims()
	nobs := T - p
	if nobs <= 0 {
		return nil, nil, fmt.Errorf("fit: need at least %d rows for lag %d, got %d: %w",
			p+1, p, T, model.ErrInsufficientHistory)
	}

	Y := mat.NewDense(nobs, K, nil)
	X := mat.NewDense(nobs, p*K, nil)
	for t := 0; t < nobs; t++ {
		for k := 0; k < K; k++ {
			Y.Set(t, k, data.At(t+p, k))
		}
		// lag-1 block first: [y_{t-1}, y_{t-2}, ..., y_{t-p}]
		col := 0
		for j := 1; j <= p; j++ {
			src := t + p - j
			for k := 0; k < K; k++ {
				X.Set(t, col, data.At(src, k))
				col++
			}
		}
	}

	B, err := leastSquares(X, Y)
	if err != nil {
		return nil, nil, err
	}

	coefs := make([]*mat.Dense, p)
	for j := 0; j < p; j++ {
		A := mat.NewDense(K, K, nil)
		off := j * K
		for eq := 0; eq < K; eq++ {
			for v := 0; v < K; v++ {
				A.Set(eq, v, B.At(off+v, eq))
			}
		}
		coefs[j] = A
	}

	var fitted, resid mat.Dense
	fitted.Mul(X, B)
	resid.Sub(Y, &fitted)

	var sse mat.Dense
	sse.Mul(resid.T(), &resid)

	df := float64(nobs - p*K)
	if df <= 0 {
		df = float64(nobs)
	}
	sigma := mat.NewSymDense(K, nil)
	for i := 0; i < K; i++ {
		for j := i; j < K; j++ {
			sigma.SetSym(i, j, sse.At(i, j)/df)
		}
	}

	return &Model{KAr: p, Coefs: coefs, SigmaU: sigma, NObs: nobs}, &resid, nil
}

// leastSquares solves X B = Y. Normal equations first, SVD minimum-norm fallback
// when X'X is singular.
func leastSquares(X, Y *mat.Dense) (*mat.Dense, error) {
	_, m := X.Dims()
	_, K := Y.Dims()

	var xtx, inv mat.Dense
	xtx.Mul(X.T(), X)
	invErr := inv.Inverse(&xtx)
	if invErr == nil {
		var xty, B mat.Dense
		xty.Mul(X.T(), Y)
		B.Mul(&inv, &xty)
		return &B, nil
	}

	var svd mat.SVD
	if !svd.Factorize(X, mat.SVDThin) {
		return nil, fmt.Errorf("fit: regressors singular and SVD failed: %v", invErr)
	}
	rank := svd.Rank(1e-12)
	if rank == 0 {
		return mat.NewDense(m, K, nil), nil
	}
	var B mat.Dense
	svd.SolveTo(&B, Y, rank)
	return &B, nil
}

// Forecast propagates the fitted recursion horizon steps ahead from the last KAr
// rows of window. The result is horizon x K. No noise is added.
func (m *Model) Forecast(window mat.Matrix, horizon int) (*mat.Dense, error) {
	if m == nil || len(m.Coefs) == 0 {
		return nil, errors.New("forecast: model not estimated")
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("forecast: horizon must be > 0, got %d", horizon)
	}
	T, K := window.Dims()
	if K != m.K() {
		return nil, fmt.Errorf("forecast: window has %d columns, model has %d", K, m.K())
	}
	p := m.KAr
	if T < p {
		return nil, fmt.Errorf("forecast: need %d seed rows, got %d: %w", p, T, model.ErrInsufficientHistory)
	}

	out := mat.NewDense(p+horizon, K, nil)
	for i := 0; i < p; i++ {
		for k := 0; k < K; k++ {
			out.Set(i, k, window.At(T-p+i, k))
		}
	}
	for step := 0; step < horizon; step++ {
		row := p + step
		for eq := 0; eq < K; eq++ {
			var v float64
			for lag := 1; lag <= p; lag++ {
				A := m.Coefs[lag-1]
				prev := row - lag
				for j := 0; j < K; j++ {
					v += A.At(eq, j) * out.At(prev, j)
				}
			}
			out.Set(row, eq, v)
		}
	}
	return mat.DenseCopyOf(out.Slice(p, p+horizon, 0, K)), nil
}

// Stable reports whether every eigenvalue of the companion matrix lies inside the unit circle.
func (m *Model) Stable() bool {
	K, p := m.K(), m.KAr
	n := K * p
	comp := mat.NewDense(n, n, nil)
	for j, A := range m.Coefs {
		comp.Slice(0, K, j*K, (j+1)*K).(*mat.Dense).Copy(A)
	}
	for i := K; i < n; i++ {
		comp.Set(i, i-K, 1)
	}
	var eig mat.Eigen
	if !eig.Factorize(comp, mat.EigenNone) {
		return false
	}
	for _, v := range eig.Values(nil) {
		if math.Hypot(real(v), imag(v)) >= 1 {
			return false
		}
	}
	return true
}

func checkFinite(data mat.Matrix) error {
	r, c := data.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := data.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("fit: row %d column %d: %w", i, j, ErrNonFinite)
			}
		}
	}
	return nil
}

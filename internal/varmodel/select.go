package varmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Criterion names an information criterion used for lag order selection.
type Criterion string

const (
	AIC  Criterion = "aic"
	BIC  Criterion = "bic"
	HQIC Criterion = "hqic"
	FPE  Criterion = "fpe"
)

// OrderScores holds the criteria for one candidate lag order.
type OrderScores struct {
	Lag  int     `json:"lag" yaml:"lag"`
	AIC  float64 `json:"aic" yaml:"aic"`
	BIC  float64 `json:"bic" yaml:"bic"`
	HQIC float64 `json:"hqic" yaml:"hqic"`
	FPE  float64 `json:"fpe" yaml:"fpe"`
}

func (s OrderScores) value(c Criterion) (float64, error) {
	switch c {
	case AIC:
		return s.AIC, nil
	case BIC:
		return s.BIC, nil
	case HQIC:
		return s.HQIC, nil
	case FPE:
		return s.FPE, nil
	default:
		return 0, fmt.Errorf("unknown criterion %q", c)
	}
}

// OrderSelection is the result of scoring lags 1..MaxLag on a common sample.
type OrderSelection struct {
	MaxLag int
	NObs   int
	Scores []OrderScores
}

// Best returns the lag minimising the criterion. Ties go to the smaller lag.
func (o *OrderSelection) Best(c Criterion) (int, error) {
	best, bestVal := 0, math.Inf(1)
	for _, s := range o.Scores {
		v, err := s.value(c)
		if err != nil {
			return 0, err
		}
		if best == 0 || v < bestVal {
			best, bestVal = s.Lag, v
		}
	}
	if best == 0 {
		return 0, fmt.Errorf("select order: no candidate lags")
	}
	return best, nil
}

// SelectOrder scores every lag 1..maxLag. Each candidate is estimated on the same
// sample (the first maxLag rows are reserved as presample) so the criteria compare.
func SelectOrder(data *mat.Dense, maxLag int) (*OrderSelection, error) {
	T, K := data.Dims()
	if err := checkFinite(data); err != nil {
		return nil, err
	}
	nobs := T - maxLag
	sel := &OrderSelection{MaxLag: maxLag, NObs: nobs}

	for p := 1; p <= maxLag; p++ {
		sample := data.Slice(maxLag-p, T, 0, K)
		_, resid, err := estimate(sample, p)
		if err != nil {
			return nil, err
		}

		var sse mat.Dense
		sse.Mul(resid.T(), resid)
		mle := mat.NewSymDense(K, nil)
		for i := 0; i < K; i++ {
			for j := i; j < K; j++ {
				mle.SetSym(i, j, sse.At(i, j)/float64(nobs))
			}
		}
		ld, sign := mat.LogDet(mle)
		if sign < 0 {
			ld = math.Inf(1)
		}

		n := float64(nobs)
		free := float64(p * K * K)
		dfModel := float64(p * K)
		dfResid := n - dfModel

		s := OrderScores{
			Lag:  p,
			AIC:  ld + 2/n*free,
			BIC:  ld + math.Log(n)/n*free,
			HQIC: ld + 2*math.Log(math.Log(n))/n*free,
			FPE:  math.Inf(1),
		}
		if dfResid > 0 {
			s.FPE = math.Pow((n+dfModel)/dfResid, float64(K)) * math.Exp(ld)
		}
		sel.Scores = append(sel.Scores, s)
	}
	return sel, nil
}

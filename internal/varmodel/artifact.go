package varmodel

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// artifact is the on-disk shape of a fitted model.
type artifact struct {
	Columns  []string      `yaml:"columns"`
	KAr      int           `yaml:"k_ar"`
	NObs     int           `yaml:"nobs"`
	FittedAt time.Time     `yaml:"fitted_at"`
	Coefs    [][][]float64 `yaml:"coefs"`
	SigmaU   [][]float64   `yaml:"sigma_u"`
}

// Save writes the model as YAML. The file is replaced atomically.
func (m *Model) Save(path string) error {
	a := artifact{
		Columns:  m.Columns,
		KAr:      m.KAr,
		NObs:     m.NObs,
		FittedAt: time.Now().UTC(),
		Coefs:    make([][][]float64, len(m.Coefs)),
	}
	for i, A := range m.Coefs {
		a.Coefs[i] = rows(A)
	}
	if m.SigmaU != nil {
		a.SigmaU = rows(m.SigmaU)
	}

	raw, err := yaml.Marshal(&a)
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads a model written by Save.
func Load(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	var a artifact
	if err := yaml.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}

	K := len(a.Columns)
	if K == 0 || a.KAr <= 0 || len(a.Coefs) != a.KAr {
		return nil, fmt.Errorf("model file %s: inconsistent shape (k=%d, k_ar=%d, coefs=%d)", path, K, a.KAr, len(a.Coefs))
	}
	m := &Model{Columns: a.Columns, KAr: a.KAr, NObs: a.NObs, Coefs: make([]*mat.Dense, a.KAr)}
	for i, c := range a.Coefs {
		A, err := dense(c, K)
		if err != nil {
			return nil, fmt.Errorf("model file %s: lag %d: %w", path, i+1, err)
		}
		m.Coefs[i] = A
	}
	if len(a.SigmaU) > 0 {
		S, err := dense(a.SigmaU, K)
		if err != nil {
			return nil, fmt.Errorf("model file %s: sigma_u: %w", path, err)
		}
		m.SigmaU = mat.NewSymDense(K, nil)
		for i := 0; i < K; i++ {
			for j := i; j < K; j++ {
				m.SigmaU.SetSym(i, j, S.At(i, j))
			}
		}
	}
	return m, nil
}

// Matches reports whether the model was fitted on exactly these columns in this order.
func (m *Model) Matches(columns []string) bool {
	return slices.Equal(m.Columns, columns)
}

func rows(a mat.Matrix) [][]float64 {
	r, c := a.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		for j := range out[i] {
			out[i][j] = a.At(i, j)
		}
	}
	return out
}

func dense(v [][]float64, k int) (*mat.Dense, error) {
	if len(v) != k {
		return nil, fmt.Errorf("want %d rows, got %d", k, len(v))
	}
	data := make([]float64, 0, k*k)
	for i, r := range v {
		if len(r) != k {
			return nil, fmt.Errorf("row %d: want %d values, got %d", i, k, len(r))
		}
		data = append(data, r...)
	}
	return mat.NewDense(k, k, data), nil
}

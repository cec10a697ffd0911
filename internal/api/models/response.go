package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScenarioSetResponse describes a scenario set without its values.
type ScenarioSetResponse struct {
	RunID     string    `json:"run_id,omitempty"`
	Scenarios []string  `json:"scenarios"`
	Columns   []string  `json:"columns"`
	Horizon   int       `json:"horizon"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	KAr       int       `json:"k_ar,omitempty"`
}

// PathStat summarizes one column of one scenario path.
type PathStat struct {
	Scenario string  `json:"scenario"`
	Column   string  `json:"column"`
	Terminal float64 `json:"terminal"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	P05      float64 `json:"p05"`
	P95      float64 `json:"p95"`
	// MaxDeviation is omitted when the set has no base path.
	MaxDeviation *float64 `json:"max_deviation_from_base,omitempty"`
}

// StatsResponse lists path statistics for a set.
type StatsResponse struct {
	RunID string     `json:"run_id,omitempty"`
	Stats []PathStat `json:"stats"`
}

// RunResponse represents the response from an ad-hoc scenario run
type RunResponse struct {
	ID         string              `json:"id"`
	CreatedAt  time.Time           `json:"created_at"`
	Shock      ShockInfo           `json:"shock"`
	Set        ScenarioSetResponse `json:"set"`
	Stats      []PathStat          `json:"stats"`
	Valuations int                 `json:"valuations"`
	Skipped    []string            `json:"skipped,omitempty"`
	DurationMS int64               `json:"duration_ms"`
}

type ShockInfo struct {
	Column    string  `json:"column"`
	Magnitude float64 `json:"magnitude"`
}

// RunListResponse lists stored runs, newest first.
type RunListResponse struct {
	Runs []RunSummary `json:"runs"`
}

type RunSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Shock     ShockInfo `json:"shock"`
	Horizon   int       `json:"horizon"`
}

// ValuationRow is one discounted cash flow.
type ValuationRow struct {
	Company     string          `json:"company"`
	Scenario    string          `json:"scenario"`
	Year        string          `json:"year"`
	ProjectedCF decimal.Decimal `json:"projected_cf"`
	WACC        float64         `json:"wacc"`
	PV          decimal.Decimal `json:"pv_cf"`
}

type ValuationResponse struct {
	Records []ValuationRow `json:"records"`
	Count   int            `json:"count"`
}

// RankResponse represents the response from ranking companies
type RankResponse struct {
	Scenario string    `json:"scenario"`
	Rankings []Ranking `json:"rankings"`
}

// Ranking represents one ranked company
type Ranking struct {
	Rank     int                        `json:"rank"`
	Company  string                     `json:"company"`
	Value    decimal.Decimal            `json:"value"`
	Downside decimal.Decimal            `json:"downside"`
	TotalPV  map[string]decimal.Decimal `json:"total_pv"`
}

// SeriesInfo represents one column of the macro table
type SeriesInfo struct {
	Column    string `json:"column"`
	Source    string `json:"source"`
	Code      string `json:"code"`
	Kind      string `json:"kind"`
	Title     string `json:"title,omitempty"`
	Units     string `json:"units,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

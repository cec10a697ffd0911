package models

// RunRequest is the body of POST /api/v1/runs. Omitted fields take the configured defaults.
type RunRequest struct {
	Columns []string `json:"columns,omitempty"`
	MaxLag  int      `json:"max_lag,omitempty" binding:"omitempty,gte=1,lte=20"`
	// Criterion selects the lag order by information criterion: aic, bic, hqic or fpe.
	Criterion string `json:"criterion,omitempty" binding:"omitempty,oneof=aic bic hqic fpe"`
	Horizon   int    `json:"horizon,omitempty" binding:"omitempty,gte=1,lte=2520"`
	// ShockMagnitude is in the units of the shock column; nil keeps the default, 0 is allowed.
	ShockMagnitude *float64 `json:"shock_magnitude,omitempty" binding:"omitempty,gte=0"`
	ShockColumn    string   `json:"shock_column,omitempty"`
	// Value also runs the DCF valuation over the new paths.
	Value bool `json:"value,omitempty"`
}

// TimeSeriesQuery selects one metric of one scenario, rescaled to ShockBP.
type TimeSeriesQuery struct {
	Scenario string `form:"scenario"`
	Metric   string `form:"metric"`
	ShockBP  int    `form:"shock_bp" binding:"gte=0,lte=300"`
	RunID    string `form:"run_id"`
}

// SnapshotQuery selects the yield snapshot scenario and shock size.
type SnapshotQuery struct {
	Scenario string `form:"scenario"`
	ShockBP  int    `form:"shock_bp" binding:"gte=0,lte=300"`
}

// ValuationQuery filters valuation records.
type ValuationQuery struct {
	Company  string `form:"company"`
	Scenario string `form:"scenario"`
	RunID    string `form:"run_id"`
}

package handlers

import (
	"slices"
	"sync"
	"time"

	"macro-stress/internal/data"
	"macro-stress/internal/model"
	"macro-stress/internal/pipeline"
	"macro-stress/internal/scenario"
	"macro-stress/internal/valuation"
)

// Dataset is the state loaded at startup. It is never modified after construction.
type Dataset struct {
	Macro      *model.Table
	Scenarios  *scenario.Set
	Valuations []valuation.Record
	Catalog    *data.Catalog
}

// Run is one ad-hoc scenario run kept in memory.
type Run struct {
	ID        string
	CreatedAt time.Time
	Shock     scenario.Shock
	Result    *pipeline.Result
}

// Records returns the valuation records of the run, if it was valued.
func (r *Run) Records() []valuation.Record {
	if r.Result.Valuation == nil {
		return nil
	}
	return r.Result.Valuation.Records
}

// RunRegistry stores recent runs. The oldest run is evicted once the limit is reached.
type RunRegistry struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	order []string
	limit int
}

func NewRunRegistry(limit int) *RunRegistry {
	if limit <= 0 {
		limit = 32
	}
	return &RunRegistry{runs: map[string]*Run{}, limit: limit}
}

func (r *RunRegistry) Add(run *Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		r.order = append(r.order, run.ID)
	}
	r.runs[run.ID] = run
	for len(r.order) > r.limit {
		delete(r.runs, r.order[0])
		r.order = r.order[1:]
	}
}

func (r *RunRegistry) Get(id string) (*Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	return run, ok
}

// List returns runs newest first.
func (r *RunRegistry) List() []*Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Run, 0, len(r.order))
	for _, id := range slices.Backward(r.order) {
		out = append(out, r.runs[id])
	}
	return out
}

package handlers

import (
	"net/http"

	"macro-stress/internal/analysis"
	"macro-stress/internal/api/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ValuationHandler serves DCF records and the company ranking.
type ValuationHandler struct {
	source
}

func NewValuationHandler(ds *Dataset, runs *RunRegistry) *ValuationHandler {
	return &ValuationHandler{source{ds: ds, runs: runs}}
}

// ListValuations handles GET /api/v1/valuations
func (h *ValuationHandler) ListValuations(c *gin.Context) {
	var q models.ValuationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalidRequest(c, err)
		return
	}
	if q.Scenario != "" {
		if _, ok := parseScenario(c, q.Scenario); !ok {
			return
		}
	}
	_, records, ok := h.resolve(c, q.RunID)
	if !ok {
		return
	}

	rows := []models.ValuationRow{}
	for _, r := range records {
		if q.Company != "" && r.Company != q.Company {
			continue
		}
		if q.Scenario != "" && string(r.Scenario) != q.Scenario {
			continue
		}
		rows = append(rows, models.ValuationRow{
			Company:     r.Company,
			Scenario:    string(r.Scenario),
			Year:        r.Year,
			ProjectedCF: r.ProjectedCF,
			WACC:        r.WACC,
			PV:          r.PV,
		})
	}
	c.JSON(http.StatusOK, models.ValuationResponse{Records: rows, Count: len(rows)})
}

// RankCompanies handles GET /api/v1/valuations/ranking
func (h *ValuationHandler) RankCompanies(c *gin.Context) {
	label, ok := parseScenario(c, c.Query("scenario"))
	if !ok {
		return
	}
	_, records, ok := h.resolve(c, c.Query("run_id"))
	if !ok {
		return
	}

	ranked := analysis.RankByValue(records, label)
	rankings := make([]models.Ranking, len(ranked))
	for i, r := range ranked {
		totals := make(map[string]decimal.Decimal, len(r.TotalPV))
		for s, v := range r.TotalPV {
			totals[string(s)] = v
		}
		rankings[i] = models.Ranking{
			Rank:     r.Rank,
			Company:  r.Company,
			Value:    r.Value,
			Downside: r.Downside,
			TotalPV:  totals,
		}
	}
	c.JSON(http.StatusOK, models.RankResponse{Scenario: string(label), Rankings: rankings})
}

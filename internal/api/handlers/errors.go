package handlers

import (
	"errors"
	"net/http"

	"macro-stress/internal/api/models"
	"macro-stress/internal/dashboard"
	"macro-stress/internal/model"
	"macro-stress/internal/varmodel"

	"github.com/gin-gonic/gin"
)

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeDomainError maps known sentinel errors to a status and code. Anything else is
// reported with fallback.
func writeDomainError(c *gin.Context, err error, fallback int) {
	_ = c.Error(err)
	status, code := fallback, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, model.ErrShockColumnMissing):
		status, code = http.StatusBadRequest, "SHOCK_COLUMN_MISSING"
	case errors.Is(err, model.ErrColumnNotFound):
		status, code = http.StatusBadRequest, "COLUMN_NOT_FOUND"
	case errors.Is(err, dashboard.ErrUnknownMetric):
		status, code = http.StatusBadRequest, "UNKNOWN_METRIC"
	case errors.Is(err, dashboard.ErrShockOutOfRange):
		status, code = http.StatusBadRequest, "INVALID_SHOCK"
	case errors.Is(err, dashboard.ErrScenarioNotInSet):
		status, code = http.StatusNotFound, "SCENARIO_NOT_FOUND"
	case errors.Is(err, dashboard.ErrNoYieldObservations):
		status, code = http.StatusNotFound, "NO_YIELD_DATA"
	case errors.Is(err, model.ErrInsufficientHistory):
		status, code = http.StatusUnprocessableEntity, "INSUFFICIENT_HISTORY"
	case errors.Is(err, varmodel.ErrNonFinite):
		status, code = http.StatusUnprocessableEntity, "NON_FINITE_INPUT"
	case fallback == http.StatusUnprocessableEntity:
		code = "RUN_FAILED"
	}
	writeError(c, status, code, err.Error())
}

func invalidRequest(c *gin.Context, err error) {
	writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
}

// parseScenario accepts an empty label as base.
func parseScenario(c *gin.Context, s string) (model.Scenario, bool) {
	if s == "" {
		return model.ScenarioBase, true
	}
	label, ok := model.ParseScenario(s)
	if !ok {
		writeError(c, http.StatusBadRequest, "INVALID_SCENARIO", "scenario must be one of base, up, down")
		return "", false
	}
	return label, true
}

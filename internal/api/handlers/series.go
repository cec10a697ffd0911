package handlers

import (
	"net/http"

	"macro-stress/internal/api/models"

	"github.com/gin-gonic/gin"
)

// SeriesHandler serves the series catalog.
type SeriesHandler struct {
	ds *Dataset
}

func NewSeriesHandler(ds *Dataset) *SeriesHandler {
	return &SeriesHandler{ds: ds}
}

// ListSeries handles GET /api/v1/series
func (h *SeriesHandler) ListSeries(c *gin.Context) {
	kind := c.Query("kind")
	series := []models.SeriesInfo{}
	updatedAt := ""
	if h.ds.Catalog != nil {
		updatedAt = h.ds.Catalog.UpdatedAt
		for _, e := range h.ds.Catalog.Entries {
			if kind != "" && e.Kind != kind {
				continue
			}
			series = append(series, models.SeriesInfo{
				Column:    e.Column,
				Source:    e.Source,
				Code:      e.Code,
				Kind:      e.Kind,
				Title:     e.Title,
				Units:     e.Units,
				Frequency: e.Frequency,
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"series":     series,
		"updated_at": updatedAt,
		"count":      len(series),
	})
}

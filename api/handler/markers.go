package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/listmap/markers"
	"github.com/use-agent/listmap/models"
)

// Markers returns a handler for POST /api/v1/markers, which lays out map
// markers for already enriched listings.
func Markers(opts markers.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.MarkersRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.MarkersResponse{
				Success: false,
				Center:  opts.Center,
				Markers: []models.Marker{},
				Error:   "invalid JSON body: " + err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, models.MarkersResponse{
			Success: true,
			Center:  opts.Center,
			Markers: markers.Layout(req.Properties, opts),
		})
	}
}

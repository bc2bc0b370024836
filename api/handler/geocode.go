package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/listmap/assemble"
	"github.com/use-agent/listmap/models"
)

// Geocode returns a handler for POST /api/v1/geocode. Each record in
// properties gains latitude/longitude from its "town" field; all other
// fields are echoed back unchanged.
func Geocode(geo TownResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.GeocodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.GeocodeResponse{
				Success: false,
				Error:   "invalid JSON body: " + err.Error(),
			})
			return
		}

		var records []map[string]any
		if len(req.Properties) == 0 || json.Unmarshal(req.Properties, &records) != nil || records == nil {
			c.JSON(http.StatusBadRequest, models.GeocodeResponse{
				Success: false,
				Error:   "properties must be an array of objects",
			})
			return
		}

		towns := make([]string, len(records))
		for i, r := range records {
			towns[i] = assemble.RecordTown(r)
		}
		coords := geo.ResolveBatch(c.Request.Context(), towns)

		c.JSON(http.StatusOK, models.GeocodeResponse{
			Success:    true,
			Properties: assemble.Records(records, coords),
		})
	}
}

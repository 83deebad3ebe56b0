package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"onlevel-reserving/internal/api/models"
	"onlevel-reserving/internal/data"
)

// ListSamples handles GET /api/v1/samples
func ListSamples(c *gin.Context) {
	c.JSON(http.StatusOK, models.SamplesResponse{Samples: data.Samples()})
}

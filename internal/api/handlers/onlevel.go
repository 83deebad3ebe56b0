package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"onlevel-reserving/internal/api/middleware"
	"onlevel-reserving/internal/api/models"
	"onlevel-reserving/internal/config"
	"onlevel-reserving/internal/data"
	"onlevel-reserving/internal/model"
	"onlevel-reserving/internal/reserving"
)

// OnLevelHandler restates a single triangle at current rate level
type OnLevelHandler struct {
	runner *reserving.Runner
}

func NewOnLevelHandler(runner *reserving.Runner) *OnLevelHandler {
	return &OnLevelHandler{runner: runner}
}

// OnLevel handles POST /api/v1/onlevel
func (h *OnLevelHandler) OnLevel(c *gin.Context) {
	var req models.OnLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, "Invalid request body", err)
		return
	}

	var (
		tris map[string]*model.Triangle
		err  error
	)
	switch {
	case req.Triangle != nil && req.Sample != "":
		err = model.ConfigurationError("triangle", "give either triangle or sample, not both")
	case req.Triangle != nil:
		tris, err = req.Triangle.Triangles()
	case req.Sample != "":
		tris, err = data.SampleTriangles(req.Sample)
	default:
		err = model.ConfigurationError("triangle", "triangle or sample is required")
	}
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	X, ok := tris[req.Column]
	if !ok {
		middleware.AbortWithError(c, model.ConfigurationError("column", "column %q not found", req.Column))
		return
	}

	s, err := resolveSchedule(req.Schedule)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	params, err := config.OnLevelParams(req.Params)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	out, factors, err := h.runner.OnLevel(s, X, params)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	file, err := data.NewTriangleFile(X.Name, out)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OnLevelResponse{Factors: factors, Triangle: file})
}

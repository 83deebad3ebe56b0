package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"onlevel-reserving/internal/api/middleware"
	"onlevel-reserving/internal/api/models"
	"onlevel-reserving/internal/model"
	"onlevel-reserving/internal/report"
	"onlevel-reserving/internal/reserving"
)

// ReserveHandler runs reserving pipelines and serves their results back
type ReserveHandler struct {
	runner *reserving.Runner
	store  *report.Store
}

func NewReserveHandler(runner *reserving.Runner, store *report.Store) *ReserveHandler {
	return &ReserveHandler{runner: runner, store: store}
}

// RunReserve handles POST /api/v1/reserve
func (h *ReserveHandler) RunReserve(c *gin.Context) {
	var req models.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, "Invalid request body", err)
		return
	}
	if err := req.Prepare(); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	if req.UsesFiles() {
		middleware.AbortWithError(c, model.ConfigurationError("data", "file sources are not accepted over HTTP; use samples, inline triangles or events"))
		return
	}

	res, err := h.runner.Reserve(&req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	id := h.store.Put(res)
	c.JSON(http.StatusOK, models.RunResponse{ID: id, Status: "completed", Result: res})
}

// GetRun handles GET /api/v1/runs/:id
func (h *ReserveHandler) GetRun(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.RunResponse{ID: res.ID, Status: "completed", Result: res})
}

// GetFactorsCSV handles GET /api/v1/runs/:id/factors.csv
func (h *ReserveHandler) GetFactorsCSV(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}
	h.writeCSV(c, "factors.csv", func(w io.Writer) error { return report.WriteFactorsCSV(w, res.Factors) })
}

// GetRowsCSV handles GET /api/v1/runs/:id/rows.csv
func (h *ReserveHandler) GetRowsCSV(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}
	h.writeCSV(c, "rows.csv", func(w io.Writer) error { return report.WriteRowsCSV(w, res.Rows) })
}

func (h *ReserveHandler) lookup(c *gin.Context) (*report.Result, bool) {
	id := c.Param("id")
	res, ok := h.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Run not found or expired",
				Details: map[string]interface{}{"id": id},
			},
		})
		return nil, false
	}
	return res, true
}

func (h *ReserveHandler) writeCSV(c *gin.Context, name string, fn func(io.Writer) error) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Status(http.StatusOK)
	if err := fn(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"onlevel-reserving/internal/api/middleware"
	"onlevel-reserving/internal/api/models"
	"onlevel-reserving/internal/data"
	"onlevel-reserving/internal/model"
	"onlevel-reserving/internal/ratelevel"
)

// ScheduleHandler handles rate level index requests
type ScheduleHandler struct{}

func NewScheduleHandler() *ScheduleHandler {
	return &ScheduleHandler{}
}

// BuildIndex handles POST /api/v1/schedule/index
func (h *ScheduleHandler) BuildIndex(c *gin.Context) {
	var req models.IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, "Invalid request body", err)
		return
	}

	s, err := resolveSchedule(req.Schedule)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	reference, err := parseDate("reference", req.Reference)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	from := s.First()
	if req.From != "" {
		if from, err = parseDate("from", req.From); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
	}
	policy := ratelevel.ExtrapolateError
	if req.Extrapolation != "" {
		if policy, err = ratelevel.ParseExtrapolation(req.Extrapolation); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
	}

	ix, err := s.BuildIndex(from, reference, policy)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	resp := models.IndexResponse{
		Origin:    ix.Origin(),
		Reference: ix.Reference(),
		Segments:  ix.Segments(),
	}
	for _, at := range req.At {
		t, err := parseDate("at", at)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		level, err := ix.LevelAt(t)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		resp.Levels = append(resp.Levels, models.LevelPoint{Date: data.FormatDate(t), Level: level})
	}
	c.JSON(http.StatusOK, resp)
}

// resolveSchedule accepts exactly one of inline events or a sample name.
func resolveSchedule(src models.ScheduleSource) (*ratelevel.Schedule, error) {
	switch {
	case src.Sample != "" && len(src.Events) > 0:
		return nil, model.ConfigurationError("schedule", "give either events or sample, not both")
	case src.Sample != "":
		return data.SampleSchedule(src.Sample)
	case len(src.Events) > 0:
		return data.ScheduleFromEvents(src.Events)
	default:
		return nil, model.ConfigurationError("schedule", "events or sample is required")
	}
}

func parseDate(field, s string) (t time.Time, err error) {
	if t, err = ratelevel.ParseDate(s); err != nil {
		return t, model.ConfigurationError(field, "%v", err)
	}
	return t, nil
}

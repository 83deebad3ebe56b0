package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"onlevel-reserving/internal/api/models"
	"onlevel-reserving/internal/model"
)

// ErrorHandler middleware handles panics and errors
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if err, ok := recovered.(string); ok {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "INTERNAL_ERROR",
					"message": err,
				},
			})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "An unexpected error occurred",
				},
			})
		}
		c.Abort()
	})
}

// StatusFor maps a domain error onto an HTTP status and error code. Input
// problems are 422; anything untyped is a 500.
func StatusFor(err error) (int, string) {
	switch model.KindOf(err) {
	case model.KindSchedule:
		return http.StatusUnprocessableEntity, "SCHEDULE_ERROR"
	case model.KindDateRange:
		return http.StatusUnprocessableEntity, "DATE_RANGE_ERROR"
	case model.KindShape:
		return http.StatusUnprocessableEntity, "SHAPE_ERROR"
	case model.KindConfiguration:
		return http.StatusBadRequest, "CONFIGURATION_ERROR"
	case model.KindStageContract:
		return http.StatusBadRequest, "STAGE_CONTRACT_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// AbortWithError writes err as an ErrorResponse.
func AbortWithError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	detail := models.ErrorDetail{Code: code, Message: err.Error()}
	var e *model.Error
	if errors.As(err, &e) {
		details := map[string]interface{}{}
		if e.Stage != "" {
			details["stage"] = e.Stage
		}
		if e.Field != "" {
			details["field"] = e.Field
		}
		if len(details) > 0 {
			detail.Details = details
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: detail})
}

// BadRequest writes a 400 INVALID_REQUEST response.
func BadRequest(c *gin.Context, message string, err error) {
	detail := models.ErrorDetail{Code: "INVALID_REQUEST", Message: message}
	if err != nil {
		detail.Details = map[string]interface{}{"error": err.Error()}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: detail})
}

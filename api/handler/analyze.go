package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rmn-raj/seo-tool/models"
)

// Auditor runs one audit. *analyzer.Analyzer implements it.
type Auditor interface {
	Analyze(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error)
}

// Analyze returns a handler for POST /api/v1/analyze.
//
// The body must carry a "url"; anything else is optional. A page that
// scores 0 is still a 200 - only failures to audit at all are errors.
func Analyze(a Auditor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.AnalyzeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		resp, err := a.Analyze(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps an AuditError to the correct HTTP status code and writes
// a structured JSON error response. resp is copied, never modified.
func respondError(c *gin.Context, err error, resp *models.AnalyzeResponse) {
	var auditErr *models.AuditError
	if !errors.As(err, &auditErr) {
		auditErr = models.NewAuditError(models.ErrCodeInternal, err.Error(), err)
	}
	var out models.AnalyzeResponse
	if resp != nil {
		out = *resp
	}
	out.Success = false
	out.Report = nil
	out.Error = auditErr.ToDetail()

	c.JSON(mapErrorToStatus(auditErr), out)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.AuditError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeFetch:
		return http.StatusBadGateway // 502
	case models.ErrCodeParse:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	default:
		return http.StatusInternalServerError // 500
	}
}

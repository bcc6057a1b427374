package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shelf-labs/scout/config"
	"github.com/shelf-labs/scout/models"
	"github.com/shelf-labs/scout/webhook"
)

// Runner executes one research batch. *research.Pipeline satisfies it; the
// handler tests substitute a stub.
type Runner interface {
	Run(ctx context.Context, query string, limit int) (*models.Report, models.ResearchTimingInfo, error)
}

// RunnerFactory builds a Runner for one request. The brand-reputation
// override is per-request because it changes the analysis variant.
type RunnerFactory func(includeBrandReputation *bool) Runner

// Research returns a handler for POST /api/v1/research.
//
// Flow:
//  1. Parse & validate ResearchRequest, apply defaults.
//  2. Build a pipeline for the requested analysis variant.
//  3. Run the batch: session → harvest → extract+analyze per product.
//  4. Fire the research.completed webhook (when configured).
//  5. Respond with the ordered report and timing.
func Research(newRunner RunnerFactory, hook config.WebhookConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ResearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ResearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		runner := newRunner(req.IncludeBrandReputation)
		report, timing, err := runner.Run(c.Request.Context(), req.Query, req.Limit)
		if err != nil {
			respondResearchError(c, err, timing)
			if hook.URL != "" {
				webhook.DeliverAsync(hook.URL, hook.Secret, &webhook.Event{
					Type:      "research.failed",
					Query:     req.Query,
					Timestamp: time.Now().Unix(),
					Data:      failureData(err),
				})
			}
			return
		}

		if hook.URL != "" {
			webhook.DeliverAsync(hook.URL, hook.Secret, &webhook.Event{
				Type:      "research.completed",
				Query:     req.Query,
				Timestamp: time.Now().Unix(),
				Data:      report,
			})
		}

		c.JSON(http.StatusOK, models.ResearchResponse{
			Success: true,
			Report:  report,
			Timing:  timing,
		})
	}
}

// respondResearchError maps a ResearchError to the correct HTTP status and
// writes a structured JSON error response.
func respondResearchError(c *gin.Context, err error, timing models.ResearchTimingInfo) {
	var re *models.ResearchError
	if !errors.As(err, &re) {
		re = models.NewResearchError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(re), models.ResearchResponse{
		Success: false,
		Error:   re.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ResearchError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case models.ErrCodeSession, models.ErrCodeNavigation, models.ErrCodeSearch:
		return http.StatusBadGateway
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func failureData(err error) *models.ErrorDetail {
	var re *models.ResearchError
	if errors.As(err, &re) {
		return re.ToDetail()
	}
	return &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}
}

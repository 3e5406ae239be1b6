package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LearnShelfLab/analytics_svc/internal/pageview"
)

const (
	messagePageViewFiltered = "Page view filtered"
	messageTooManyRequests  = "Too many requests, please try again later"
	messagePageRequired     = "page is required"
	messageInvalidPlatform  = "platform must be web or app"
	messageSaveFailed       = "failed to record page view"
)

// PageViewHandlers exposes the public ingestion endpoint.
type PageViewHandlers struct {
	gateway *pageview.Gateway
	logger  *zap.Logger
}

// NewPageViewHandlers builds handlers around an ingestion gateway.
func NewPageViewHandlers(gateway *pageview.Gateway, logger *zap.Logger) *PageViewHandlers {
	return &PageViewHandlers{gateway: gateway, logger: logger}
}

type pageViewRequest struct {
	Page      string `json:"page"`
	UserID    string `json:"userId"`
	UserAgent string `json:"userAgent"`
	Platform  string `json:"platform"`
}

// CollectPageView records one page view. Filtered paths are acknowledged
// exactly like stored ones so callers cannot probe which paths are
// instrumented; only rate limiting and malformed payloads are visible
// rejections.
func (handlers *PageViewHandlers) CollectPageView(context *gin.Context) {
	var request pageViewRequest
	if bindErr := context.ShouldBindJSON(&request); bindErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{"error": messagePageRequired})
		return
	}

	userAgent := strings.TrimSpace(request.UserAgent)
	if userAgent == "" {
		userAgent = context.Request.UserAgent()
	}

	event := pageview.Event{
		Page:      request.Page,
		UserID:    request.UserID,
		UserAgent: userAgent,
		Platform:  request.Platform,
	}

	result, ingestErr := handlers.gateway.Ingest(context.Request.Context(), event, clientIPFromRequest(context))
	if ingestErr != nil {
		switch {
		case errors.Is(ingestErr, pageview.ErrPageRequired):
			context.JSON(http.StatusBadRequest, gin.H{"error": messagePageRequired})
		case errors.Is(ingestErr, pageview.ErrInvalidPlatform):
			context.JSON(http.StatusBadRequest, gin.H{"error": messageInvalidPlatform})
		default:
			if handlers.logger != nil {
				handlers.logger.Warn("page_view_ingest_failed", zap.Error(ingestErr))
			}
			context.JSON(http.StatusInternalServerError, gin.H{"error": messageSaveFailed})
		}
		return
	}

	switch result.Outcome {
	case pageview.OutcomeStored:
		context.JSON(http.StatusCreated, gin.H{"success": true, "id": result.RecordID})
	case pageview.OutcomeRateLimited:
		context.JSON(http.StatusTooManyRequests, gin.H{"error": messageTooManyRequests})
	default:
		context.JSON(http.StatusOK, gin.H{"success": true, "message": messagePageViewFiltered})
	}
}

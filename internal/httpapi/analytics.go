package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LearnShelfLab/analytics_svc/internal/analytics"
)

const (
	queryParameterDays = "days"

	messageOverviewFailed = "failed to compute analytics overview"
	messageDailyFailed    = "failed to compute daily series"
)

// AnalyticsHandlers exposes the admin analytics endpoints.
type AnalyticsHandlers struct {
	engine *analytics.Engine
	logger *zap.Logger
}

// NewAnalyticsHandlers builds handlers around a rollup engine.
func NewAnalyticsHandlers(engine *analytics.Engine, logger *zap.Logger) *AnalyticsHandlers {
	return &AnalyticsHandlers{engine: engine, logger: logger}
}

// Overview serves GET /api/admin/analytics/overview?days=N.
func (handlers *AnalyticsHandlers) Overview(context *gin.Context) {
	overview, err := handlers.engine.Overview(context.Request.Context(), lookbackDaysFromQuery(context))
	if err != nil {
		if handlers.logger != nil {
			handlers.logger.Warn("analytics_overview_failed", zap.Error(err))
		}
		context.JSON(http.StatusInternalServerError, gin.H{"error": messageOverviewFailed})
		return
	}
	context.JSON(http.StatusOK, overview)
}

// DailySeries serves GET /api/admin/analytics/daily?days=N.
func (handlers *AnalyticsHandlers) DailySeries(context *gin.Context) {
	series, err := handlers.engine.DailySeries(context.Request.Context(), lookbackDaysFromQuery(context))
	if err != nil {
		if handlers.logger != nil {
			handlers.logger.Warn("analytics_daily_failed", zap.Error(err))
		}
		context.JSON(http.StatusInternalServerError, gin.H{"error": messageDailyFailed})
		return
	}
	context.JSON(http.StatusOK, series)
}

func lookbackDaysFromQuery(context *gin.Context) int {
	raw := strings.TrimSpace(context.Query(queryParameterDays))
	if raw == "" {
		return analytics.DefaultLookbackDays
	}
	days, parseErr := strconv.Atoi(raw)
	if parseErr != nil || days <= 0 {
		return analytics.DefaultLookbackDays
	}
	return days
}

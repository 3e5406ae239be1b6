package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LearnShelfLab/analytics_svc/internal/httpapi"
)

const (
	publicRoutePageViews        = "/api/page-views"
	adminRoutePrefix            = "/api/admin"
	adminRouteAnalyticsOverview = "/analytics/overview"
	adminRouteAnalyticsDaily    = "/analytics/daily"

	corsOriginWildcard      = "*"
	corsHeaderAuthorization = "Authorization"
	corsHeaderContentType   = "Content-Type"
	httpMethodGet           = "GET"
	httpMethodOptions       = "OPTIONS"
	httpMethodPost          = "POST"
)

var (
	corsAllowedMethods = []string{httpMethodPost, httpMethodGet, httpMethodOptions}
	corsAllowedHeaders = []string{corsHeaderAuthorization, corsHeaderContentType}
	corsExposedHeaders = []string{corsHeaderContentType}
	corsAllowOrigins   = []string{corsOriginWildcard}
)

func buildRouter(
	logger *zap.Logger,
	pageViewHandlers *httpapi.PageViewHandlers,
	analyticsHandlers *httpapi.AnalyticsHandlers,
	adminBearerToken string,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsAllowOrigins,
		AllowMethods:     corsAllowedMethods,
		AllowHeaders:     corsAllowedHeaders,
		ExposeHeaders:    corsExposedHeaders,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.POST(publicRoutePageViews, pageViewHandlers.CollectPageView)

	adminGroup := router.Group(adminRoutePrefix)
	adminGroup.Use(httpapi.AdminAuthMiddleware(adminBearerToken))
	adminGroup.GET(adminRouteAnalyticsOverview, analyticsHandlers.Overview)
	adminGroup.GET(adminRouteAnalyticsDaily, analyticsHandlers.DailySeries)

	return router
}

package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/LearnShelfLab/analytics_svc/internal/analytics"
	"github.com/LearnShelfLab/analytics_svc/internal/content"
	"github.com/LearnShelfLab/analytics_svc/internal/httpapi"
	"github.com/LearnShelfLab/analytics_svc/internal/model"
	"github.com/LearnShelfLab/analytics_svc/internal/storage"
	"github.com/LearnShelfLab/analytics_svc/internal/testutil"
)

const testAdminToken = "secret-token"

func newAnalyticsRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	database := testutil.OpenSQLiteTestDatabase(t)
	engine := analytics.NewEngine(
		storage.NewDatabasePageViewStore(database),
		content.NewDatabaseDirectory(database),
		zap.NewNop(),
	).WithLocation(time.UTC)
	handlers := httpapi.NewAnalyticsHandlers(engine, zap.NewNop())

	router := gin.New()
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(httpapi.AdminAuthMiddleware(testAdminToken))
	adminGroup.GET("/analytics/overview", handlers.Overview)
	adminGroup.GET("/analytics/daily", handlers.DailySeries)
	return router, database
}

func getAnalytics(router *gin.Engine, path string, token string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestAnalyticsEndpointsRequireBearerToken(t *testing.T) {
	router, _ := newAnalyticsRouter(t)

	response := getAnalytics(router, "/api/admin/analytics/overview", "")
	require.Equal(t, http.StatusUnauthorized, response.Code)

	response = getAnalytics(router, "/api/admin/analytics/overview", "wrong")
	require.Equal(t, http.StatusForbidden, response.Code)

	response = getAnalytics(router, "/api/admin/analytics/daily", "")
	require.Equal(t, http.StatusUnauthorized, response.Code)
}

func TestAnalyticsOverviewReturnsPayload(t *testing.T) {
	router, database := newAnalyticsRouter(t)
	now := time.Now().UTC()
	record, err := model.NewPageView(model.PageViewInput{
		Page:      "/standard/abc",
		IPAddress: "1.2.3.4",
		Occurred:  now.Add(-time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, database.Create(&record).Error)

	response := getAnalytics(router, "/api/admin/analytics/overview?days=7", testAdminToken)
	require.Equal(t, http.StatusOK, response.Code)

	var overview analytics.Overview
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &overview))
	require.Equal(t, int64(1), overview.TotalViews)
	require.Equal(t, int64(1), overview.UniqueViews)
	require.Len(t, overview.HourlyDistribution, 24)
	require.Len(t, overview.PlatformAnalytics.PlatformDistribution, 2)
}

func TestAnalyticsOverviewDefaultsInvalidDays(t *testing.T) {
	router, _ := newAnalyticsRouter(t)

	for _, query := range []string{"", "?days=0", "?days=-3", "?days=abc"} {
		response := getAnalytics(router, "/api/admin/analytics/overview"+query, testAdminToken)
		require.Equal(t, http.StatusOK, response.Code, "query %q", query)
	}
}

func TestAnalyticsDailySeriesReturnsOrderedDays(t *testing.T) {
	router, database := newAnalyticsRouter(t)
	now := time.Now().UTC()

	for _, occurred := range []time.Time{now.Add(-49 * time.Hour), now.Add(-25 * time.Hour), now.Add(-time.Hour)} {
		record, err := model.NewPageView(model.PageViewInput{
			Page:      "/",
			IPAddress: "1.2.3.4",
			Occurred:  occurred,
		})
		require.NoError(t, err)
		require.NoError(t, database.Create(&record).Error)
	}

	response := getAnalytics(router, "/api/admin/analytics/daily?days=7", testAdminToken)
	require.Equal(t, http.StatusOK, response.Code)

	var series []analytics.DailyPoint
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &series))
	require.NotEmpty(t, series)
	for pointIndex := 1; pointIndex < len(series); pointIndex++ {
		require.Less(t, series[pointIndex-1].Date, series[pointIndex].Date)
	}
}

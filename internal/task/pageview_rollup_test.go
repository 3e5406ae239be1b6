package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/LearnShelfLab/analytics_svc/internal/model"
	"github.com/LearnShelfLab/analytics_svc/internal/task"
	"github.com/LearnShelfLab/analytics_svc/internal/testutil"
)

func seedViewAt(t *testing.T, database *gorm.DB, ip string, occurred time.Time) {
	t.Helper()
	record, err := model.NewPageView(model.PageViewInput{
		Page:      "/standard/abc",
		IPAddress: ip,
		Occurred:  occurred,
	})
	require.NoError(t, err)
	require.NoError(t, database.Create(&record).Error)
}

func TestDailyRollupJobAggregatesPreviousDay(t *testing.T) {
	database := testutil.OpenSQLiteTestDatabase(t)
	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	noon := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 12, 0, 0, 0, time.UTC)

	seedViewAt(t, database, "1.1.1.1", noon)
	seedViewAt(t, database, "1.1.1.1", noon.Add(time.Minute))
	seedViewAt(t, database, "2.2.2.2", noon.Add(2*time.Minute))

	job := task.NewDailyRollupJob(database, zap.NewNop(), task.DailyRollupConfig{})
	job.Run(context.Background())

	var rollup model.PageViewRollup
	require.NoError(t, database.First(&rollup).Error)
	require.Equal(t, int64(3), rollup.PageViews)
	require.Equal(t, int64(2), rollup.UniqueVisitors)
}

func TestDailyRollupJobIsIdempotentPerDay(t *testing.T) {
	database := testutil.OpenSQLiteTestDatabase(t)
	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	noon := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 12, 0, 0, 0, time.UTC)

	seedViewAt(t, database, "1.1.1.1", noon)

	job := task.NewDailyRollupJob(database, zap.NewNop(), task.DailyRollupConfig{})
	job.Run(context.Background())

	seedViewAt(t, database, "2.2.2.2", noon.Add(time.Hour))
	job.Run(context.Background())

	var rollups []model.PageViewRollup
	require.NoError(t, database.Find(&rollups).Error)
	require.Len(t, rollups, 1)
	require.Equal(t, int64(2), rollups[0].PageViews)
	require.Equal(t, int64(2), rollups[0].UniqueVisitors)
}

func TestDailyRollupJobSkipsEmptyDays(t *testing.T) {
	database := testutil.OpenSQLiteTestDatabase(t)

	job := task.NewDailyRollupJob(database, zap.NewNop(), task.DailyRollupConfig{})
	job.Run(context.Background())

	var count int64
	require.NoError(t, database.Model(&model.PageViewRollup{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestDailyRollupJobPrunesBeyondRetention(t *testing.T) {
	database := testutil.OpenSQLiteTestDatabase(t)
	now := time.Now().UTC()

	seedViewAt(t, database, "1.1.1.1", now.Add(-10*24*time.Hour))
	seedViewAt(t, database, "2.2.2.2", now.Add(-time.Hour))

	job := task.NewDailyRollupJob(database, zap.NewNop(), task.DailyRollupConfig{RetentionDays: 7})
	job.Run(context.Background())

	var remaining []model.PageView
	require.NoError(t, database.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, "2.2.2.2", remaining[0].IPAddress)
}

func TestDailyRollupJobKeepsEverythingWithoutRetention(t *testing.T) {
	database := testutil.OpenSQLiteTestDatabase(t)
	now := time.Now().UTC()

	seedViewAt(t, database, "1.1.1.1", now.Add(-100*24*time.Hour))

	job := task.NewDailyRollupJob(database, zap.NewNop(), task.DailyRollupConfig{})
	job.Run(context.Background())

	var count int64
	require.NoError(t, database.Model(&model.PageView{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

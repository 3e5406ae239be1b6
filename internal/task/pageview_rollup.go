package task

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/LearnShelfLab/analytics_svc/internal/model"
)

// DailyRollupConfig defines rollup behavior. RetentionDays of zero disables
// pruning; raw page view retention is normally owned outside this service.
type DailyRollupConfig struct {
	RetentionDays int
}

// DailyRollupJob precomputes per-day page view totals into page_view_rollups
// and, when retention is configured, prunes raw records past the cutoff.
type DailyRollupJob struct {
	database *gorm.DB
	logger   *zap.Logger
	config   DailyRollupConfig
}

// NewDailyRollupJob builds a DailyRollupJob.
func NewDailyRollupJob(database *gorm.DB, logger *zap.Logger, config DailyRollupConfig) *DailyRollupJob {
	return &DailyRollupJob{
		database: database,
		logger:   logger,
		config:   config,
	}
}

// Run aggregates the previous UTC day, then prunes if retention is set.
func (job *DailyRollupJob) Run(ctx context.Context) {
	if err := job.aggregatePreviousDay(ctx); err != nil {
		if job.logger != nil {
			job.logger.Warn("daily_rollup_failed", zap.Error(err))
		}
		return
	}
	if job.config.RetentionDays > 0 {
		if err := job.pruneOldPageViews(ctx); err != nil && job.logger != nil {
			job.logger.Warn("page_view_prune_failed", zap.Error(err))
		}
	}
}

func (job *DailyRollupJob) aggregatePreviousDay(ctx context.Context) error {
	day := time.Now().UTC().Add(-24 * time.Hour)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	type aggregateResult struct {
		PageViews      int64
		UniqueVisitors int64
	}
	var result aggregateResult
	err := job.database.WithContext(ctx).
		Model(&model.PageView{}).
		Select("COUNT(*) as page_views, COUNT(distinct ip_address) as unique_visitors").
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&result).Error
	if err != nil {
		return err
	}
	if result.PageViews == 0 {
		return nil
	}

	rollup, rollupErr := model.NewPageViewRollup(start, result.PageViews, result.UniqueVisitors)
	if rollupErr != nil {
		return rollupErr
	}
	return job.database.WithContext(ctx).
		Where("date = ?", rollup.Date).
		Assign(map[string]any{
			"page_views":      rollup.PageViews,
			"unique_visitors": rollup.UniqueVisitors,
		}).
		FirstOrCreate(&rollup).Error
}

func (job *DailyRollupJob) pruneOldPageViews(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(job.config.RetentionDays) * 24 * time.Hour).Truncate(24 * time.Hour)
	return job.database.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.PageView{}).Error
}

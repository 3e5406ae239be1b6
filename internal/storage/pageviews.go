package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/LearnShelfLab/analytics_svc/internal/model"
)

// PageViewFilter narrows read queries over the page view log. Start and End
// are inclusive; zero values leave the corresponding dimension unfiltered.
type PageViewFilter struct {
	Start    time.Time
	End      time.Time
	Page     string
	Platform string
}

// PageCount is one row of a group-by-page count.
type PageCount struct {
	Page  string
	Views int64
}

// PageViewFields is the projection used for client-side day/hour bucketing.
type PageViewFields struct {
	IPAddress string
	Platform  string
	CreatedAt time.Time
}

// DatabasePageViewStore implements the page view read and append contract
// over the primary database.
type DatabasePageViewStore struct {
	database *gorm.DB
}

// NewDatabasePageViewStore builds a page view store backed by the primary database.
func NewDatabasePageViewStore(database *gorm.DB) *DatabasePageViewStore {
	return &DatabasePageViewStore{database: database}
}

// Append persists one page view record. The insert is a single statement, so
// a record is either fully stored or not stored at all.
func (store *DatabasePageViewStore) Append(ctx context.Context, record *model.PageView) error {
	return store.database.WithContext(ctx).Create(record).Error
}

// Count returns the number of page views matching the filter.
func (store *DatabasePageViewStore) Count(ctx context.Context, filter PageViewFilter) (int64, error) {
	var count int64
	err := store.scoped(ctx, filter).Count(&count).Error
	return count, err
}

// CountDistinctIPs returns the number of distinct non-empty IP addresses
// among page views matching the filter.
func (store *DatabasePageViewStore) CountDistinctIPs(ctx context.Context, filter PageViewFilter) (int64, error) {
	var count int64
	err := store.scoped(ctx, filter).
		Where("ip_address <> ''").
		Distinct("ip_address").
		Count(&count).Error
	return count, err
}

// GroupCountByPage returns per-page view counts ordered by count descending.
func (store *DatabasePageViewStore) GroupCountByPage(ctx context.Context, filter PageViewFilter, limit int) ([]PageCount, error) {
	if limit <= 0 {
		limit = 10
	}
	var results []PageCount
	err := store.scoped(ctx, filter).
		Select("page, COUNT(*) as views").
		Group("page").
		Order("views desc").
		Limit(limit).
		Scan(&results).Error
	return results, err
}

// ListFields returns the bucketing projection of every matching record.
func (store *DatabasePageViewStore) ListFields(ctx context.Context, filter PageViewFilter) ([]PageViewFields, error) {
	var results []PageViewFields
	err := store.scoped(ctx, filter).
		Select("ip_address, platform, created_at").
		Scan(&results).Error
	return results, err
}

func (store *DatabasePageViewStore) scoped(ctx context.Context, filter PageViewFilter) *gorm.DB {
	query := store.database.WithContext(ctx).Model(&model.PageView{})
	if !filter.Start.IsZero() {
		query = query.Where("created_at >= ?", filter.Start)
	}
	if !filter.End.IsZero() {
		query = query.Where("created_at <= ?", filter.End)
	}
	if filter.Page != "" {
		query = query.Where("page = ?", filter.Page)
	}
	if filter.Platform != "" {
		query = query.Where("platform = ?", filter.Platform)
	}
	return query
}

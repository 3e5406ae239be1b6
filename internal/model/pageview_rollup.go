package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidPageViewRollup = errors.New("invalid_page_view_rollup")
)

// PageViewRollup captures aggregated page view metrics per UTC day.
type PageViewRollup struct {
	ID             string    `gorm:"primaryKey;size:36"`
	Date           time.Time `gorm:"not null;uniqueIndex"` // UTC date truncated to midnight
	PageViews      int64     `gorm:"not null"`
	UniqueVisitors int64     `gorm:"not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// NewPageViewRollup constructs a rollup row for a specific date.
func NewPageViewRollup(date time.Time, pageViews int64, uniqueVisitors int64) (PageViewRollup, error) {
	if date.IsZero() {
		return PageViewRollup{}, fmt.Errorf("%w: missing date", ErrInvalidPageViewRollup)
	}
	if pageViews < 0 || uniqueVisitors < 0 {
		return PageViewRollup{}, fmt.Errorf("%w: negative counts", ErrInvalidPageViewRollup)
	}
	normalizedDate := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return PageViewRollup{
		ID:             uuid.NewString(),
		Date:           normalizedDate,
		PageViews:      pageViews,
		UniqueVisitors: uniqueVisitors,
	}, nil
}

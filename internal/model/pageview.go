package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PlatformWeb = "web"
	PlatformApp = "app"

	pageViewPathMaxLength      = 500
	pageViewUserIDMaxLength    = 64
	pageViewIPMaxLength        = 64
	pageViewUserAgentMaxLength = 400
)

var (
	ErrInvalidPageViewPath     = errors.New("invalid_page_view_path")
	ErrInvalidPageViewPlatform = errors.New("invalid_page_view_platform")
)

// PageView captures a single recorded page view. Rows are append-only: the
// ingestion gateway creates them and nothing in this service updates them.
type PageView struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Page      string    `gorm:"not null;size:500;index"`
	UserID    string    `gorm:"size:64"`
	IPAddress string    `gorm:"size:64;index"`
	UserAgent string    `gorm:"size:400"`
	Platform  string    `gorm:"not null;size:10;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// PageViewInput holds incoming page view data before validation.
type PageViewInput struct {
	Page      string
	UserID    string
	IPAddress string
	UserAgent string
	Platform  string
	Occurred  time.Time
}

// NewPageView constructs a validated PageView. The page must already be in
// normalized form (no query string, no fragment, no trailing slash except
// root); callers run the normalizer before reaching this constructor.
func NewPageView(input PageViewInput) (PageView, error) {
	page := strings.TrimSpace(input.Page)
	if page == "" || !strings.HasPrefix(page, "/") || len(page) > pageViewPathMaxLength {
		return PageView{}, ErrInvalidPageViewPath
	}

	platform := strings.TrimSpace(input.Platform)
	if platform == "" {
		platform = PlatformWeb
	}
	if platform != PlatformWeb && platform != PlatformApp {
		return PageView{}, ErrInvalidPageViewPlatform
	}

	occurred := input.Occurred
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	return PageView{
		ID:        uuid.NewString(),
		Page:      page,
		UserID:    truncateString(strings.TrimSpace(input.UserID), pageViewUserIDMaxLength),
		IPAddress: truncateString(strings.TrimSpace(input.IPAddress), pageViewIPMaxLength),
		UserAgent: truncateString(input.UserAgent, pageViewUserAgentMaxLength),
		Platform:  platform,
		CreatedAt: occurred,
	}, nil
}

func truncateString(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}

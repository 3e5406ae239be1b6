package pageview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LearnShelfLab/analytics_svc/internal/model"
)

// Outcome classifies the result of ingesting one event.
type Outcome string

const (
	OutcomeStored      Outcome = "stored"
	OutcomeFiltered    Outcome = "filtered"
	OutcomeRateLimited Outcome = "rate_limited"
)

var (
	ErrPageRequired    = errors.New("page_required")
	ErrInvalidPlatform = errors.New("invalid_platform")
)

// administrativePathPrefixes is re-checked at the gateway even though the
// filter already blocks them; a future filter change must not start
// recording back-office traffic.
var administrativePathPrefixes = []string{"/admin", "/login"}

// Event is one raw incoming page view.
type Event struct {
	Page      string
	UserID    string
	UserAgent string
	Platform  string
}

// IngestResult reports what happened to an event. RecordID is set only when
// Outcome is OutcomeStored.
type IngestResult struct {
	Outcome  Outcome
	RecordID string
}

// Recorder is the append side of the page view store.
type Recorder interface {
	Append(ctx context.Context, record *model.PageView) error
}

// Gateway validates, normalizes, rate-limits and persists page view events.
type Gateway struct {
	recorder Recorder
	limiter  *RateLimiter
	logger   *zap.Logger
}

// NewGateway builds an ingestion Gateway.
func NewGateway(recorder Recorder, limiter *RateLimiter, logger *zap.Logger) *Gateway {
	return &Gateway{
		recorder: recorder,
		limiter:  limiter,
		logger:   logger,
	}
}

// Ingest runs one event through the ingestion pipeline. Validation failures
// return an error; filtered and rate-limited events return a non-error
// result so the HTTP layer can acknowledge them per its contract. At most
// one record is appended, and only on the stored path.
func (gateway *Gateway) Ingest(ctx context.Context, event Event, clientIP string) (IngestResult, error) {
	if strings.TrimSpace(event.Page) == "" {
		return IngestResult{}, ErrPageRequired
	}
	platform := strings.TrimSpace(event.Platform)
	if platform == "" {
		platform = model.PlatformWeb
	}
	if platform != model.PlatformWeb && platform != model.PlatformApp {
		return IngestResult{}, fmt.Errorf("%w: %s", ErrInvalidPlatform, platform)
	}

	normalized := NormalizePath(event.Page)
	if !IsAllowedPath(normalized) {
		return IngestResult{Outcome: OutcomeFiltered}, nil
	}

	if clientIP != "" && gateway.limiter != nil && !gateway.limiter.Admit(clientIP) {
		return IngestResult{Outcome: OutcomeRateLimited}, nil
	}

	if isAdministrativePath(normalized) {
		return IngestResult{Outcome: OutcomeFiltered}, nil
	}

	record, recordErr := model.NewPageView(model.PageViewInput{
		Page:      normalized,
		UserID:    event.UserID,
		IPAddress: clientIP,
		UserAgent: event.UserAgent,
		Platform:  platform,
		Occurred:  time.Now().UTC(),
	})
	if recordErr != nil {
		return IngestResult{}, recordErr
	}

	if appendErr := gateway.recorder.Append(ctx, &record); appendErr != nil {
		if gateway.logger != nil {
			gateway.logger.Warn("page_view_save_failed", zap.Error(appendErr))
		}
		return IngestResult{}, fmt.Errorf("pageview: append: %w", appendErr)
	}

	return IngestResult{Outcome: OutcomeStored, RecordID: record.ID}, nil
}

func isAdministrativePath(normalizedPage string) bool {
	for _, prefix := range administrativePathPrefixes {
		if matchesBlockedPrefix(normalizedPage, prefix) {
			return true
		}
	}
	return false
}

package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LearnShelfLab/analytics_svc/internal/content"
	"github.com/LearnShelfLab/analytics_svc/internal/model"
	"github.com/LearnShelfLab/analytics_svc/internal/storage"
)

const (
	DefaultLookbackDays = 30

	topPagesLimit       = 10
	contentEntitiesCap  = 10
	peakHoursLimit      = 3
	hoursPerDay         = 24
	categoryTimeout     = 15 * time.Second
	entityQueryParallel = 8

	dailySeriesDateLayout = "2006-01-02"
)

// PageViewStore is the read contract the engine needs from the page view log.
type PageViewStore interface {
	Count(ctx context.Context, filter storage.PageViewFilter) (int64, error)
	CountDistinctIPs(ctx context.Context, filter storage.PageViewFilter) (int64, error)
	GroupCountByPage(ctx context.Context, filter storage.PageViewFilter, limit int) ([]storage.PageCount, error)
	ListFields(ctx context.Context, filter storage.PageViewFilter) ([]storage.PageViewFields, error)
}

// Engine computes dashboard rollups from raw page view records. All reads
// are best-effort beyond the headline totals: a failing category degrades to
// an empty list instead of failing the whole overview.
type Engine struct {
	store     PageViewStore
	directory content.Directory
	logger    *zap.Logger
	now       func() time.Time
	location  *time.Location
}

// NewEngine builds a rollup Engine.
func NewEngine(store PageViewStore, directory content.Directory, logger *zap.Logger) *Engine {
	return &Engine{
		store:     store,
		directory: directory,
		logger:    logger,
		now:       time.Now,
		location:  time.Local,
	}
}

// WithTimeSource overrides the clock, pinning "now" for tests.
func (engine *Engine) WithTimeSource(now func() time.Time) *Engine {
	engine.now = now
	return engine
}

// WithLocation overrides the location used for hour-of-day bucketing.
func (engine *Engine) WithLocation(location *time.Location) *Engine {
	engine.location = location
	return engine
}

// Overview computes every dashboard metric over the trailing lookback
// window. Growth compares against the equal-length window immediately before
// it. Only the headline counts are fatal; every enrichment category degrades
// independently.
func (engine *Engine) Overview(ctx context.Context, lookbackDays int) (Overview, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	end := engine.now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)
	prevStart := start.AddDate(0, 0, -lookbackDays)

	currentWindow := storage.PageViewFilter{Start: start, End: end}
	previousWindow := storage.PageViewFilter{Start: prevStart, End: start}

	totalViews, err := engine.store.Count(ctx, currentWindow)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics: total views: %w", err)
	}
	uniqueViews, err := engine.store.CountDistinctIPs(ctx, currentWindow)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics: unique views: %w", err)
	}
	recentViews, err := engine.store.Count(ctx, storage.PageViewFilter{Start: end.Add(-24 * time.Hour), End: end})
	if err != nil {
		return Overview{}, fmt.Errorf("analytics: recent views: %w", err)
	}
	previousViews, err := engine.store.Count(ctx, previousWindow)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics: previous views: %w", err)
	}
	previousUniqueViews, err := engine.store.CountDistinctIPs(ctx, previousWindow)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics: previous unique views: %w", err)
	}

	overview := Overview{
		TotalViews:  totalViews,
		UniqueViews: uniqueViews,
		RecentViews: recentViews,
		Growth: Growth{
			ViewsGrowth:       growthPercentage(totalViews, previousViews),
			UniqueViewsGrowth: growthPercentage(uniqueViews, previousUniqueViews),
		},
	}

	overview.TopPages = engine.topPages(ctx, currentWindow)
	overview.StandardsData, overview.SubjectsData, overview.ChaptersData = engine.contentAnalytics(ctx, start, end, prevStart)
	overview.ContentHierarchy = buildHierarchy(overview.StandardsData, overview.SubjectsData, overview.ChaptersData)
	overview.HourlyDistribution, overview.PeakHours = engine.hourlyDistribution(ctx, currentWindow)
	overview.PlatformAnalytics = engine.platformAnalytics(ctx, currentWindow)

	return overview, nil
}

// DailySeries groups views by UTC calendar day over the trailing window.
// Days without any event are not synthesized.
func (engine *Engine) DailySeries(ctx context.Context, lookbackDays int) ([]DailyPoint, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	end := engine.now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)

	records, err := engine.store.ListFields(ctx, storage.PageViewFilter{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("analytics: daily series: %w", err)
	}

	type dayAccumulator struct {
		views int64
		ips   map[string]struct{}
	}
	days := make(map[string]*dayAccumulator)
	for _, record := range records {
		date := record.CreatedAt.UTC().Format(dailySeriesDateLayout)
		accumulator, exists := days[date]
		if !exists {
			accumulator = &dayAccumulator{ips: make(map[string]struct{})}
			days[date] = accumulator
		}
		accumulator.views++
		if record.IPAddress != "" {
			accumulator.ips[record.IPAddress] = struct{}{}
		}
	}

	series := make([]DailyPoint, 0, len(days))
	for date, accumulator := range days {
		series = append(series, DailyPoint{
			Date:        date,
			Views:       accumulator.views,
			UniqueViews: int64(len(accumulator.ips)),
		})
	}
	sort.Slice(series, func(left, right int) bool { return series[left].Date < series[right].Date })
	return series, nil
}

func (engine *Engine) topPages(ctx context.Context, window storage.PageViewFilter) []TopPage {
	pageCounts, err := engine.store.GroupCountByPage(ctx, window, topPagesLimit)
	if err != nil {
		engine.warnCategory("top_pages", err)
		return []TopPage{}
	}
	topPages := make([]TopPage, 0, len(pageCounts))
	for _, pageCount := range pageCounts {
		label := engine.resolvePageLabel(ctx, pageCount.Page)
		pageUniqueViews, uniqueErr := engine.store.CountDistinctIPs(ctx, storage.PageViewFilter{
			Start: window.Start,
			End:   window.End,
			Page:  pageCount.Page,
		})
		if uniqueErr != nil {
			engine.warnCategory("top_pages", uniqueErr)
			return []TopPage{}
		}
		topPages = append(topPages, TopPage{
			Page:        pageCount.Page,
			DisplayName: label.DisplayName,
			ParentName:  label.ParentName,
			Views:       pageCount.Views,
			UniqueViews: pageUniqueViews,
		})
	}
	return topPages
}

// entityRef ties one content entity to the page its views are recorded under.
type entityRef struct {
	ID         string
	Name       string
	ParentName string
	Page       string
}

func (engine *Engine) contentAnalytics(ctx context.Context, start time.Time, end time.Time, prevStart time.Time) ([]ContentStat, []ContentStat, []ContentStat) {
	var standardsData, subjectsData, chaptersData []ContentStat
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		standardsData = engine.categoryStats(groupCtx, "standards", engine.standardRefs, start, end, prevStart)
		return nil
	})
	group.Go(func() error {
		subjectsData = engine.categoryStats(groupCtx, "subjects", engine.subjectRefs, start, end, prevStart)
		return nil
	})
	group.Go(func() error {
		chaptersData = engine.categoryStats(groupCtx, "chapters", engine.chapterRefs, start, end, prevStart)
		return nil
	})
	_ = group.Wait()
	return standardsData, subjectsData, chaptersData
}

func (engine *Engine) categoryStats(ctx context.Context, category string, listRefs func(context.Context) ([]entityRef, error), start time.Time, end time.Time, prevStart time.Time) []ContentStat {
	categoryCtx, cancel := context.WithTimeout(ctx, categoryTimeout)
	defer cancel()

	refs, err := listRefs(categoryCtx)
	if err != nil {
		engine.warnCategory(category, err)
		return []ContentStat{}
	}

	stats := make([]*ContentStat, len(refs))
	group, groupCtx := errgroup.WithContext(categoryCtx)
	group.SetLimit(entityQueryParallel)
	for refIndex, ref := range refs {
		group.Go(func() error {
			stat, hasViews, statErr := engine.entityStat(groupCtx, ref, start, end, prevStart)
			if statErr != nil {
				return statErr
			}
			if hasViews {
				stats[refIndex] = &stat
			}
			return nil
		})
	}
	if waitErr := group.Wait(); waitErr != nil {
		engine.warnCategory(category, waitErr)
		return []ContentStat{}
	}

	collected := make([]ContentStat, 0, len(stats))
	for _, stat := range stats {
		if stat != nil {
			collected = append(collected, *stat)
		}
	}
	sort.SliceStable(collected, func(left, right int) bool {
		if collected[left].Views != collected[right].Views {
			return collected[left].Views > collected[right].Views
		}
		return collected[left].Name < collected[right].Name
	})
	if len(collected) > contentEntitiesCap {
		collected = collected[:contentEntitiesCap]
	}
	return collected
}

// entityStat computes one entity's stats. Entities without views in the
// current window report hasViews false and are excluded from the category.
func (engine *Engine) entityStat(ctx context.Context, ref entityRef, start time.Time, end time.Time, prevStart time.Time) (ContentStat, bool, error) {
	currentFilter := storage.PageViewFilter{Start: start, End: end, Page: ref.Page}
	views, err := engine.store.Count(ctx, currentFilter)
	if err != nil {
		return ContentStat{}, false, err
	}
	if views == 0 {
		return ContentStat{}, false, nil
	}

	uniqueViews, err := engine.store.CountDistinctIPs(ctx, currentFilter)
	if err != nil {
		return ContentStat{}, false, err
	}
	previousViews, err := engine.store.Count(ctx, storage.PageViewFilter{Start: prevStart, End: start, Page: ref.Page})
	if err != nil {
		return ContentStat{}, false, err
	}
	webViews, err := engine.store.Count(ctx, storage.PageViewFilter{Start: start, End: end, Page: ref.Page, Platform: model.PlatformWeb})
	if err != nil {
		return ContentStat{}, false, err
	}
	appViews, err := engine.store.Count(ctx, storage.PageViewFilter{Start: start, End: end, Page: ref.Page, Platform: model.PlatformApp})
	if err != nil {
		return ContentStat{}, false, err
	}

	return ContentStat{
		ID:             ref.ID,
		Name:           ref.Name,
		ParentName:     ref.ParentName,
		Views:          views,
		UniqueViews:    uniqueViews,
		WebViews:       webViews,
		AppViews:       appViews,
		EngagementRate: engagementRate(views, uniqueViews),
		Trend:          classifyTrend(views, previousViews),
	}, true, nil
}

func (engine *Engine) standardRefs(ctx context.Context) ([]entityRef, error) {
	standards, err := engine.directory.ListStandards(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]entityRef, 0, len(standards))
	for _, standard := range standards {
		refs = append(refs, entityRef{
			ID:   standard.ID,
			Name: standard.Name,
			Page: pagePrefixStandard + standard.ID,
		})
	}
	return refs, nil
}

func (engine *Engine) subjectRefs(ctx context.Context) ([]entityRef, error) {
	subjects, err := engine.directory.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]entityRef, 0, len(subjects))
	for _, subject := range subjects {
		refs = append(refs, entityRef{
			ID:         subject.ID,
			Name:       subject.Name,
			ParentName: subject.StandardName,
			Page:       pagePrefixSubject + subject.ID,
		})
	}
	return refs, nil
}

func (engine *Engine) chapterRefs(ctx context.Context) ([]entityRef, error) {
	chapters, err := engine.directory.ListChapters(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]entityRef, 0, len(chapters))
	for _, chapter := range chapters {
		refs = append(refs, entityRef{
			ID:         chapter.ID,
			Name:       chapter.Name,
			ParentName: chapter.StandardName + parentNameSeparator + chapter.SubjectName,
			Page:       pagePrefixChapter + chapter.ID,
		})
	}
	return refs, nil
}

// buildHierarchy nests subjects under standards and chapters under subjects
// by parent-name matching. Children whose parent is absent from the flat
// lists are dropped from the nest but stay in the flat payload.
func buildHierarchy(standardsData []ContentStat, subjectsData []ContentStat, chaptersData []ContentStat) []StandardRollup {
	chaptersBySubject := make(map[string][]ContentStat)
	for _, chapter := range chaptersData {
		parentParts := strings.Split(chapter.ParentName, parentNameSeparator)
		if len(parentParts) != 2 {
			continue
		}
		subjectName := parentParts[1]
		chaptersBySubject[subjectName] = append(chaptersBySubject[subjectName], chapter)
	}

	subjectsByStandard := make(map[string][]SubjectRollup)
	for _, subject := range subjectsData {
		subjectsByStandard[subject.ParentName] = append(subjectsByStandard[subject.ParentName], SubjectRollup{
			ContentStat: subject,
			Chapters:    chapterList(chaptersBySubject[subject.Name]),
		})
	}

	hierarchy := make([]StandardRollup, 0, len(standardsData))
	for _, standard := range standardsData {
		subjects := subjectsByStandard[standard.Name]
		if subjects == nil {
			subjects = []SubjectRollup{}
		}
		hierarchy = append(hierarchy, StandardRollup{
			ContentStat: standard,
			Subjects:    subjects,
		})
	}
	return hierarchy
}

func chapterList(chapters []ContentStat) []ContentStat {
	if chapters == nil {
		return []ContentStat{}
	}
	return chapters
}

func (engine *Engine) hourlyDistribution(ctx context.Context, window storage.PageViewFilter) ([]HourBucket, []HourBucket) {
	buckets := make([]HourBucket, hoursPerDay)
	for hour := range buckets {
		buckets[hour] = HourBucket{Hour: hour}
	}

	records, err := engine.store.ListFields(ctx, window)
	if err != nil {
		engine.warnCategory("hourly_distribution", err)
		return buckets, []HourBucket{}
	}
	for _, record := range records {
		hour := record.CreatedAt.In(engine.location).Hour()
		buckets[hour].Views++
	}

	peaks := make([]HourBucket, hoursPerDay)
	copy(peaks, buckets)
	sort.SliceStable(peaks, func(left, right int) bool { return peaks[left].Views > peaks[right].Views })
	return buckets, peaks[:peakHoursLimit]
}

func (engine *Engine) platformAnalytics(ctx context.Context, window storage.PageViewFilter) PlatformAnalytics {
	webFilter := window
	webFilter.Platform = model.PlatformWeb
	appFilter := window
	appFilter.Platform = model.PlatformApp

	webViews, err := engine.store.Count(ctx, webFilter)
	if err != nil {
		engine.warnCategory("platform_analytics", err)
		return PlatformAnalytics{PlatformDistribution: []PlatformShare{}}
	}
	appViews, err := engine.store.Count(ctx, appFilter)
	if err != nil {
		engine.warnCategory("platform_analytics", err)
		return PlatformAnalytics{PlatformDistribution: []PlatformShare{}}
	}
	webUniqueViews, err := engine.store.CountDistinctIPs(ctx, webFilter)
	if err != nil {
		engine.warnCategory("platform_analytics", err)
		return PlatformAnalytics{PlatformDistribution: []PlatformShare{}}
	}
	appUniqueViews, err := engine.store.CountDistinctIPs(ctx, appFilter)
	if err != nil {
		engine.warnCategory("platform_analytics", err)
		return PlatformAnalytics{PlatformDistribution: []PlatformShare{}}
	}

	return PlatformAnalytics{
		WebViews:       webViews,
		AppViews:       appViews,
		WebUniqueViews: webUniqueViews,
		AppUniqueViews: appUniqueViews,
		PlatformDistribution: []PlatformShare{
			{Platform: model.PlatformWeb, Views: webViews, Percentage: sharePercentage(webViews, webViews+appViews)},
			{Platform: model.PlatformApp, Views: appViews, Percentage: sharePercentage(appViews, webViews+appViews)},
		},
	}
}

func (engine *Engine) warnCategory(category string, err error) {
	if engine.logger != nil {
		engine.logger.Warn("rollup_category_failed", zap.String("category", category), zap.Error(err))
	}
}

// growthPercentage reports the period-over-period change. A zero previous
// period yields 0, never a division error.
func growthPercentage(current int64, previous int64) float64 {
	if previous == 0 {
		return 0
	}
	return round2(float64(current-previous) / float64(previous) * 100)
}

func engagementRate(views int64, uniqueViews int64) float64 {
	if views == 0 {
		return 0
	}
	return round2(float64(uniqueViews) / float64(views) * 100)
}

func sharePercentage(views int64, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(views) / float64(total) * 100)
}

func classifyTrend(current int64, previous int64) string {
	switch {
	case current > previous:
		return TrendUp
	case current < previous:
		return TrendDown
	default:
		return TrendStable
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

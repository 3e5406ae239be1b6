package analytics

// Overview aggregates every dashboard metric for one lookback window. It is
// recomputed on demand and never stored.
type Overview struct {
	TotalViews         int64             `json:"totalViews"`
	UniqueViews        int64             `json:"uniqueViews"`
	RecentViews        int64             `json:"recentViews"`
	Growth             Growth            `json:"growth"`
	TopPages           []TopPage         `json:"topPages"`
	StandardsData      []ContentStat     `json:"standardsData"`
	SubjectsData       []ContentStat     `json:"subjectsData"`
	ChaptersData       []ContentStat     `json:"chaptersData"`
	ContentHierarchy   []StandardRollup  `json:"contentHierarchy"`
	HourlyDistribution []HourBucket      `json:"hourlyDistribution"`
	PeakHours          []HourBucket      `json:"peakHours"`
	PlatformAnalytics  PlatformAnalytics `json:"platformAnalytics"`
}

// Growth holds period-over-period percentage changes against the equal-length
// window immediately preceding the lookback window.
type Growth struct {
	ViewsGrowth       float64 `json:"viewsGrowth"`
	UniqueViewsGrowth float64 `json:"uniqueViewsGrowth"`
}

// TopPage is one entry of the most-viewed pages list.
type TopPage struct {
	Page        string `json:"page"`
	DisplayName string `json:"displayName"`
	ParentName  string `json:"parentName,omitempty"`
	Views       int64  `json:"views"`
	UniqueViews int64  `json:"uniqueViews"`
}

// TrendUp, TrendDown and TrendStable classify an entity's views against the
// preceding window of equal length.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// ContentStat carries per-entity analytics for a standard, subject or chapter.
// Platform counts are measured from stored records, never estimated.
type ContentStat struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ParentName     string  `json:"parentName,omitempty"`
	Views          int64   `json:"views"`
	UniqueViews    int64   `json:"uniqueViews"`
	WebViews       int64   `json:"webViews"`
	AppViews       int64   `json:"appViews"`
	EngagementRate float64 `json:"engagementRate"`
	Trend          string  `json:"trend"`
}

// StandardRollup nests subject rollups under their standard for UI consumption.
type StandardRollup struct {
	ContentStat
	Subjects []SubjectRollup `json:"subjects"`
}

// SubjectRollup nests chapter stats under their subject.
type SubjectRollup struct {
	ContentStat
	Chapters []ContentStat `json:"chapters"`
}

// HourBucket is one hour-of-day slot of the hourly distribution.
type HourBucket struct {
	Hour  int   `json:"hour"`
	Views int64 `json:"views"`
}

// PlatformAnalytics splits traffic between the web site and the mobile app.
type PlatformAnalytics struct {
	WebViews             int64           `json:"webViews"`
	AppViews             int64           `json:"appViews"`
	WebUniqueViews       int64           `json:"webUniqueViews"`
	AppUniqueViews       int64           `json:"appUniqueViews"`
	PlatformDistribution []PlatformShare `json:"platformDistribution"`
}

// PlatformShare is one platform's slice of total views.
type PlatformShare struct {
	Platform   string  `json:"platform"`
	Views      int64   `json:"views"`
	Percentage float64 `json:"percentage"`
}

// DailyPoint is one day of the daily series. Days without events are absent;
// callers must tolerate gaps.
type DailyPoint struct {
	Date        string `json:"date"`
	Views       int64  `json:"views"`
	UniqueViews int64  `json:"uniqueViews"`
}

package model

import "time"

// LighthouseStatus tracks the backend's asynchronous Lighthouse job
type LighthouseStatus string

const (
	LighthousePending   LighthouseStatus = "pending"
	LighthouseCompleted LighthouseStatus = "completed"
	LighthouseFailed    LighthouseStatus = "failed"
)

// Report is one SEO analysis run of one URL at one point in time. Reports are
// created and owned by the backend; this gateway only reads them. The core
// on-page fields never change after creation — only the four Lighthouse
// scores transition from null to a value, once, after the backend's
// asynchronous Lighthouse job finishes.
type Report struct {
	ID        int       `json:"id"`
	UserID    *int      `json:"user_id,omitempty"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`

	// On-page metrics
	Title           *string `json:"title"`
	MetaDescription *string `json:"meta_description"`
	H1Count         int     `json:"h1_count"`
	H2Count         int     `json:"h2_count"`
	ImageCount      int     `json:"image_count"`
	MissingAltCount int     `json:"missing_alt_count"`
	WordCount       int     `json:"word_count"`
	InternalLinks   int     `json:"internal_links_count"`
	ExternalLinks   int     `json:"external_links_count"`
	CanonicalURL    *string `json:"canonical_url"`

	// Technical SEO flags
	RobotsTxtExists bool `json:"robots_txt_exists"`
	SitemapExists   bool `json:"sitemap_exists"`
	OGTagsPresent   bool `json:"og_tags_present"`
	SchemaPresent   bool `json:"schema_present"`

	// Performance
	LoadTime float64 `json:"load_time"` // seconds
	SEOScore int     `json:"seo_score"` // 0-100

	// AI analysis
	AISummary     *string  `json:"ai_summary"`
	AISuggestions []string `json:"ai_suggestions"`
	TopKeywords   []string `json:"top_keywords"`

	// Lighthouse scores, each independently nullable until the backend's
	// Lighthouse job completes
	LighthousePerformance   *int             `json:"lighthouse_performance"`
	LighthouseAccessibility *int             `json:"lighthouse_accessibility"`
	LighthouseSEO           *int             `json:"lighthouse_seo"`
	LighthouseBestPractices *int             `json:"lighthouse_best_practices"`
	LighthouseJobStatus     LighthouseStatus `json:"lighthouse_status"`
}

// LighthouseReady reports whether at least one Lighthouse score has arrived.
func (r *Report) LighthouseReady() bool {
	return r.LighthousePerformance != nil ||
		r.LighthouseAccessibility != nil ||
		r.LighthouseSEO != nil ||
		r.LighthouseBestPractices != nil
}

// IsGuest reports whether the report was created without an authenticated
// owner. Guest reports are publicly readable so Lighthouse polling works for
// signed-out visitors.
func (r *Report) IsGuest() bool {
	return r.UserID == nil
}

// AnalyzeRequest is the payload for creating a new report
type AnalyzeRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// HistoryURL summarizes every report for one distinct URL
type HistoryURL struct {
	URL            string    `json:"url"`
	ReportCount    int       `json:"report_count"`
	LatestScan     time.Time `json:"latest_scan"`
	LatestSEOScore int       `json:"latest_seo_score"`
}

package domain

import "time"

// Agency is one ranked web agency. URL is the identity key and is matched
// byte for byte; it is never normalised.
type Agency struct {
	Name        string       `json:"name"`
	URL         string       `json:"url"`
	LatestAudit *AuditResult `json:"latestAudit,omitempty"`
}

// AuditResult is the most recent audit of an agency. A refresh replaces it
// as a whole; fields are never merged.
type AuditResult struct {
	Date   time.Time   `json:"date"`
	Scores ScoreBundle `json:"scores"`
}

// ScoreBundle holds the four Lighthouse category scores (0–100, unrounded)
// plus the best-effort carbon estimate.
//
// JSON keys match the historical lighthouse-results.json layout so existing
// data files load unchanged.
type ScoreBundle struct {
	Performance   float64 `json:"performance"`
	Accessibility float64 `json:"accessibility"`
	BestPractices float64 `json:"best-practices"`
	SEO           float64 `json:"seo"`

	// CarbonGramsPerView is grams of CO2e per page view. Nil when the carbon
	// service was skipped or failed.
	CarbonGramsPerView *float64 `json:"carbon"`

	// CarbonCleanerThanPercent is the share (0–100) of tested pages this
	// one beats. Nil when unavailable.
	CarbonCleanerThanPercent *float64 `json:"carbonCleanerThan"`

	ReportURL  string `json:"psiReportUrl"`
	FaviconURL string `json:"faviconUrl"`
}

// HasCarbon reports whether both carbon fields are present.
func (s ScoreBundle) HasCarbon() bool {
	return s.CarbonGramsPerView != nil && s.CarbonCleanerThanPercent != nil
}

// Float returns a pointer to v. Handy for the optional carbon fields.
func Float(v float64) *float64 { return &v }

package ranking

import "github.com/observatoire/observatoire/internal/domain"

// Weight constants for the composite score formula.
// They must sum to 1.0.
const (
	weightLighthouse = 0.70
	weightCarbon     = 0.30
)

// Class names returned by ScoreClass and CarbonClass.
const (
	ClassHigh   = "high"
	ClassMedium = "medium"
	ClassLow    = "low"
)

// Thresholds that map a Lighthouse score (0–100) to a class.
const (
	ThresholdHigh   = 90.0
	ThresholdMedium = 50.0
)

// Thresholds that map grams of CO2e per view to a class. Lower is better.
const (
	CarbonThresholdHigh   = 0.5
	CarbonThresholdMedium = 1.5
)

// Composite calculates the ranking score of an audit.
//
//	score = mean(performance, accessibility, best-practices, seo) * 0.70
//	      + carbonCleanerThan                                      * 0.30
//
// An absent carbon estimate counts as 0. A nil audit scores 0.
func Composite(audit *domain.AuditResult) float64 {
	if audit == nil {
		return 0
	}
	s := audit.Scores
	mean := (s.Performance + s.Accessibility + s.BestPractices + s.SEO) / 4

	var cleaner float64
	if s.CarbonCleanerThanPercent != nil {
		cleaner = *s.CarbonCleanerThanPercent
	}
	return mean*weightLighthouse + cleaner*weightCarbon
}

// ScoreClass maps a Lighthouse category score to high, medium or low.
func ScoreClass(score float64) string {
	switch {
	case score >= ThresholdHigh:
		return ClassHigh
	case score >= ThresholdMedium:
		return ClassMedium
	default:
		return ClassLow
	}
}

// CarbonClass maps grams of CO2e per view to high, medium or low.
func CarbonClass(grams float64) string {
	switch {
	case grams <= CarbonThresholdHigh:
		return ClassHigh
	case grams <= CarbonThresholdMedium:
		return ClassMedium
	default:
		return ClassLow
	}
}

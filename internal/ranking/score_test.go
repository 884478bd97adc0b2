package ranking

import (
	"math"
	"testing"
	"time"

	"github.com/observatoire/observatoire/internal/domain"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func audit(perf, acc, bp, seo float64, cleaner *float64) *domain.AuditResult {
	return &domain.AuditResult{
		Date: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Scores: domain.ScoreBundle{
			Performance:              perf,
			Accessibility:            acc,
			BestPractices:            bp,
			SEO:                      seo,
			CarbonCleanerThanPercent: cleaner,
		},
	}
}

func TestComposite(t *testing.T) {
	tests := []struct {
		name  string
		audit *domain.AuditResult
		want  float64
	}{
		{
			name:  "no audit",
			audit: nil,
			want:  0,
		},
		{
			// mean = (90+80+100+70)/4 = 85 → 0.7*85 = 59.5
			name:  "no carbon data",
			audit: audit(90, 80, 100, 70, nil),
			want:  59.5,
		},
		{
			// 0.7*85 + 0.3*60 = 59.5 + 18 = 77.5
			name:  "with carbon percentage",
			audit: audit(90, 80, 100, 70, domain.Float(60)),
			want:  77.5,
		},
		{
			name:  "perfect everywhere",
			audit: audit(100, 100, 100, 100, domain.Float(100)),
			want:  100,
		},
		{
			name:  "carbon only",
			audit: audit(0, 0, 0, 0, domain.Float(50)),
			want:  15,
		},
		{
			// unrounded sub-scores flow straight through
			name:  "fractional scores",
			audit: audit(91.5, 88.25, 96, 100, domain.Float(12.5)),
			want:  0.7*((91.5+88.25+96+100)/4) + 0.3*12.5,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Composite(tc.audit); !almostEqual(got, tc.want, 1e-9) {
				t.Errorf("Composite = %.6f, want %.6f", got, tc.want)
			}
		})
	}
}

func TestComposite_LinearInCarbon(t *testing.T) {
	base := Composite(audit(70, 60, 50, 40, nil))
	for _, c := range []float64{0, 1, 33.3, 50, 99.9, 100} {
		got := Composite(audit(70, 60, 50, 40, domain.Float(c)))
		if !almostEqual(got, base+0.3*c, 1e-9) {
			t.Errorf("cleaner=%v: got %.6f, want %.6f", c, got, base+0.3*c)
		}
	}
}

func TestScoreClass(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, ClassHigh},
		{90, ClassHigh},
		{89.99, ClassMedium},
		{50, ClassMedium},
		{49.9, ClassLow},
		{0, ClassLow},
	}
	for _, tc := range tests {
		if got := ScoreClass(tc.score); got != tc.want {
			t.Errorf("ScoreClass(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestCarbonClass(t *testing.T) {
	tests := []struct {
		grams float64
		want  string
	}{
		{0.1, ClassHigh},
		{0.5, ClassHigh},
		{0.51, ClassMedium},
		{1.5, ClassMedium},
		{2.4, ClassLow},
	}
	for _, tc := range tests {
		if got := CarbonClass(tc.grams); got != tc.want {
			t.Errorf("CarbonClass(%v) = %q, want %q", tc.grams, got, tc.want)
		}
	}
}

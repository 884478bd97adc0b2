package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/observatoire/observatoire/internal/domain"
)

// Key names a sortable leaderboard column.
type Key string

const (
	KeyPerformance   Key = "performance"
	KeyAccessibility Key = "accessibility"
	KeyBestPractices Key = "best-practices"
	KeySEO           Key = "seo"
	KeyCarbon        Key = "carbon"
	KeyComposite     Key = "compositeScore"
	KeyDate          Key = "date"
	KeyName          Key = "name"
	KeyURL           Key = "url"
)

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// DefaultKey and DefaultOrder give the leaderboard's resting order.
const (
	DefaultKey   = KeyComposite
	DefaultOrder = Desc
)

var knownKeys = map[Key]bool{
	KeyPerformance: true, KeyAccessibility: true, KeyBestPractices: true,
	KeySEO: true, KeyCarbon: true, KeyComposite: true, KeyDate: true,
	KeyName: true, KeyURL: true,
}

// ParseKey validates s as a column key. An empty string yields DefaultKey.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return DefaultKey, nil
	}
	k := Key(s)
	if !knownKeys[k] {
		return "", fmt.Errorf("ranking: unknown sort key %q", s)
	}
	return k, nil
}

// ParseOrder validates s as a direction. An empty string yields DefaultOrder.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(s)) {
	case "":
		return DefaultOrder, nil
	case Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	default:
		return "", fmt.Errorf("ranking: unknown sort order %q: want asc|desc", s)
	}
}

// Entry is one ranked agency with its derived composite score.
type Entry struct {
	Agency    domain.Agency
	Composite float64
	Rank      int // 1-based position in the ranked sequence
}

// Rank returns agencies ordered by key in the given direction. It never
// mutates its input.
//
// Numeric columns (the four categories, carbon, compositeScore, date)
// compare numerically; a missing value is +Inf ascending and -Inf
// descending, so unknowns always land at the bottom. Other columns compare
// case-insensitively. Ties keep their input order.
func Rank(agencies []domain.Agency, key Key, order Order) []Entry {
	out := make([]Entry, len(agencies))
	for i, a := range agencies {
		out[i] = Entry{Agency: a, Composite: Composite(a.LatestAudit)}
	}

	if isNumeric(key) {
		missing := math.Inf(1)
		if order == Desc {
			missing = math.Inf(-1)
		}
		val := func(e Entry) float64 {
			v, ok := numericValue(e, key)
			if !ok {
				return missing
			}
			return v
		}
		sort.SliceStable(out, func(i, j int) bool {
			a, b := val(out[i]), val(out[j])
			if order == Desc {
				return a > b
			}
			return a < b
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := stringValue(out[i], key), stringValue(out[j], key)
			if order == Desc {
				return a > b
			}
			return a < b
		})
	}

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// RankDefault orders agencies by composite score, best first.
func RankDefault(agencies []domain.Agency) []Entry {
	return Rank(agencies, DefaultKey, DefaultOrder)
}

// Agencies strips the ranking data from entries, keeping their order.
func Agencies(entries []Entry) []domain.Agency {
	out := make([]domain.Agency, len(entries))
	for i, e := range entries {
		out[i] = e.Agency
	}
	return out
}

func isNumeric(key Key) bool {
	switch key {
	case KeyPerformance, KeyAccessibility, KeyBestPractices, KeySEO,
		KeyCarbon, KeyComposite, KeyDate:
		return true
	}
	return false
}

// numericValue extracts the sort value of a numeric column. ok is false
// when the agency has no audit or the best-effort field is absent.
func numericValue(e Entry, key Key) (float64, bool) {
	if key == KeyComposite {
		return e.Composite, true
	}
	audit := e.Agency.LatestAudit
	if audit == nil {
		return 0, false
	}
	s := audit.Scores
	switch key {
	case KeyPerformance:
		return s.Performance, true
	case KeyAccessibility:
		return s.Accessibility, true
	case KeyBestPractices:
		return s.BestPractices, true
	case KeySEO:
		return s.SEO, true
	case KeyCarbon:
		if s.CarbonGramsPerView == nil {
			return 0, false
		}
		return *s.CarbonGramsPerView, true
	case KeyDate:
		if audit.Date.IsZero() {
			return 0, false
		}
		return float64(audit.Date.UnixMilli()), true
	}
	return 0, false
}

func stringValue(e Entry, key Key) string {
	switch key {
	case KeyName:
		return strings.ToLower(e.Agency.Name)
	case KeyURL:
		return strings.ToLower(e.Agency.URL)
	}
	return ""
}

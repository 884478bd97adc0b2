package api

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/observatoire/observatoire/internal/domain"
	"github.com/observatoire/observatoire/internal/ranking"
	"github.com/observatoire/observatoire/internal/scraper"
)

// toAgencyResponse maps a ranked entry to its JSON row.
func toAgencyResponse(e ranking.Entry) AgencyResponse {
	a := e.Agency
	return AgencyResponse{
		Rank:            e.Rank,
		Name:            a.Name,
		URL:             a.URL,
		Domain:          registrableDomain(a.URL),
		CompositeScore:  e.Composite,
		LatestAudit:     a.LatestAudit,
		CarbonReportURL: scraper.CarbonReportURL(a.URL),
		Classes:         classes(a.LatestAudit),
	}
}

// registrableDomain returns the eTLD+1 of rawurl's host, falling back to
// the bare host for names the public suffix list cannot split.
func registrableDomain(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return registrable
}

// classes grades every score of an audit for presentation.
func classes(audit *domain.AuditResult) map[string]string {
	if audit == nil {
		return nil
	}
	s := audit.Scores
	out := map[string]string{
		string(ranking.KeyPerformance):   ranking.ScoreClass(s.Performance),
		string(ranking.KeyAccessibility): ranking.ScoreClass(s.Accessibility),
		string(ranking.KeyBestPractices): ranking.ScoreClass(s.BestPractices),
		string(ranking.KeySEO):           ranking.ScoreClass(s.SEO),
	}
	if s.CarbonGramsPerView != nil {
		out[string(ranking.KeyCarbon)] = ranking.CarbonClass(*s.CarbonGramsPerView)
	}
	return out
}

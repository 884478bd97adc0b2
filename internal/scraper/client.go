package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/observatoire/observatoire/internal/config"
	"github.com/observatoire/observatoire/internal/domain"
)

// Client fetches a ScoreBundle for an agency URL.
type Client struct {
	psi    *pageSpeed
	carbon *carbonEstimator // nil when the carbon estimate is disabled
}

// New builds a Client from the pagespeed and carbon sections of the config.
// The PageSpeed API key is resolved from the environment here.
func New(ps config.PageSpeedConfig, cc config.CarbonConfig) (*Client, error) {
	if _, err := url.Parse(ps.Endpoint); err != nil {
		return nil, fmt.Errorf("scraper: pagespeed endpoint: %w", err)
	}
	if _, err := jsonpath.New(ps.ByteWeightPath); err != nil {
		return nil, fmt.Errorf("scraper: byte weight path %q: %w", ps.ByteWeightPath, err)
	}

	c := &Client{
		psi: &pageSpeed{
			endpoint:       ps.Endpoint,
			key:            ps.Key(),
			strategy:       ps.Strategy,
			byteWeightPath: ps.ByteWeightPath,
			client:         buildHTTPClient(ps.Timeout),
		},
	}
	if !cc.Disabled {
		if _, err := url.Parse(cc.Endpoint); err != nil {
			return nil, fmt.Errorf("scraper: carbon endpoint: %w", err)
		}
		c.carbon = &carbonEstimator{
			endpoint: cc.Endpoint,
			client:   buildHTTPClient(cc.Timeout),
		}
	}
	return c, nil
}

// Configured reports whether a PageSpeed API key is available.
func (c *Client) Configured() bool { return c.psi.key != "" }

// FetchScores audits target. Any PageSpeed failure is a domain.KindUpstream
// error; a carbon failure only leaves the carbon fields empty.
func (c *Client) FetchScores(ctx context.Context, target string) (domain.ScoreBundle, error) {
	const op = "scraper.fetch"

	res, err := c.psi.run(ctx, target)
	if err != nil {
		slog.Warn("scraper: pagespeed fetch failed", "url", target, "err", err)
		return domain.ScoreBundle{}, domain.Wrap(op, domain.KindUpstream, err,
			"PageSpeed Insights request failed")
	}

	bundle := domain.ScoreBundle{
		Performance:   res.Performance,
		Accessibility: res.Accessibility,
		BestPractices: res.BestPractices,
		SEO:           res.SEO,
		ReportURL:     ReportURL(target),
		FaviconURL:    FaviconURL(target),
	}

	switch {
	case c.carbon == nil:
	case res.TotalBytes <= 0:
		slog.Warn("scraper: no total byte weight in pagespeed response", "url", target)
	default:
		est, err := c.carbon.estimate(ctx, res.TotalBytes)
		if err != nil {
			slog.Warn("scraper: carbon estimate failed", "url", target, "bytes", res.TotalBytes, "err", err)
			break
		}
		bundle.CarbonGramsPerView = est.GramsPerView
		bundle.CarbonCleanerThanPercent = est.CleanerThanPercent
	}
	return bundle, nil
}

// ReportURL links to the public PageSpeed report for target.
func ReportURL(target string) string {
	return "https://pagespeed.web.dev/report?url=" + url.QueryEscape(target)
}

// FaviconURL returns a 64px favicon for target from Google's favicon service.
func FaviconURL(target string) string {
	return "https://t1.gstatic.com/faviconV2?client=SOCIAL&type=FAVICON&fallback_opts=TYPE,SIZE,URL&url=" +
		url.QueryEscape(target) + "&size=64"
}

// CarbonReportURL links to the Website Carbon page for target's host, or
// returns "" when target has no host.
func CarbonReportURL(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return "https://www.websitecarbon.com/website/" + strings.ReplaceAll(host, ".", "-")
}

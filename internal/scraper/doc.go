// Package scraper fetches the audit inputs for one agency website.
//
// PageSpeed Insights (pagespeed.go) supplies the four Lighthouse category
// scores and the total page weight; Website Carbon (carbon.go) turns that
// weight into a per-view CO2 estimate. Client.FetchScores combines both into
// a domain.ScoreBundle. The carbon estimate is best-effort: when it fails the
// bundle is returned without carbon fields.
//
// HTTP plumbing shared by both upstreams lives in base.go.
package scraper

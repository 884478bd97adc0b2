package api

import (
	"github.com/observatoire/observatoire/internal/domain"
	"github.com/observatoire/observatoire/internal/ranking"
)

// AgencyResponse is one row of GET /api/v1/agencies.
type AgencyResponse struct {
	Rank   int    `json:"rank"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Domain string `json:"domain"`

	// CompositeScore is recomputed on every read and never stored.
	CompositeScore float64 `json:"compositeScore"`

	LatestAudit     *domain.AuditResult `json:"latestAudit,omitempty"`
	CarbonReportURL string              `json:"carbonReportUrl,omitempty"`

	// Classes maps each score column to high | medium | low. Absent when
	// the agency has never been audited.
	Classes map[string]string `json:"classes,omitempty"`
}

// LeaderboardResponse is the websocket payload: the ranked list plus the
// sort it was ranked with.
type LeaderboardResponse struct {
	Sort        ranking.State    `json:"sort"`
	Agencies    []AgencyResponse `json:"agencies"`
	GeneratedAt string           `json:"generated_at"` // RFC3339
}

// RefreshRequest is the body of POST /api/v1/refresh.
type RefreshRequest struct {
	URL string `json:"url"`
}

// RefreshResponse is the success payload of POST /api/v1/refresh.
type RefreshResponse struct {
	Message string             `json:"message"`
	Scores  domain.ScoreBundle `json:"scores"`
}

// TokensResponse is the payload for GET /api/v1/tokens.
type TokensResponse struct {
	Read  string `json:"read"`
	Write string `json:"write"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status      string `json:"status"`
	AgencyCount int    `json:"agency_count"`
	StoreError  string `json:"store_error,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
}

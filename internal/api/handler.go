package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/observatoire/observatoire/internal/auth"
	"github.com/observatoire/observatoire/internal/domain"
	"github.com/observatoire/observatoire/internal/ranking"
	"github.com/observatoire/observatoire/internal/refresh"
	"github.com/observatoire/observatoire/internal/store"
	"github.com/observatoire/observatoire/internal/telemetry"
)

// maxBodyBytes bounds a refresh request body.
const maxBodyBytes = 4 << 10

// Refresher runs one refresh. *refresh.Orchestrator satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, requester, subject string) refresh.Outcome
}

// Handler serves /api/v1/*.
type Handler struct {
	repo      store.Repository
	refresher Refresher
	tokens    *auth.Issuer
	identify  auth.IdentityFunc
	metrics   *telemetry.Metrics
	router    chi.Router
	now       func() time.Time
}

// New wires a Handler and registers its routes. metrics may be nil.
func New(repo store.Repository, refresher Refresher, tokens *auth.Issuer, identify auth.IdentityFunc, metrics *telemetry.Metrics) *Handler {
	if metrics == nil {
		metrics = telemetry.New()
	}
	h := &Handler{
		repo:      repo,
		refresher: refresher,
		tokens:    tokens,
		identify:  identify,
		metrics:   metrics,
		now:       time.Now,
	}
	h.router = h.routes()
	return h
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/tokens", h.issueTokens)
		r.Get("/sort/next", h.nextSort)
		r.With(h.tokens.Require(auth.ScopeRead, h.identify)).Get("/agencies", h.listAgencies)
		r.With(h.tokens.Require(auth.ScopeWrite, h.identify)).Post("/refresh", h.refresh)
	})
	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Leaderboard ranks the current dataset. A store failure is logged and
// yields an empty list.
func (h *Handler) Leaderboard(ctx context.Context, key ranking.Key, order ranking.Order) LeaderboardResponse {
	return LeaderboardResponse{
		Sort:        ranking.State{Column: key, Order: order},
		Agencies:    h.rank(ctx, key, order),
		GeneratedAt: h.now().UTC().Format(time.RFC3339),
	}
}

func (h *Handler) rank(ctx context.Context, key ranking.Key, order ranking.Order) []AgencyResponse {
	agencies, err := h.repo.ReadAll(ctx)
	h.metrics.DatasetRead(err)
	if err != nil {
		slog.Error("api: dataset unreadable, serving empty leaderboard", "err", err)
		agencies = nil
	}

	entries := ranking.Rank(agencies, key, order)
	out := make([]AgencyResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAgencyResponse(e))
	}
	return out
}

// --- route handlers ---------------------------------------------------------

// listAgencies returns GET /api/v1/agencies.
func (h *Handler) listAgencies(w http.ResponseWriter, r *http.Request) {
	key, err := ranking.ParseKey(r.URL.Query().Get("sort"))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := ranking.ParseOrder(r.URL.Query().Get("order"))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, h.rank(r.Context(), key, order))
}

// refresh handles POST /api/v1/refresh.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "request body must be a JSON object with a url field")
		return
	}

	out := h.refresher.Refresh(r.Context(), h.identify(r), req.URL)
	h.metrics.RefreshOutcome(out.Kind)

	if out.OK() {
		jsonResp(w, http.StatusOK, RefreshResponse{Message: out.Message, Scores: *out.Scores})
		return
	}
	if out.Kind == domain.KindRateLimited {
		secs := int(math.Ceil(out.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	jsonErr(w, statusFor(out.Kind), out.Message)
}

// nextSort returns GET /api/v1/sort/next?column=&current=&order=.
func (h *Handler) nextSort(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("column") == "" {
		jsonErr(w, http.StatusBadRequest, "column is required")
		return
	}
	clicked, err := ranking.ParseKey(q.Get("column"))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	current, err := ranking.ParseKey(q.Get("current"))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := ranking.ParseOrder(q.Get("order"))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, ranking.Next(ranking.State{Column: current, Order: order}, clicked))
}

// issueTokens returns GET /api/v1/tokens.
func (h *Handler) issueTokens(w http.ResponseWriter, r *http.Request) {
	id := h.identify(r)
	w.Header().Set("Cache-Control", "no-store")
	jsonResp(w, http.StatusOK, TokensResponse{
		Read:  h.tokens.Issue(auth.ScopeRead, id),
		Write: h.tokens.Issue(auth.ScopeWrite, id),
	})
}

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	agencies, err := h.repo.ReadAll(r.Context())
	resp := HealthResponse{Status: "ok", AgencyCount: len(agencies)}
	if err != nil {
		resp.Status = "degraded"
		resp.StoreError = domain.Message(err)
	}
	jsonResp(w, http.StatusOK, resp)
}

// --- helpers ----------------------------------------------------------------

// statusFor maps a refresh failure kind to its HTTP status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindUpstream:
		return http.StatusBadGateway
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Message: msg})
}

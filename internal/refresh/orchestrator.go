package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/observatoire/observatoire/internal/domain"
	"github.com/observatoire/observatoire/internal/store"
)

// Limiter is the rate-limit gate. *ratelimit.Limiter satisfies it.
type Limiter interface {
	Check(requester, subject string) (allowed bool, retryAfter time.Duration)
	Commit(requester, subject string)
}

// Fetcher audits one URL. *scraper.Client satisfies it.
type Fetcher interface {
	Configured() bool
	FetchScores(ctx context.Context, target string) (domain.ScoreBundle, error)
}

// Outcome is the structured result of one Refresh call.
type Outcome struct {
	// Stage is the last stage entered: StageDone on success, otherwise the
	// stage that failed.
	Stage Stage

	// Kind is KindNone on success.
	Kind domain.Kind

	Message string

	// Scores is set only on success.
	Scores *domain.ScoreBundle

	// RetryAfter is the remaining cooldown when Kind is KindRateLimited.
	RetryAfter time.Duration

	// Err is the underlying error, for logging.
	Err error
}

// OK reports whether the refresh completed.
func (o Outcome) OK() bool { return o.Kind == domain.KindNone && o.Stage == StageDone }

// Orchestrator sequences RateLimiter, MetricsClient and Repository for one
// refresh request.
type Orchestrator struct {
	limiter Limiter
	fetcher Fetcher
	repo    store.Repository

	now         func() time.Time
	onRefreshed func(subject string, audit domain.AuditResult)
}

// New returns an Orchestrator wired to its three collaborators.
func New(limiter Limiter, fetcher Fetcher, repo store.Repository) *Orchestrator {
	return &Orchestrator{
		limiter: limiter,
		fetcher: fetcher,
		repo:    repo,
		now:     time.Now,
	}
}

// OnRefreshed registers fn to run after each successful commit. It is
// called synchronously on the request goroutine.
func (o *Orchestrator) OnRefreshed(fn func(subject string, audit domain.AuditResult)) {
	o.onRefreshed = fn
}

// Refresh re-audits subject on behalf of requester.
func (o *Orchestrator) Refresh(ctx context.Context, requester, subject string) Outcome {
	const op = "refresh"
	subject = strings.TrimSpace(subject)
	log := slog.With("requester", requester, "url", subject)

	// Validate.
	if err := validateSubject(subject); err != nil {
		return failed(StageValidate, err)
	}

	// Rate limit.
	if allowed, retryAfter := o.limiter.Check(requester, subject); !allowed {
		err := domain.Errorf(op, domain.KindRateLimited,
			"this agency was refreshed recently; try again in %s", humanDuration(retryAfter))
		out := failed(StageRateLimit, err)
		out.RetryAfter = retryAfter
		log.Info("refresh: rate limited", "retry_after", retryAfter)
		return out
	}

	// Credentials.
	if !o.fetcher.Configured() {
		err := domain.Errorf(op, domain.KindMisconfigured, "PageSpeed API key is not configured")
		log.Error("refresh: pagespeed key missing")
		return failed(StageCredentials, err)
	}

	// Fetch.
	scores, err := o.fetcher.FetchScores(ctx, subject)
	if err != nil {
		if domain.KindOf(err) == domain.KindNone {
			err = domain.Wrap(op, domain.KindUpstream, err, "invalid response from PageSpeed Insights")
		}
		log.Warn("refresh: fetch failed", "err", err)
		return failed(StageFetch, err)
	}

	// Persist.
	audit := domain.AuditResult{Date: o.now().UTC(), Scores: scores}
	if err := o.repo.UpdateByURL(ctx, subject, audit); err != nil {
		if domain.KindOf(err) == domain.KindNone {
			err = domain.Wrap(op, domain.KindIO, err, "failed to persist agency audit")
		}
		log.Warn("refresh: persist failed", "kind", domain.KindOf(err), "err", err)
		return failed(StagePersist, err)
	}

	// Commit.
	o.limiter.Commit(requester, subject)
	if o.onRefreshed != nil {
		o.onRefreshed(subject, audit)
	}

	log.Info("refresh: agency updated",
		"performance", scores.Performance,
		"carbon", scores.HasCarbon(),
	)
	return Outcome{
		Stage:   StageDone,
		Kind:    domain.KindNone,
		Message: "Lighthouse data refreshed and updated for " + subject,
		Scores:  &scores,
	}
}

func failed(stage Stage, err error) Outcome {
	return Outcome{
		Stage:   stage,
		Kind:    domain.KindOf(err),
		Message: domain.Message(err),
		Err:     err,
	}
}

// validateSubject accepts only non-empty absolute http(s) URLs with a host.
func validateSubject(subject string) error {
	const op = "refresh.validate"
	if subject == "" {
		return domain.Errorf(op, domain.KindBadRequest, "agency URL is missing")
	}
	u, err := url.Parse(subject)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.Errorf(op, domain.KindBadRequest, "agency URL %q is not an absolute http(s) URL", subject)
	}
	return nil
}

// humanDuration renders d rounded up to the minute, or to the second under
// one minute.
func humanDuration(d time.Duration) string {
	if d < time.Minute {
		secs := int((d + time.Second - 1) / time.Second)
		if secs < 1 {
			secs = 1
		}
		return fmt.Sprintf("%ds", secs)
	}
	mins := int((d + time.Minute - 1) / time.Minute)
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh%02dm", mins/60, mins%60)
}

package healthcheck

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/observatoire/observatoire/internal/store"
)

// Service is the service name reported alongside the server-wide status.
const Service = "observatoire.Leaderboard"

// DefaultInterval is how often the repository is probed.
const DefaultInterval = 15 * time.Second

// Checker keeps the health status in step with the repository.
type Checker struct {
	repo     store.Repository
	interval time.Duration
	srv      *health.Server
	serving  bool
}

// New returns a Checker probing repo every interval. Until the first probe
// the status is NOT_SERVING.
func New(repo store.Repository, interval time.Duration) *Checker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := &Checker{repo: repo, interval: interval, srv: health.NewServer()}
	c.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return c
}

// Register attaches the health service to s.
func (c *Checker) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, c.srv)
}

// Probe reads the repository once and updates the status. It reports
// whether the repository was readable.
func (c *Checker) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.interval)
	defer cancel()

	_, err := c.repo.ReadAll(ctx)
	ok := err == nil
	if ok != c.serving {
		if ok {
			slog.Info("healthcheck: repository readable, serving")
		} else {
			slog.Warn("healthcheck: repository unreadable, not serving", "err", err)
		}
	}
	c.serving = ok

	if ok {
		c.set(healthpb.HealthCheckResponse_SERVING)
	} else {
		c.set(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return ok
}

// Run probes immediately, then on every interval until ctx is cancelled.
// On return every watcher is told the server is shutting down.
func (c *Checker) Run(ctx context.Context) {
	c.Probe(ctx)

	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			c.srv.Shutdown()
			return
		case <-t.C:
			c.Probe(ctx)
		}
	}
}

func (c *Checker) set(status healthpb.HealthCheckResponse_ServingStatus) {
	c.srv.SetServingStatus("", status)
	c.srv.SetServingStatus(Service, status)
}

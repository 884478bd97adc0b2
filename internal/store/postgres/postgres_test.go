package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/observatoire/observatoire/internal/domain"
)

// connect returns a migrated store against OBSERVATOIRE_TEST_POSTGRES, or
// skips the test when the variable is unset.
func connect(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("OBSERVATOIRE_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("OBSERVATOIRE_TEST_POSTGRES not set")
	}
	ctx := context.Background()
	s, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `TRUNCATE agencies RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func TestStore_SeedReadUpdate(t *testing.T) {
	s := connect(t)
	ctx := context.Background()

	n, err := s.Seed(ctx, []domain.Agency{
		{Name: "Zeta", URL: "https://zeta.test"},
		{Name: "Alpha", URL: "https://alpha.test"},
	})
	if err != nil || n != 2 {
		t.Fatalf("Seed: n=%d err=%v", n, err)
	}
	if n, _ := s.Seed(ctx, []domain.Agency{{Name: "dup", URL: "https://zeta.test"}}); n != 0 {
		t.Errorf("re-seed inserted %d, want 0", n)
	}

	audit := domain.AuditResult{
		Date:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Scores: domain.ScoreBundle{Performance: 88.5, Accessibility: 90, BestPractices: 100, SEO: 91, CarbonCleanerThanPercent: domain.Float(64)},
	}
	if err := s.UpdateByURL(ctx, "https://alpha.test", audit); err != nil {
		t.Fatalf("UpdateByURL: %v", err)
	}

	got, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Zeta" || got[1].Name != "Alpha" {
		t.Fatalf("ReadAll order: %+v", got)
	}
	if got[0].LatestAudit != nil {
		t.Error("Zeta: unexpected audit")
	}
	a := got[1].LatestAudit
	if a == nil || a.Scores.Performance != 88.5 || !a.Date.Equal(audit.Date) {
		t.Errorf("Alpha audit: %+v", a)
	}
}

func TestStore_UpdateUnknown(t *testing.T) {
	s := connect(t)
	err := s.UpdateByURL(context.Background(), "https://missing.test", domain.AuditResult{})
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("got %v, want not_found", err)
	}
}

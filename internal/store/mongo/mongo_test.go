package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/observatoire/observatoire/internal/domain"
)

// connect returns a store on a scratch collection of the server named by
// OBSERVATOIRE_TEST_MONGO, or skips the test when the variable is unset.
func connect(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("OBSERVATOIRE_TEST_MONGO")
	if uri == "" {
		t.Skip("OBSERVATOIRE_TEST_MONGO not set")
	}
	ctx := context.Background()
	coll := fmt.Sprintf("agencies_test_%d", time.Now().UnixNano())
	s, err := Connect(ctx, uri, "observatoire_test", coll)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		_ = s.agencies.Drop(context.Background())
		_ = s.Close(context.Background())
	})
	return s
}

func TestStore_SeedReadUpdate(t *testing.T) {
	s := connect(t)
	ctx := context.Background()

	n, err := s.Seed(ctx, []domain.Agency{
		{Name: "Zeta", URL: "https://zeta.test"},
		{Name: "Alpha", URL: "https://alpha.test"},
		{Name: "dup", URL: "https://zeta.test"},
	})
	if err != nil || n != 2 {
		t.Fatalf("Seed: n=%d err=%v", n, err)
	}

	audit := domain.AuditResult{
		Date:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Scores: domain.ScoreBundle{Performance: 42, Accessibility: 90, BestPractices: 100, SEO: 91, CarbonGramsPerView: domain.Float(0.21)},
	}
	if err := s.UpdateByURL(ctx, "https://zeta.test", audit); err != nil {
		t.Fatalf("UpdateByURL: %v", err)
	}

	got, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Zeta" || got[1].Name != "Alpha" {
		t.Fatalf("ReadAll order: %+v", got)
	}
	a := got[0].LatestAudit
	if a == nil || a.Scores.Performance != 42 || a.Scores.CarbonGramsPerView == nil || *a.Scores.CarbonGramsPerView != 0.21 {
		t.Errorf("Zeta audit: %+v", a)
	}
	if a.Scores.CarbonCleanerThanPercent != nil {
		t.Error("cleanerThan: expected absent")
	}
}

func TestStore_UpdateUnknownInsertsNothing(t *testing.T) {
	s := connect(t)
	ctx := context.Background()

	err := s.UpdateByURL(ctx, "https://missing.test", domain.AuditResult{})
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("got %v, want not_found", err)
	}
	n, err := s.agencies.CountDocuments(ctx, bson.D{})
	if err != nil || n != 0 {
		t.Errorf("documents after unknown update: %d, %v", n, err)
	}
}

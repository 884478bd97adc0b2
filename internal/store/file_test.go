package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/observatoire/observatoire/internal/domain"
)

const seed = `[
    {
        "name": "Agence A",
        "url": "https://a.test"
    },
    {
        "name": "Agence B",
        "url": "https://b.test",
        "latestAudit": {
            "date": "2025-11-02T08:30:00.000Z",
            "scores": {
                "performance": 71,
                "accessibility": 88,
                "best-practices": 96,
                "seo": 92,
                "carbon": 0.31,
                "carbonCleanerThan": 76,
                "psiReportUrl": "https://pagespeed.web.dev/report?url=https%3A%2F%2Fb.test",
                "faviconUrl": "https://t1.gstatic.com/faviconV2?url=https%3A%2F%2Fb.test"
            }
        }
    }
]`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "lighthouse-results.json")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return p
}

func sampleAudit() domain.AuditResult {
	return domain.AuditResult{
		Date: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		Scores: domain.ScoreBundle{
			Performance: 90, Accessibility: 80, BestPractices: 100, SEO: 70,
			ReportURL: "https://pagespeed.web.dev/report?url=https%3A%2F%2Fa.test",
		},
	}
}

func TestReadAll_MissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	got, err := s.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ReadAll: got %v, want empty non-nil slice", got)
	}
}

func TestReadAll_EmptyFile(t *testing.T) {
	s := NewFileStore(writeSeed(t, "  \n"))
	got, err := s.ReadAll(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("ReadAll: got %v, %v", got, err)
	}
}

func TestReadAll_StorageOrderAndFields(t *testing.T) {
	s := NewFileStore(writeSeed(t, seed))
	got, err := s.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len: got %d, want 2", len(got))
	}
	if got[0].URL != "https://a.test" || got[0].LatestAudit != nil {
		t.Errorf("agency[0]: got %+v", got[0])
	}
	b := got[1].LatestAudit
	if b == nil {
		t.Fatal("agency[1]: latestAudit missing")
	}
	if b.Scores.BestPractices != 96 {
		t.Errorf("best-practices: got %v, want 96", b.Scores.BestPractices)
	}
	if b.Scores.CarbonCleanerThanPercent == nil || *b.Scores.CarbonCleanerThanPercent != 76 {
		t.Errorf("carbonCleanerThan: got %v, want 76", b.Scores.CarbonCleanerThanPercent)
	}
	if !b.Date.Equal(time.Date(2025, 11, 2, 8, 30, 0, 0, time.UTC)) {
		t.Errorf("date: got %v", b.Date)
	}
}

func TestReadAll_Corrupt(t *testing.T) {
	s := NewFileStore(writeSeed(t, "{not json"))
	_, err := s.ReadAll(context.Background())
	if !domain.IsKind(err, domain.KindIO) {
		t.Fatalf("ReadAll corrupt: got %v, want io_error", err)
	}
}

func TestUpdateByURL_ReplacesAudit(t *testing.T) {
	p := writeSeed(t, seed)
	s := NewFileStore(p)
	ctx := context.Background()

	if err := s.UpdateByURL(ctx, "https://a.test", sampleAudit()); err != nil {
		t.Fatalf("UpdateByURL: %v", err)
	}

	got, err := NewFileStore(p).ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if got[0].Name != "Agence A" || got[1].Name != "Agence B" {
		t.Errorf("storage order changed: %q, %q", got[0].Name, got[1].Name)
	}
	a := got[0].LatestAudit
	if a == nil {
		t.Fatal("latestAudit not written")
	}
	if a.Scores.Performance != 90 || a.Scores.SEO != 70 {
		t.Errorf("scores: got %+v", a.Scores)
	}
	if a.Scores.CarbonGramsPerView != nil || a.Scores.CarbonCleanerThanPercent != nil {
		t.Error("carbon: expected absent")
	}
	if got[1].LatestAudit == nil || got[1].LatestAudit.Scores.Performance != 71 {
		t.Error("other agency's audit was disturbed")
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Dir(p))
	if len(entries) != 1 {
		t.Errorf("dir entries: got %d, want 1", len(entries))
	}
}

func TestUpdateByURL_ReplacesWholesale(t *testing.T) {
	p := writeSeed(t, seed)
	s := NewFileStore(p)
	ctx := context.Background()

	// Agency B had carbon data; a new audit without carbon must clear it.
	if err := s.UpdateByURL(ctx, "https://b.test", sampleAudit()); err != nil {
		t.Fatalf("UpdateByURL: %v", err)
	}
	got, _ := s.ReadAll(ctx)
	if got[1].LatestAudit.Scores.CarbonGramsPerView != nil {
		t.Error("carbon survived a wholesale replace")
	}
}

func TestUpdateByURL_UnknownLeavesFileUntouched(t *testing.T) {
	p := writeSeed(t, seed)
	before, _ := os.ReadFile(p)

	s := NewFileStore(p)
	for _, u := range []string{"https://c.test", "https://a.test/", "http://a.test", "HTTPS://A.TEST"} {
		err := s.UpdateByURL(context.Background(), u, sampleAudit())
		if !domain.IsKind(err, domain.KindNotFound) {
			t.Errorf("%s: got %v, want not_found", u, err)
		}
	}

	after, _ := os.ReadFile(p)
	if !bytes.Equal(before, after) {
		t.Error("file changed after NotFound updates")
	}
}

func TestUpdateByURL_MissingFileIsNotFound(t *testing.T) {
	p := filepath.Join(t.TempDir(), "absent.json")
	err := NewFileStore(p).UpdateByURL(context.Background(), "https://a.test", sampleAudit())
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("got %v, want not_found", err)
	}
	if _, statErr := os.Stat(p); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("update on missing file created it")
	}
}

func TestUpdateByURL_WriteFailure(t *testing.T) {
	p := writeSeed(t, seed)
	before, _ := os.ReadFile(p)

	s := NewFileStore(p)
	s.rename = func(_, _ string) error { return errors.New("permission denied") }

	err := s.UpdateByURL(context.Background(), "https://a.test", sampleAudit())
	if !domain.IsKind(err, domain.KindIO) {
		t.Fatalf("got %v, want io_error", err)
	}

	after, _ := os.ReadFile(p)
	if !bytes.Equal(before, after) {
		t.Error("file changed after failed write")
	}
	entries, _ := os.ReadDir(filepath.Dir(p))
	if len(entries) != 1 {
		t.Errorf("temp file not cleaned up: %d entries", len(entries))
	}
}

func TestUpdateByURL_CorruptFileIsIOError(t *testing.T) {
	p := writeSeed(t, "[{]")
	err := NewFileStore(p).UpdateByURL(context.Background(), "https://a.test", sampleAudit())
	if !domain.IsKind(err, domain.KindIO) {
		t.Fatalf("got %v, want io_error", err)
	}
}

func TestUpdateByURL_ConcurrentDifferentAgencies(t *testing.T) {
	var agencies []domain.Agency
	for i := 0; i < 20; i++ {
		agencies = append(agencies, domain.Agency{Name: fmt.Sprintf("A%d", i), URL: fmt.Sprintf("https://a%d.test", i)})
	}
	p := filepath.Join(t.TempDir(), "data.json")
	s := NewFileStore(p)
	ctx := context.Background()
	if _, err := s.Seed(ctx, agencies); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	var wg sync.WaitGroup
	for _, a := range agencies {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			if err := s.UpdateByURL(ctx, url, sampleAudit()); err != nil {
				t.Errorf("UpdateByURL %s: %v", url, err)
			}
		}(a.URL)
	}
	wg.Wait()

	got, _ := s.ReadAll(ctx)
	for _, a := range got {
		if a.LatestAudit == nil {
			t.Errorf("%s: update lost", a.URL)
		}
	}
}

func TestSeed_SkipsExisting(t *testing.T) {
	s := NewFileStore(writeSeed(t, seed))
	ctx := context.Background()
	n, err := s.Seed(ctx, []domain.Agency{
		{Name: "dup", URL: "https://a.test"},
		{Name: "Agence C", URL: "https://c.test"},
		{Name: "no url"},
	})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if n != 1 {
		t.Errorf("inserted: got %d, want 1", n)
	}
	got, _ := s.ReadAll(ctx)
	if len(got) != 3 || got[2].URL != "https://c.test" || got[0].Name != "Agence A" {
		t.Errorf("after seed: %+v", got)
	}
}

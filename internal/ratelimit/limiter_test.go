package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

const (
	ip  = "203.0.113.7"
	url = "https://a.test"
)

func TestCheck_EmptyAllows(t *testing.T) {
	l := New(time.Hour)
	ok, wait := l.Check(ip, url)
	if !ok || wait != 0 {
		t.Fatalf("Check on empty limiter: got (%v, %v), want (true, 0)", ok, wait)
	}
}

func TestCheck_DoesNotLock(t *testing.T) {
	l := New(time.Hour)
	l.Check(ip, url)
	if ok, _ := l.Check(ip, url); !ok {
		t.Fatal("second Check without Commit: expected allowed")
	}
	if l.Count() != 0 {
		t.Errorf("Count: got %d, want 0", l.Count())
	}
}

func TestCommit_BlocksUntilExpiry(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	l := New(time.Hour)
	l.now = fixedClock(base)
	l.Commit(ip, url)

	l.now = fixedClock(base.Add(20 * time.Minute))
	ok, wait := l.Check(ip, url)
	if ok {
		t.Fatal("Check inside cooldown: expected denied")
	}
	if wait != 40*time.Minute {
		t.Errorf("retryAfter: got %v, want 40m", wait)
	}

	l.now = fixedClock(base.Add(time.Hour))
	if ok, _ := l.Check(ip, url); !ok {
		t.Fatal("Check at expiry: expected allowed")
	}
	if l.Count() != 0 {
		t.Errorf("lazy expiry: Count got %d, want 0", l.Count())
	}
}

func TestCommit_ScopedToRequesterAndSubject(t *testing.T) {
	l := New(time.Hour)
	l.Commit(ip, url)

	if ok, _ := l.Check("198.51.100.1", url); !ok {
		t.Error("other requester: expected allowed")
	}
	if ok, _ := l.Check(ip, "https://b.test"); !ok {
		t.Error("other subject: expected allowed")
	}
	if ok, _ := l.Check(ip, url); ok {
		t.Error("same pair: expected denied")
	}
}

func TestKey_Distinct(t *testing.T) {
	if Key(ip, url) == Key(ip, url+"/") {
		t.Error("trailing slash must produce a different key")
	}
	if len(Key(ip, url)) != 64 {
		t.Errorf("key length: got %d, want 64 hex chars", len(Key(ip, url)))
	}
}

func TestSetCooldown(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	l := New(time.Hour)
	l.now = fixedClock(base)
	l.SetCooldown(10 * time.Minute)
	l.SetCooldown(0) // ignored
	if l.Cooldown() != 10*time.Minute {
		t.Fatalf("Cooldown: got %v, want 10m", l.Cooldown())
	}
	l.Commit(ip, url)
	l.now = fixedClock(base.Add(11 * time.Minute))
	if ok, _ := l.Check(ip, url); !ok {
		t.Error("after shortened cooldown: expected allowed")
	}
}

func TestNew_DefaultCooldown(t *testing.T) {
	if got := New(0).Cooldown(); got != DefaultCooldown {
		t.Errorf("Cooldown: got %v, want %v", got, DefaultCooldown)
	}
}

func TestEvict(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	l := New(time.Hour)

	l.now = fixedClock(base.Add(-2 * time.Hour))
	l.Commit(ip, "https://old.test")
	l.now = fixedClock(base)
	l.Commit(ip, "https://new.test")

	if n := l.Evict(base); n != 1 {
		t.Errorf("Evict: removed %d, want 1", n)
	}
	if l.Count() != 1 {
		t.Errorf("Count after Evict: got %d, want 1", l.Count())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	l := New(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConcurrentAccess(t *testing.T) {
	l := New(time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			subject := url
			if i%2 == 0 {
				subject = "https://b.test"
			}
			l.Check(ip, subject)
			l.Commit(ip, subject)
		}(i)
	}
	wg.Wait()
	if l.Count() != 2 {
		t.Errorf("Count: got %d, want 2", l.Count())
	}
}

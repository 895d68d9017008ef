package trustlist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/phishguard/internal/logger"
	"github.com/jonesrussell/phishguard/internal/snapshot"
)

func newTestCache(t *testing.T) *snapshot.Cache {
	t.Helper()
	cache, err := snapshot.New(t.TempDir())
	if err != nil {
		t.Fatalf("snapshot.New() error = %v", err)
	}
	return cache
}

// unthrottle removes the fetch rate limit so tests can refresh repeatedly.
func unthrottle(p *provider) {
	p.limiter = rate.NewLimiter(rate.Inf, 1)
}

func TestPeriodKey(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC), "2026_07"},
		{time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC), "2025_12"},
		{time.Date(2025, time.March, 31, 23, 59, 0, 0, time.UTC), "2025_02"},
	}
	for _, tt := range tests {
		if got := PeriodKey(tt.now); got != tt.want {
			t.Errorf("PeriodKey(%s) = %q, want %q", tt.now.Format(time.DateOnly), got, tt.want)
		}
	}
}

func TestTrustRefreshAndContains(t *testing.T) {
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		if got := r.URL.Query().Get("period"); got == "" {
			t.Errorf("missing period query parameter")
		}
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Errorf("limit = %q, want %q", got, "100")
		}
		json.NewEncoder(w).Encode([]string{
			"https://example.com",
			"HTTP://Bank.com",
			"not a url \x7f",
		})
	}))
	defer srv.Close()

	trust := NewTrust(TrustConfig{FeedURL: srv.URL, TopN: 100}, newTestCache(t), logger.NewNop(), nil)
	unthrottle(trust.provider)

	if trust.Ready() {
		t.Error("provider ready before first refresh")
	}
	if err := trust.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if !trust.Ready() {
		t.Error("provider not ready after refresh")
	}

	// Origin-scoped: any path on a trusted origin matches.
	if !trust.Contains("https://www.example.com/some/path?x=1") {
		t.Error("trusted origin's URL not matched")
	}
	if !trust.Contains("bank.com") {
		t.Error("scheme-upgraded origin not matched")
	}
	if trust.Contains("https://www.evil.com/") {
		t.Error("unknown origin matched")
	}

	// A second refresh within the max age serves from the cache.
	if err := trust.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("feed fetched %d times, want 1", got)
	}
}

func TestTrustServesAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]string{"https://example.com"})
	}))
	defer srv.Close()

	cache, err := snapshot.New(dir)
	if err != nil {
		t.Fatalf("snapshot.New() error = %v", err)
	}
	trust := NewTrust(TrustConfig{FeedURL: srv.URL}, cache, logger.NewNop(), nil)
	unthrottle(trust.provider)
	if err := trust.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	srv.Close()

	// New cache and provider over the same directory: the persisted
	// snapshot must serve without touching the dead feed.
	cache2, err := snapshot.New(dir)
	if err != nil {
		t.Fatalf("snapshot.New() error = %v", err)
	}
	trust2 := NewTrust(TrustConfig{FeedURL: srv.URL}, cache2, logger.NewNop(), nil)
	unthrottle(trust2.provider)
	if err := trust2.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() after restart error = %v", err)
	}
	if !trust2.Contains("https://example.com/") {
		t.Error("persisted snapshot not serving after restart")
	}
}

func TestBlockRefreshAndContains(t *testing.T) {
	feed := "https://evil.com/login\n\nhttp://phish.net/verify?b=2&a=1\nhttps://extra.com/1\nhttps://extra.com/2\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	block := NewBlock(BlockConfig{FeedURL: srv.URL, MaxEntries: 2}, newTestCache(t), logger.NewNop(), nil)
	unthrottle(block.provider)
	if err := block.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if got := block.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2 (max entries)", got)
	}
	if !block.Contains("https://www.evil.com/login") {
		t.Error("blocked URL not matched")
	}
	// Full-URL scoped: a different path on the same host is not blocked.
	if block.Contains("https://www.evil.com/") {
		t.Error("unblocked path on a blocked host matched")
	}
	// Query order must not matter.
	if !block.Contains("http://phish.net/verify?a=1&b=2") {
		t.Error("query-reordered blocked URL not matched")
	}
	// Entries past the cap are dropped.
	if block.Contains("https://www.extra.com/1") {
		t.Error("entry past the max entries cap matched")
	}
}

func TestRefreshFailureKeepsServingStale(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			// Non-retryable status keeps the test fast.
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "https://evil.com/login\n")
	}))
	defer srv.Close()

	cache := newTestCache(t)
	block := NewBlock(BlockConfig{FeedURL: srv.URL}, cache, logger.NewNop(), nil)
	unthrottle(block.provider)
	if err := block.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	// Force the next refresh to hit the now-failing feed.
	fail.Store(true)
	block.maxAgeDays = 0

	if err := block.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error from failing feed")
	}
	if !block.Contains("https://www.evil.com/login") {
		t.Error("stale snapshot stopped serving after failed refresh")
	}
}

func TestRefreshColdFeedDownFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	trust := NewTrust(TrustConfig{FeedURL: srv.URL}, newTestCache(t), logger.NewNop(), nil)
	unthrottle(trust.provider)
	if err := trust.Refresh(context.Background()); err == nil {
		t.Fatal("expected error for cold cache with unreachable feed")
	}
	if trust.Ready() {
		t.Error("provider ready with nothing to serve")
	}
	if trust.Contains("https://www.example.com/") {
		t.Error("cold provider matched a URL")
	}
}

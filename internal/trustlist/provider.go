// Package trustlist provides the two bulk list providers backing the
// evaluation pipeline: the global trust list of high-traffic origins and
// the phishing block list. Both canonicalize their raw entries and store
// them as period-keyed snapshots; lookups always serve from the snapshot
// in memory, so a failed refresh degrades to stale data instead of
// failing requests.
package trustlist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/phishguard/internal/logger"
	"github.com/jonesrussell/phishguard/internal/snapshot"
	"github.com/jonesrussell/phishguard/internal/telemetry"
)

const (
	defaultMaxAgeDays   = 30
	defaultFetchTimeout = 30 * time.Second
	fetchAttempts       = 5
	retryBaseDelay      = time.Second

	userAgent = "phishguard/1.0"
)

// PeriodKey returns the snapshot bucket for now: the previous month as
// "YYYY_MM". Aggregate datasets publish a month in arrears, so the
// previous month is the newest complete period.
func PeriodKey(now time.Time) string {
	prev := now.AddDate(0, -1, 0)
	return prev.Format("2006_01")
}

// fetchFunc pulls raw entries and source metadata for a period key.
type fetchFunc func(ctx context.Context, key string) ([]string, map[string]string, error)

// provider holds the refresh and lookup machinery shared by both lists.
type provider struct {
	name       string
	cache      *snapshot.Cache
	maxAgeDays int
	client     *http.Client
	limiter    *rate.Limiter
	log        logger.Logger
	telemetry  *telemetry.Provider

	// refreshMu serializes refreshes; lookups read serving lock-free.
	refreshMu sync.Mutex
	serving   atomic.Pointer[snapshot.Snapshot]
}

func newProvider(name string, cache *snapshot.Cache, maxAgeDays int, log logger.Logger, tp *telemetry.Provider) *provider {
	if maxAgeDays <= 0 {
		maxAgeDays = defaultMaxAgeDays
	}
	return &provider{
		name:       name,
		cache:      cache,
		maxAgeDays: maxAgeDays,
		client:     &http.Client{Timeout: defaultFetchTimeout},
		limiter:    rate.NewLimiter(rate.Every(30*time.Second), 1),
		log:        log,
		telemetry:  tp,
	}
}

// snapshotContains checks entry against the serving snapshot. An empty
// entry or a provider that has never loaded matches nothing.
func (p *provider) snapshotContains(entry string) bool {
	return p.serving.Load().Contains(entry)
}

// Len returns the item count of the serving snapshot.
func (p *provider) Len() int {
	return p.serving.Load().Len()
}

// Ready reports whether a snapshot is serving lookups.
func (p *provider) Ready() bool {
	return p.serving.Load() != nil
}

// refresh brings the snapshot for key up to date. A fresh cached snapshot
// is adopted without fetching. On fetch failure the last usable snapshot,
// fresh or stale, keeps serving and the error is returned to the caller
// of the refresh, never to evaluation requests.
func (p *provider) refresh(ctx context.Context, key string, fetch fetchFunc) error {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	if !p.cache.IsExpired(key, p.maxAgeDays) {
		if snap, ok := p.cache.Get(key); ok {
			p.adopt(snap)
			return nil
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s list: rate limit wait: %w", p.name, err)
	}

	items, meta, err := fetch(ctx, key)
	if err != nil {
		p.telemetry.RecordListRefresh(p.name, "failure")
		if snap, ok := p.cache.Get(key); ok {
			p.adopt(snap)
			p.log.Warn("list refresh failed, serving stale snapshot",
				logger.String("list", p.name),
				logger.String("period", key),
				logger.Int("items", snap.Len()),
				logger.Error(err))
		}
		return fmt.Errorf("%s list: refresh %s: %w", p.name, key, err)
	}

	if err := p.cache.Put(key, items, meta); err != nil {
		p.telemetry.RecordListRefresh(p.name, "failure")
		return fmt.Errorf("%s list: store %s: %w", p.name, key, err)
	}

	snap, _ := p.cache.Get(key)
	p.adopt(snap)
	p.telemetry.RecordListRefresh(p.name, "success")
	p.log.Info("list refreshed",
		logger.String("list", p.name),
		logger.String("period", key),
		logger.Int("items", snap.Len()))
	return nil
}

func (p *provider) adopt(snap *snapshot.Snapshot) {
	p.serving.Store(snap)
	p.telemetry.SetListSnapshotSize(p.name, snap.Len())
}

// get issues a GET with retries on transport errors, 429 and 5xx, backing
// off linearly between attempts.
func (p *provider) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(time.Duration(attempt-1) * retryBaseDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, retryable, err := p.getOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		p.log.Debug("list fetch attempt failed",
			logger.String("list", p.name),
			logger.Int("attempt", attempt),
			logger.Error(err))
	}
	return nil, fmt.Errorf("after %d attempts: %w", fetchAttempts, lastErr)
}

func (p *provider) getOnce(ctx context.Context, url string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("feed returned %d", resp.StatusCode)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	return body, false, nil
}

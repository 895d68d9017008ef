package trustlist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jonesrussell/phishguard/internal/canonical"
	"github.com/jonesrussell/phishguard/internal/logger"
	"github.com/jonesrussell/phishguard/internal/snapshot"
	"github.com/jonesrussell/phishguard/internal/telemetry"
)

const defaultTrustTopN = 100000

// TrustConfig configures the global trust list provider.
type TrustConfig struct {
	// FeedURL serves the top-origins aggregate dataset. The provider
	// appends period and limit query parameters.
	FeedURL    string
	TopN       int
	MaxAgeDays int
}

// Trust serves membership checks against the global trust list: the
// highest-traffic origins for the newest complete period. Trust is
// origin-scoped, so lookups compare canonical origins.
type Trust struct {
	*provider
	feedURL string
	topN    int
}

// NewTrust creates the global trust list provider over cache.
func NewTrust(cfg TrustConfig, cache *snapshot.Cache, log logger.Logger, tp *telemetry.Provider) *Trust {
	topN := cfg.TopN
	if topN <= 0 {
		topN = defaultTrustTopN
	}
	return &Trust{
		provider: newProvider("trust", cache, cfg.MaxAgeDays, log, tp),
		feedURL:  cfg.FeedURL,
		topN:     topN,
	}
}

// Contains reports whether the URL's canonical origin is on the trust list.
func (t *Trust) Contains(rawURL string) bool {
	return t.snapshotContains(canonical.Origin(rawURL))
}

// Refresh brings the snapshot for the current period up to date.
func (t *Trust) Refresh(ctx context.Context) error {
	return t.refresh(ctx, PeriodKey(time.Now()), t.fetch)
}

// fetch pulls the origin list for the period key. The feed responds with
// a JSON array of origin strings.
func (t *Trust) fetch(ctx context.Context, key string) ([]string, map[string]string, error) {
	u, err := url.Parse(t.feedURL)
	if err != nil {
		return nil, nil, fmt.Errorf("feed url: %w", err)
	}
	q := u.Query()
	q.Set("period", key)
	q.Set("limit", strconv.Itoa(t.topN))
	u.RawQuery = q.Encode()

	body, err := t.get(ctx, u.String())
	if err != nil {
		return nil, nil, err
	}

	var origins []string
	if err := json.Unmarshal(body, &origins); err != nil {
		return nil, nil, fmt.Errorf("decode feed: %w", err)
	}

	items := make([]string, 0, len(origins))
	for _, origin := range origins {
		if canon := canonical.Origin(origin); canon != "" {
			items = append(items, canon)
		}
	}

	meta := map[string]string{
		"source":     t.feedURL,
		"period":     key,
		"fetched_at": time.Now().UTC().Format(time.RFC3339),
		"top_n":      strconv.Itoa(t.topN),
		"row_count":  strconv.Itoa(len(items)),
	}
	return items, meta, nil
}

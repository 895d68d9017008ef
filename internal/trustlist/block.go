package trustlist

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/phishguard/internal/canonical"
	"github.com/jonesrussell/phishguard/internal/logger"
	"github.com/jonesrussell/phishguard/internal/snapshot"
	"github.com/jonesrussell/phishguard/internal/telemetry"
)

const defaultBlockMaxEntries = 1000

// BlockConfig configures the phishing block list provider.
type BlockConfig struct {
	// FeedURL serves the threat feed as plain text, one URL per line,
	// newest first.
	FeedURL    string
	MaxEntries int
	MaxAgeDays int
}

// Block serves membership checks against the phishing block list. Block
// entries are full URLs, so lookups compare complete canonical forms.
type Block struct {
	*provider
	feedURL    string
	maxEntries int
}

// NewBlock creates the block list provider over cache.
func NewBlock(cfg BlockConfig, cache *snapshot.Cache, log logger.Logger, tp *telemetry.Provider) *Block {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultBlockMaxEntries
	}
	return &Block{
		provider:   newProvider("block", cache, cfg.MaxAgeDays, log, tp),
		feedURL:    cfg.FeedURL,
		maxEntries: maxEntries,
	}
}

// Contains reports whether the URL's canonical form is on the block list.
func (b *Block) Contains(rawURL string) bool {
	return b.snapshotContains(canonical.Canonicalize(rawURL))
}

// Refresh brings the snapshot for the current period up to date.
func (b *Block) Refresh(ctx context.Context) error {
	return b.refresh(ctx, PeriodKey(time.Now()), b.fetch)
}

// fetch pulls the newest maxEntries feed lines and canonicalizes them.
// Lines that fail canonicalization are dropped rather than failing the
// refresh.
func (b *Block) fetch(ctx context.Context, key string) ([]string, map[string]string, error) {
	body, err := b.get(ctx, b.feedURL)
	if err != nil {
		return nil, nil, err
	}

	items := make([]string, 0, b.maxEntries)
	for _, line := range strings.Split(string(body), "\n") {
		if len(items) >= b.maxEntries {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if canon := canonical.Canonicalize(line); canon != "" {
			items = append(items, canon)
		}
	}

	meta := map[string]string{
		"source":      b.feedURL,
		"period":      key,
		"fetched_at":  time.Now().UTC().Format(time.RFC3339),
		"max_entries": strconv.Itoa(b.maxEntries),
		"row_count":   strconv.Itoa(len(items)),
	}
	return items, meta, nil
}

// Package snapshot provides a TTL-keyed persistent store for versioned
// list snapshots. The trust list and the block list each own a Cache
// instance; the cache itself performs no network I/O, refresh is driven
// by the list providers.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Snapshot is an immutable, timestamped copy of a bulk list. Items hold
// the canonicalized form of all raw entries at capture time.
type Snapshot struct {
	Items      map[string]struct{}
	CapturedAt time.Time
	SourceMeta map[string]string
}

// Contains reports whether the canonical entry is part of the snapshot.
func (s *Snapshot) Contains(entry string) bool {
	if s == nil || entry == "" {
		return false
	}
	_, ok := s.Items[entry]
	return ok
}

// Len returns the number of items in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Items)
}

// metadata is the persisted sidecar for a snapshot, written separately so
// expiry can be checked without loading the full item set.
type metadata struct {
	CapturedAt time.Time         `json:"captured_at"`
	SourceMeta map[string]string `json:"source_meta,omitempty"`
}

// Cache is a file-backed snapshot store keyed by a coarse time bucket
// (e.g. "2026_08"). Reads are lock-free once a snapshot is in memory;
// writes replace the map entry atomically and persist via
// write-to-temp-then-rename so a concurrent reader never observes a
// partial file.
type Cache struct {
	dir string

	mu  sync.RWMutex
	mem map[string]*Snapshot
}

// New creates a Cache rooted at dir, creating the directory if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot cache: mkdir %s: %w", dir, err)
	}
	return &Cache{
		dir: dir,
		mem: make(map[string]*Snapshot),
	}, nil
}

// paths returns the data and metadata file paths for a period key.
func (c *Cache) paths(key string) (dataPath, metaPath string) {
	return filepath.Join(c.dir, key+".json"), filepath.Join(c.dir, key+".meta.json")
}

// Get returns the snapshot for key, loading it from disk on first access.
// A missing or corrupt persisted snapshot yields (nil, false): corruption
// is treated as a cold cache, never as a failure.
func (c *Cache) Get(key string) (*Snapshot, bool) {
	c.mu.RLock()
	snap, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return snap, true
	}

	snap, err := c.load(key)
	if err != nil {
		return nil, false
	}

	c.mu.Lock()
	// Another goroutine may have loaded or refreshed meanwhile; keep the
	// entry already in the map so readers observe a single instance.
	if existing, exists := c.mem[key]; exists {
		snap = existing
	} else {
		c.mem[key] = snap
	}
	c.mu.Unlock()

	return snap, true
}

// Put stores an immutable snapshot of items under key and persists it.
func (c *Cache) Put(key string, items []string, meta map[string]string) error {
	set := make(map[string]struct{}, len(items))
	ordered := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, dup := set[item]; dup {
			continue
		}
		set[item] = struct{}{}
		ordered = append(ordered, item)
	}

	snap := &Snapshot{
		Items:      set,
		CapturedAt: time.Now().UTC(),
		SourceMeta: meta,
	}

	if err := c.persist(key, ordered, snap); err != nil {
		return err
	}

	c.mu.Lock()
	c.mem[key] = snap
	c.mu.Unlock()

	return nil
}

// IsExpired reports whether the snapshot under key needs a refresh: no
// entry exists, the persisted metadata is unreadable, or the capture
// timestamp is older than maxAgeDays.
func (c *Cache) IsExpired(key string, maxAgeDays int) bool {
	maxAge := time.Duration(maxAgeDays) * 24 * time.Hour

	c.mu.RLock()
	snap, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return time.Since(snap.CapturedAt) > maxAge
	}

	_, metaPath := c.paths(key)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return true
	}

	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil || meta.CapturedAt.IsZero() {
		return true
	}

	return time.Since(meta.CapturedAt) > maxAge
}

// load reads a persisted snapshot (data + metadata) from disk.
func (c *Cache) load(key string) (*Snapshot, error) {
	dataPath, metaPath := c.paths(key)

	rawItems, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot cache: read %s: %w", dataPath, err)
	}
	var items []string
	if err := json.Unmarshal(rawItems, &items); err != nil {
		return nil, fmt.Errorf("snapshot cache: decode %s: %w", dataPath, err)
	}

	rawMeta, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot cache: read %s: %w", metaPath, err)
	}
	var meta metadata
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return nil, fmt.Errorf("snapshot cache: decode %s: %w", metaPath, err)
	}
	if meta.CapturedAt.IsZero() {
		return nil, fmt.Errorf("snapshot cache: %s missing capture timestamp", metaPath)
	}

	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item != "" {
			set[item] = struct{}{}
		}
	}

	return &Snapshot{
		Items:      set,
		CapturedAt: meta.CapturedAt,
		SourceMeta: meta.SourceMeta,
	}, nil
}

// persist writes the item list and metadata files atomically. The data
// file is written before the metadata file so a reader that sees valid
// metadata always finds the matching items.
func (c *Cache) persist(key string, items []string, snap *Snapshot) error {
	dataPath, metaPath := c.paths(key)

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("snapshot cache: encode items: %w", err)
	}
	metaJSON, err := json.Marshal(metadata{
		CapturedAt: snap.CapturedAt,
		SourceMeta: snap.SourceMeta,
	})
	if err != nil {
		return fmt.Errorf("snapshot cache: encode metadata: %w", err)
	}

	if err := writeAtomic(dataPath, itemsJSON); err != nil {
		return err
	}
	return writeAtomic(metaPath, metaJSON)
}

// writeAtomic writes content to a temp file in the target directory and
// renames it into place.
func writeAtomic(target string, content []byte) error {
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("snapshot cache: write tmp: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("snapshot cache: rename: %w", err)
	}
	return nil
}

// Package personal implements the bounded, recency-ordered trust cache of
// hosts a user has marked safe. Trust is host-scoped: entries are
// canonical hosts, not full URLs.
package personal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jonesrussell/phishguard/internal/canonical"
)

// DefaultCapacity is the bound on the number of trusted hosts.
const DefaultCapacity = 30

// Cache is a fixed-capacity set of canonical hosts ordered by recency,
// oldest first. Every mutation rewrites the persisted list atomically;
// correctness favors durability over write throughput given how rarely
// users mark sites as trusted.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	lookup   map[string]struct{}
	path     string
}

// Load opens the cache persisted at path, creating parent directories as
// needed. A persisted list is deduplicated preserving first-seen order
// and truncated to the most recent capacity entries, so a file edited
// out-of-process never violates the capacity bound. A corrupt file reads
// as an empty cache.
func Load(path string, capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("personal cache: mkdir: %w", err)
	}

	c := &Cache{
		capacity: capacity,
		lookup:   make(map[string]struct{}),
		path:     path,
	}
	c.load()
	return c, nil
}

// Add inserts the URL's canonical host as the most recent entry. An
// existing host is moved to the most recent position without changing the
// size; at capacity the least recently touched host is evicted first.
func (c *Cache) Add(rawURL string) error {
	host := canonical.Host(rawURL)
	if host == "" {
		return fmt.Errorf("personal cache: no canonical host in %q", rawURL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.lookup[host]; exists {
		c.remove(host)
		c.order = append(c.order, host)
		c.lookup[host] = struct{}{}
		return c.save()
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.lookup, oldest)
	}

	c.order = append(c.order, host)
	c.lookup[host] = struct{}{}
	return c.save()
}

// Remove deletes the URL's canonical host if present.
func (c *Cache) Remove(rawURL string) error {
	host := canonical.Host(rawURL)
	if host == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.lookup[host]; !exists {
		return nil
	}
	c.remove(host)
	delete(c.lookup, host)
	return c.save()
}

// Contains reports whether the URL's canonical host is trusted. The input
// is canonicalized the same way as on the write path.
func (c *Cache) Contains(rawURL string) bool {
	host := canonical.Host(rawURL)
	if host == "" {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.lookup[host]
	return ok
}

// All returns the trusted hosts in order, oldest first.
func (c *Cache) All() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of trusted hosts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// remove drops host from the order slice. Caller holds the write lock.
func (c *Cache) remove(host string) {
	for i, h := range c.order {
		if h == host {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// load reads the persisted list, ignoring a missing or corrupt file.
func (c *Cache) load() {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return
	}

	var persisted []string
	if err := json.Unmarshal(raw, &persisted); err != nil {
		// Corrupt file: start cold but keep it on disk for inspection.
		return
	}

	seen := make(map[string]struct{}, len(persisted))
	ordered := make([]string, 0, len(persisted))
	for _, host := range persisted {
		if host == "" {
			continue
		}
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		ordered = append(ordered, host)
	}

	// Keep the most recent entries when the file exceeds capacity.
	if len(ordered) > c.capacity {
		ordered = ordered[len(ordered)-c.capacity:]
	}

	c.order = ordered
	c.lookup = make(map[string]struct{}, len(ordered))
	for _, host := range ordered {
		c.lookup[host] = struct{}{}
	}
}

// save atomically rewrites the persisted list, oldest first. Caller holds
// the write lock.
func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.order, "", "  ")
	if err != nil {
		return fmt.Errorf("personal cache: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".trusted-*.json")
	if err != nil {
		return fmt.Errorf("personal cache: create tmp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("personal cache: write tmp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("personal cache: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("personal cache: close tmp: %w", err)
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("personal cache: rename: %w", err)
	}
	return nil
}

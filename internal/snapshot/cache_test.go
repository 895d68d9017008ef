package snapshot_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonesrussell/phishguard/internal/snapshot"
)

func TestCache_PutGetRoundTrip(t *testing.T) {
	cache := mustCache(t)

	items := []string{"https://www.example.com/", "https://www.other.org/", "https://www.example.com/"}
	meta := map[string]string{"source": "feed", "rows": "3"}

	if err := cache.Put("2026_08", items, meta); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	snap, ok := cache.Get("2026_08")
	if !ok {
		t.Fatal("Get returned no snapshot after Put")
	}

	if snap.Len() != 2 {
		t.Errorf("expected 2 deduplicated items, got %d", snap.Len())
	}
	if !snap.Contains("https://www.example.com/") {
		t.Error("snapshot missing stored item")
	}
	if snap.Contains("https://www.missing.net/") {
		t.Error("snapshot contains item that was never stored")
	}
	if snap.SourceMeta["source"] != "feed" {
		t.Errorf("expected source meta preserved, got %v", snap.SourceMeta)
	}
}

func TestCache_GetLoadsFromDisk(t *testing.T) {
	dir := t.TempDir()

	first, err := snapshot.New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if putErr := first.Put("2026_08", []string{"https://www.example.com/"}, nil); putErr != nil {
		t.Fatalf("Put failed: %v", putErr)
	}

	// A fresh cache over the same directory simulates a process restart.
	second, err := snapshot.New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	snap, ok := second.Get("2026_08")
	if !ok {
		t.Fatal("expected snapshot to load from disk")
	}
	if !snap.Contains("https://www.example.com/") {
		t.Error("loaded snapshot missing persisted item")
	}
	if snap.CapturedAt.IsZero() {
		t.Error("loaded snapshot has zero capture timestamp")
	}
}

func TestCache_MissingKey(t *testing.T) {
	cache := mustCache(t)

	if _, ok := cache.Get("1999_01"); ok {
		t.Error("Get on missing key returned a snapshot")
	}
	if !cache.IsExpired("1999_01", 30) {
		t.Error("missing key should be expired")
	}
}

func TestCache_IsExpired(t *testing.T) {
	dir := t.TempDir()
	cache, err := snapshot.New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if putErr := cache.Put("2026_08", []string{"https://www.example.com/"}, nil); putErr != nil {
		t.Fatalf("Put failed: %v", putErr)
	}
	if cache.IsExpired("2026_08", 30) {
		t.Error("fresh snapshot reported expired")
	}

	// Age the persisted metadata past the max age and check with a cold cache.
	metaPath := filepath.Join(dir, "2026_08.meta.json")
	old := map[string]any{"captured_at": time.Now().UTC().Add(-31 * 24 * time.Hour)}
	raw, marshalErr := json.Marshal(old)
	if marshalErr != nil {
		t.Fatalf("marshal aged metadata: %v", marshalErr)
	}
	if writeErr := os.WriteFile(metaPath, raw, 0o644); writeErr != nil {
		t.Fatalf("write aged metadata: %v", writeErr)
	}

	cold, err := snapshot.New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !cold.IsExpired("2026_08", 30) {
		t.Error("31-day-old snapshot should be expired at 30-day max age")
	}
}

func TestCache_CorruptMetadataIsExpired(t *testing.T) {
	dir := t.TempDir()
	cache, err := snapshot.New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if putErr := cache.Put("2026_08", []string{"https://www.example.com/"}, nil); putErr != nil {
		t.Fatalf("Put failed: %v", putErr)
	}

	metaPath := filepath.Join(dir, "2026_08.meta.json")
	if writeErr := os.WriteFile(metaPath, []byte("{not json"), 0o644); writeErr != nil {
		t.Fatalf("corrupt metadata: %v", writeErr)
	}

	cold, err := snapshot.New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !cold.IsExpired("2026_08", 30) {
		t.Error("corrupt metadata should force a refresh")
	}
	if _, ok := cold.Get("2026_08"); ok {
		t.Error("corrupt snapshot should read as cold cache, not load")
	}
}

func TestCache_ConcurrentReadersAndWriter(t *testing.T) {
	cache := mustCache(t)

	if err := cache.Put("2026_08", []string{"https://www.example.com/"}, nil); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if snap, ok := cache.Get("2026_08"); ok {
					snap.Contains("https://www.example.com/")
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 20 {
			items := []string{"https://www.example.com/", "https://www.other.org/"}
			if err := cache.Put("2026_08", items, map[string]string{"iter": string(rune('a' + i))}); err != nil {
				t.Errorf("concurrent Put failed: %v", err)
			}
		}
	}()

	wg.Wait()
}

func mustCache(t *testing.T) *snapshot.Cache {
	t.Helper()

	cache, err := snapshot.New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return cache
}

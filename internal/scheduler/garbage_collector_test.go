package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/metrics"
)

func TestGarbageCollector_Collect(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	files := map[string]time.Time{
		".news.json.123.tmp":  now.Add(-48 * time.Hour), // orphaned
		".rss.xml.456.tmp":    now.Add(-time.Hour),      // possibly in flight
		"news.json":           now.Add(-72 * time.Hour),
		"weather.json.backup": now.Add(-72 * time.Hour),
	}
	for name, mtime := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}

	reg := metrics.NewRegistry()
	gc := NewGarbageCollector(dir, logger.NewNop(), reg, time.Hour, 24*time.Hour)

	deleted, err := gc.Collect()
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 file deleted, got %d", deleted)
	}

	if _, err := os.Stat(filepath.Join(dir, ".news.json.123.tmp")); !os.IsNotExist(err) {
		t.Error("Old temp file was not removed")
	}
	for _, keep := range []string{".rss.xml.456.tmp", "news.json", "weather.json.backup"} {
		if _, err := os.Stat(filepath.Join(dir, keep)); err != nil {
			t.Errorf("%s was incorrectly removed", keep)
		}
	}
	if got := reg.Get("gc.files_removed"); got != 1 {
		t.Errorf("Expected gc.files_removed=1, got %d", got)
	}
}

func TestGarbageCollector_MissingDir(t *testing.T) {
	gc := NewGarbageCollector(filepath.Join(t.TempDir(), "nope"), logger.NewNop(), nil, 0, 0)

	deleted, err := gc.Collect()
	if err != nil || deleted != 0 {
		t.Fatalf("Expected no-op on missing dir, got %d, %v", deleted, err)
	}
	if gc.threshold != DefaultGCThreshold || gc.interval != DefaultGCInterval {
		t.Error("Defaults were not applied")
	}
}

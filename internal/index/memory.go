// Package index keeps the news file decoded in memory so API requests do not
// re-parse it on every hit.
package index

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/thewebbaby/site/internal/content"
	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/metrics"
)

// NewsIndex caches the coerced news list. The cache is keyed by the file's
// modification time and size, so an atomic replace by the build job is
// picked up on the next read.
type NewsIndex struct {
	path    string
	log     logger.Logger
	metrics *metrics.Registry

	mu         sync.RWMutex
	items      []content.Item
	byID       map[string]int
	modTime    time.Time
	size       int64
	loaded     bool
	lastReload time.Time
}

func NewNewsIndex(path string, log logger.Logger, reg *metrics.Registry) *NewsIndex {
	return &NewsIndex{
		path:    path,
		log:     log.Named("news_index"),
		metrics: reg,
		items:   []content.Item{},
		byID:    map[string]int{},
	}
}

// Path is the news file backing the index.
func (idx *NewsIndex) Path() string { return idx.path }

// Items returns the full list, newest first. The slice is shared: do not
// modify it.
func (idx *NewsIndex) Items() []content.Item {
	idx.refresh()

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.items
}

// Page returns the 1-based page of items and the number of pages. Pages past
// the end are empty; there is always at least one page.
func (idx *NewsIndex) Page(page, size int) ([]content.Item, int) {
	items := idx.Items()
	if size <= 0 {
		size = len(items)
		if size == 0 {
			size = 1
		}
	}
	if page < 1 {
		page = 1
	}

	totalPages := max(1, (len(items)+size-1)/size)
	start := (page - 1) * size
	if start >= len(items) {
		return []content.Item{}, totalPages
	}
	end := min(start+size, len(items))
	out := make([]content.Item, end-start)
	copy(out, items[start:end])
	return out, totalPages
}

// Get retrieves an item by id.
func (idx *NewsIndex) Get(id string) (content.Item, bool) {
	idx.refresh()

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	i, ok := idx.byID[id]
	if !ok {
		return content.Item{}, false
	}
	return idx.items[i], true
}

// Count returns the number of items in the index.
func (idx *NewsIndex) Count() int {
	return len(idx.Items())
}

// ModTime is the modification time of the file currently indexed.
func (idx *NewsIndex) ModTime() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.modTime
}

// GetLastReload returns when the file was last decoded.
func (idx *NewsIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.lastReload
}

// Invalidate forces the next read to decode the file again.
func (idx *NewsIndex) Invalidate() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.loaded = false
}

func (idx *NewsIndex) refresh() {
	st, statErr := os.Stat(idx.path)

	idx.mu.RLock()
	fresh := idx.loaded && statErr == nil &&
		st.ModTime().Equal(idx.modTime) && st.Size() == idx.size
	missingAgain := idx.loaded && statErr != nil && idx.modTime.IsZero()
	idx.mu.RUnlock()
	if fresh || missingAgain {
		idx.metrics.Inc("news_index.hit")
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	// Another reader may have reloaded while we waited for the lock.
	if idx.loaded && statErr == nil && st.ModTime().Equal(idx.modTime) && st.Size() == idx.size {
		return
	}
	idx.metrics.Inc("news_index.reload")

	if statErr != nil {
		if !errors.Is(statErr, fs.ErrNotExist) {
			idx.log.Error("stat news file", logger.String("path", idx.path), logger.Error(statErr))
		}
		idx.set(nil, time.Time{}, 0)
		return
	}

	docs, err := readDocs(idx.path)
	if err != nil {
		idx.metrics.Inc("news_index.error")
		idx.log.Error("failed reading news file", logger.String("path", idx.path), logger.Error(err))
		idx.set(nil, st.ModTime(), st.Size())
		return
	}
	idx.set(content.CoerceList(docs, idx.log), st.ModTime(), st.Size())
	idx.log.Debug("news index reloaded", logger.Int("items", len(idx.items)))
}

// set replaces the cached state. Caller holds the write lock.
func (idx *NewsIndex) set(items []content.Item, modTime time.Time, size int64) {
	if items == nil {
		items = []content.Item{}
	}
	idx.items = items
	idx.byID = make(map[string]int, len(items))
	for i, it := range items {
		if _, dup := idx.byID[it.ID]; !dup {
			idx.byID[it.ID] = i
		}
	}
	idx.modTime = modTime
	idx.size = size
	idx.loaded = true
	idx.lastReload = time.Now()
}

func readDocs(path string) ([]map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var docs []map[string]any
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

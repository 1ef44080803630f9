package scheduler

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/metrics"
)

const (
	// DefaultGCThreshold is the age after which an orphaned temp file is removed.
	DefaultGCThreshold = 24 * time.Hour
	// DefaultGCInterval is how often the data directory is swept.
	DefaultGCInterval = 6 * time.Hour
)

// GarbageCollector removes temp files that an interrupted atomic write left
// in the data directory.
type GarbageCollector struct {
	dir       string
	logger    logger.Logger
	metrics   *metrics.Registry
	interval  time.Duration
	threshold time.Duration
	stopCh    chan struct{}
	now       func() time.Time
}

// NewGarbageCollector creates a new garbage collector
func NewGarbageCollector(
	dir string,
	log logger.Logger,
	reg *metrics.Registry,
	interval time.Duration,
	threshold time.Duration,
) *GarbageCollector {
	if threshold == 0 {
		threshold = DefaultGCThreshold
	}
	if interval == 0 {
		interval = DefaultGCInterval
	}

	return &GarbageCollector{
		dir:       dir,
		logger:    log.Named("gc"),
		metrics:   reg,
		interval:  interval,
		threshold: threshold,
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) {
	if _, err := gc.Collect(); err != nil {
		gc.logger.Warn("initial garbage collection failed", logger.Error(err))
	}

	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := gc.Collect(); err != nil {
					gc.logger.Error("garbage collection failed", logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect deletes ".<name>.*.tmp" files older than the threshold and returns
// how many were removed. A missing directory is not an error.
func (gc *GarbageCollector) Collect() (int, error) {
	entries, err := os.ReadDir(gc.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	now := gc.now()
	deleted := 0
	for _, e := range entries {
		if e.IsDir() || !isTempFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		age := now.Sub(info.ModTime())
		if age < gc.threshold {
			continue
		}

		path := filepath.Join(gc.dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			gc.logger.Warn("failed to remove temp file",
				logger.String("path", path),
				logger.Error(err))
			continue
		}
		gc.logger.Info("garbage collected temp file",
			logger.String("path", path),
			logger.String("age", age.String()))
		deleted++
	}

	if deleted > 0 {
		gc.metrics.Add("gc.files_removed", int64(deleted))
	} else {
		gc.logger.Debug("no temp files to garbage collect")
	}
	return deleted, nil
}

func isTempFile(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp")
}

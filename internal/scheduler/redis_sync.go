package scheduler

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/thewebbaby/site/internal/content"
	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/utils"
)

// NewsSource is the mirror the syncer restores from.
type NewsSource interface {
	RecentNews(ctx context.Context, limit int) ([]content.Item, error)
}

// RedisSyncer restores the news file from the Redis mirror when a fresh
// container starts without one.
type RedisSyncer struct {
	store  NewsSource
	path   string
	limit  int
	logger logger.Logger
}

// NewRedisSyncer creates a new Redis syncer
func NewRedisSyncer(store NewsSource, path string, limit int, log logger.Logger) *RedisSyncer {
	return &RedisSyncer{
		store:  store,
		path:   path,
		limit:  limit,
		logger: log.Named("redis_sync"),
	}
}

// Sync writes mirrored news to disk if the news file is missing. It reports
// whether a file was written.
func (rs *RedisSyncer) Sync(ctx context.Context) (bool, error) {
	if _, err := os.Stat(rs.path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	rs.logger.Info("news file missing, restoring from redis", logger.String("path", rs.path))

	items, err := rs.store.RecentNews(ctx, rs.limit)
	if err != nil {
		return false, err
	}
	if len(items) == 0 {
		rs.logger.Info("no news found in redis")
		return false, nil
	}

	data, err := content.EncodeList(items)
	if err != nil {
		return false, err
	}
	if err := utils.WriteFileAtomic(rs.path, data, 0o644); err != nil {
		return false, err
	}

	rs.logger.Info("restored news from redis", logger.Int("count", len(items)))
	return true, nil
}

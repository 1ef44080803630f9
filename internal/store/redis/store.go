// Package redis mirrors build output into Redis: the latest news items and
// the last build report. Everything here is best effort for callers; the
// flat files stay the source of truth.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/thewebbaby/site/internal/content"
)

const (
	// DefaultItemTTL bounds how long a mirrored item survives without a rebuild.
	DefaultItemTTL = 48 * time.Hour
)

// Store handles Redis operations for mirrored content.
type Store struct {
	client *redis.Client
	keys   Keys
	ttl    time.Duration
}

// NewStore creates a new Redis store.
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{
		client: client,
		keys:   NewKeys(prefix),
		ttl:    DefaultItemTTL,
	}
}

// Keys exposes the key builder, mostly for tests and tooling.
func (s *Store) Keys() Keys { return s.keys }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveNews replaces the mirrored news list with items in one pipeline.
func (s *Store) SaveNews(ctx context.Context, items []content.Item) error {
	old, err := s.client.ZRange(ctx, s.keys.NewsIndex(), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read news index: %w", err)
	}

	keep := make(map[string]struct{}, len(items))
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keys.NewsIndex())

	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("failed to marshal item %s: %w", it.ID, err)
		}
		keep[it.ID] = struct{}{}
		pipe.Set(ctx, s.keys.NewsItem(it.ID), data, s.ttl)
		pipe.ZAdd(ctx, s.keys.NewsIndex(), redis.Z{Score: it.Timestamp(), Member: it.ID})
	}
	for _, id := range old {
		if _, ok := keep[id]; !ok {
			pipe.Del(ctx, s.keys.NewsItem(id))
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save news: %w", err)
	}
	return nil
}

// RecentNews returns up to limit mirrored items, newest first. Items whose
// payload expired are skipped.
func (s *Store) RecentNews(ctx context.Context, limit int) ([]content.Item, error) {
	if limit <= 0 {
		return []content.Item{}, nil
	}
	ids, err := s.client.ZRevRange(ctx, s.keys.NewsIndex(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read news index: %w", err)
	}
	if len(ids) == 0 {
		return []content.Item{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keys.NewsItem(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read news items: %w", err)
	}

	out := make([]content.Item, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var it content.Item
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			continue
		}
		out = append(out, it)
	}
	content.Sort(out)
	return out, nil
}

// NewsCount returns the number of mirrored item ids.
func (s *Store) NewsCount(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, s.keys.NewsIndex()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count news: %w", err)
	}
	return n, nil
}

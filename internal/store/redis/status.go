package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BuildStatus is the report of one build run.
type BuildStatus struct {
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Duration      time.Duration `json:"duration_ns"`
	OK            bool          `json:"ok"`
	Items         int           `json:"items"`
	SourcesOK     int           `json:"sources_ok"`
	SourcesFailed int           `json:"sources_failed"`
	Weather       bool          `json:"weather"`
	Errors        []string      `json:"errors,omitempty"`
}

// SaveBuildStatus stores the last report and bumps the outcome counter.
func (s *Store) SaveBuildStatus(ctx context.Context, st BuildStatus) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal build status: %w", err)
	}

	field := "error"
	if st.OK {
		field = "ok"
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.BuildStatus(), data, 0)
	pipe.HIncrBy(ctx, s.keys.BuildRuns(), field, 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save build status: %w", err)
	}
	return nil
}

// LastBuildStatus returns the last report, or nil when none was stored yet.
func (s *Store) LastBuildStatus(ctx context.Context) (*BuildStatus, error) {
	data, err := s.client.Get(ctx, s.keys.BuildStatus()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get build status: %w", err)
	}

	var st BuildStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal build status: %w", err)
	}
	return &st, nil
}

// BuildRuns returns how many builds succeeded and failed.
func (s *Store) BuildRuns(ctx context.Context) (ok, failed int64, err error) {
	vals, err := s.client.HGetAll(ctx, s.keys.BuildRuns()).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get build runs: %w", err)
	}
	_, _ = fmt.Sscan(vals["ok"], &ok)
	_, _ = fmt.Sscan(vals["error"], &failed)
	return ok, failed, nil
}

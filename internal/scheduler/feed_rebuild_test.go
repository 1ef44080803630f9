package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewebbaby/site/internal/build"
	"github.com/thewebbaby/site/internal/logger"
)

type countingBuilder struct {
	calls   atomic.Int32
	running atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
}

func (b *countingBuilder) Build(context.Context) build.Result {
	if b.running.Add(1) > 1 {
		b.overlap.Store(true)
	}
	time.Sleep(b.delay)
	b.running.Add(-1)
	b.calls.Add(1)
	return build.Result{OK: true, Items: 2}
}

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) Invalidate() { c.n.Add(1) }

func TestFeedRebuilderRunsOnStart(t *testing.T) {
	b := &countingBuilder{}
	inv := &countingInvalidator{}
	fr := NewFeedRebuilder(b, logger.NewNop(), "@every 1h", nil, inv)

	require.NoError(t, fr.Start(context.Background(), true))
	defer fr.Stop()

	require.Eventually(t, func() bool { return b.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return inv.n.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	res, ok := fr.LastResult()
	require.True(t, ok)
	assert.Equal(t, 2, res.Items)
}

func TestFeedRebuilderManualTrigger(t *testing.T) {
	b := &countingBuilder{}
	trigger := make(chan struct{}, 1)
	fr := NewFeedRebuilder(b, logger.NewNop(), "", trigger)
	assert.Equal(t, DefaultSchedule, fr.schedule)

	require.NoError(t, fr.Start(context.Background(), false))
	defer fr.Stop()

	_, ok := fr.LastResult()
	assert.False(t, ok)

	trigger <- struct{}{}
	require.Eventually(t, func() bool { return b.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	fr.Trigger()
	require.Eventually(t, func() bool { return b.calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestFeedRebuilderSerializesBuilds(t *testing.T) {
	b := &countingBuilder{delay: 50 * time.Millisecond}
	fr := NewFeedRebuilder(b, logger.NewNop(), "@every 1h", nil)
	require.NoError(t, fr.Start(context.Background(), true))

	for i := 0; i < 10; i++ {
		fr.Trigger()
	}
	fr.Stop()

	assert.False(t, b.overlap.Load())
	// queued requests coalesce
	assert.Less(t, b.calls.Load(), int32(10))
}

func TestFeedRebuilderInvalidSchedule(t *testing.T) {
	fr := NewFeedRebuilder(&countingBuilder{}, logger.NewNop(), "not a schedule", nil)
	assert.Error(t, fr.Start(context.Background(), false))
	fr.Stop()
}

func TestFeedRebuilderStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fr := NewFeedRebuilder(&countingBuilder{}, logger.NewNop(), "@every 1h", nil)
	require.NoError(t, fr.Start(ctx, false))

	cancel()
	select {
	case <-fr.done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit on context cancel")
	}
	fr.Stop()
}

package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/thewebbaby/site/internal/build"
	"github.com/thewebbaby/site/internal/logger"
)

// DefaultSchedule rebuilds the feeds every half hour.
const DefaultSchedule = "@every 30m"

// Builder runs one build of the content files.
type Builder interface {
	Build(ctx context.Context) build.Result
}

// Invalidator is told when the build replaced the files it caches.
type Invalidator interface {
	Invalidate()
}

// FeedRebuilder runs the build job on a cron schedule and on manual trigger.
// Builds never overlap: one worker goroutine runs them in order and requests
// arriving while a build is queued are coalesced.
type FeedRebuilder struct {
	builder       Builder
	invalidate    []Invalidator
	logger        logger.Logger
	schedule      string
	cron          *cron.Cron
	queue         chan string
	manualTrigger chan struct{}
	stopCh        chan struct{}
	done          chan struct{}
	stopOnce      sync.Once

	mu   sync.Mutex
	last *build.Result
}

// NewFeedRebuilder creates a rebuilder. An empty schedule uses DefaultSchedule.
func NewFeedRebuilder(
	builder Builder,
	log logger.Logger,
	schedule string,
	manualTrigger chan struct{},
	invalidate ...Invalidator,
) *FeedRebuilder {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &FeedRebuilder{
		builder:       builder,
		invalidate:    invalidate,
		logger:        log.Named("scheduler"),
		schedule:      schedule,
		queue:         make(chan string, 1),
		manualTrigger: manualTrigger,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start registers the schedule and starts the worker. With runNow a build
// is queued immediately.
func (fr *FeedRebuilder) Start(ctx context.Context, runNow bool) error {
	c := cron.New()
	if _, err := c.AddFunc(fr.schedule, func() { fr.enqueue("schedule") }); err != nil {
		return fmt.Errorf("invalid build schedule %q: %w", fr.schedule, err)
	}
	fr.cron = c

	go fr.loop(ctx)

	if runNow {
		fr.enqueue("startup")
	}
	c.Start()

	fr.logger.Info("feed rebuild scheduled", logger.String("schedule", fr.schedule))
	return nil
}

// Trigger queues a build without waiting for it.
func (fr *FeedRebuilder) Trigger() {
	fr.enqueue("manual")
}

// Stop halts the schedule and waits for a running build to finish.
func (fr *FeedRebuilder) Stop() {
	fr.stopOnce.Do(func() {
		if fr.cron == nil {
			return
		}
		<-fr.cron.Stop().Done()
		close(fr.stopCh)
		<-fr.done
	})
}

// LastResult returns the outcome of the latest build, if any ran.
func (fr *FeedRebuilder) LastResult() (build.Result, bool) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fr.last == nil {
		return build.Result{}, false
	}
	return *fr.last, true
}

func (fr *FeedRebuilder) enqueue(reason string) {
	select {
	case fr.queue <- reason:
	default:
		fr.logger.Debug("build already queued", logger.String("reason", reason))
	}
}

func (fr *FeedRebuilder) loop(ctx context.Context) {
	defer close(fr.done)
	for {
		select {
		case reason := <-fr.queue:
			fr.run(ctx, reason)
		case <-fr.manualTrigger:
			fr.run(ctx, "manual")
		case <-fr.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (fr *FeedRebuilder) run(ctx context.Context, reason string) {
	fr.logger.Info("rebuilding feeds", logger.String("reason", reason))

	res := fr.builder.Build(ctx)
	for _, inv := range fr.invalidate {
		inv.Invalidate()
	}

	fr.mu.Lock()
	fr.last = &res
	fr.mu.Unlock()

	if !res.OK {
		fr.logger.Error("feed rebuild failed", logger.Int("errors", len(res.Errors)))
	}
}

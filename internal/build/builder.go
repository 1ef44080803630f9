// Package build runs the out-of-band content job: ingest feeds, refresh the
// weather snapshot and publish rss.xml. Every output is written atomically so
// the web process can read the files at any time.
package build

import (
	"context"
	"fmt"
	"time"

	"github.com/thewebbaby/site/internal/bulletins"
	"github.com/thewebbaby/site/internal/content"
	"github.com/thewebbaby/site/internal/feeds"
	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/metrics"
	redisstore "github.com/thewebbaby/site/internal/store/redis"
	"github.com/thewebbaby/site/internal/syndication"
	"github.com/thewebbaby/site/internal/utils"
	"github.com/thewebbaby/site/internal/weather"
)

// Paths are the files the job reads and writes.
type Paths struct {
	News    string
	Weather string
	RSS     string
}

// Options holds what the job fetches.
type Options struct {
	Sources        []string
	LimitPerSource int
	Paths          Paths
}

// Mirror receives a copy of the build output. Implemented by the Redis store.
type Mirror interface {
	SaveNews(ctx context.Context, items []content.Item) error
	SaveBuildStatus(ctx context.Context, st redisstore.BuildStatus) error
}

// Result summarizes one run.
type Result struct {
	OK            bool
	StartedAt     time.Time
	FinishedAt    time.Time
	Items         int
	SourcesOK     int
	SourcesFailed int
	Weather       bool
	Errors        []string
}

// Duration is how long the run took.
func (r Result) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Status converts the result into the mirrored report.
func (r Result) Status() redisstore.BuildStatus {
	return redisstore.BuildStatus{
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		Duration:      r.Duration(),
		OK:            r.OK,
		Items:         r.Items,
		SourcesOK:     r.SourcesOK,
		SourcesFailed: r.SourcesFailed,
		Weather:       r.Weather,
		Errors:        r.Errors,
	}
}

type Builder struct {
	opts      Options
	ingestor  *feeds.Ingestor
	weather   *weather.Service
	bulletins *bulletins.Store
	publisher *syndication.Publisher
	mirror    Mirror
	log       logger.Logger
	metrics   *metrics.Registry
	now       func() time.Time
}

// NewBuilder wires the job. mirror may be nil.
func NewBuilder(
	opts Options,
	ingestor *feeds.Ingestor,
	weatherSvc *weather.Service,
	store *bulletins.Store,
	publisher *syndication.Publisher,
	mirror Mirror,
	log logger.Logger,
	reg *metrics.Registry,
) *Builder {
	return &Builder{
		opts:      opts,
		ingestor:  ingestor,
		weather:   weatherSvc,
		bulletins: store,
		publisher: publisher,
		mirror:    mirror,
		log:       log.Named("build_feeds"),
		metrics:   reg,
		now:       time.Now,
	}
}

// Build runs every stage in order. A failing stage is logged and counted
// but never stops the stages after it.
func (b *Builder) Build(ctx context.Context) Result {
	res := Result{StartedAt: b.now(), OK: true}
	stop := b.metrics.Time("feeds.build_duration")
	defer stop()

	fail := func(counter, format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		res.OK = false
		res.Errors = append(res.Errors, msg)
		if counter != "" {
			b.metrics.Inc(counter)
		}
		b.log.Error(msg)
	}

	var news []content.Item
	b.stage("news", fail, "feeds.news_error", func() {
		b.log.Info("fetching rss sources", logger.Int("sources", len(b.opts.Sources)))
		run := b.ingestor.Run(ctx, b.opts.Sources, b.opts.LimitPerSource)
		news = run.Items
		res.Items = len(news)
		res.SourcesOK, res.SourcesFailed = run.SourcesOK, run.SourcesFailed

		if !b.ingestor.Persist(b.opts.Paths.News, news) {
			fail("feeds.news_error", "failed to save news to %s", b.opts.Paths.News)
			return
		}
		b.log.Info("saved news", logger.String("path", b.opts.Paths.News), logger.Int("items", len(news)))

		if run.SourcesFailed > 0 && run.SourcesOK == 0 {
			fail("feeds.news_error", "all %d rss sources failed", run.SourcesFailed)
		}
	})

	var weatherItem *content.Item
	b.stage("weather", fail, "feeds.weather_error", func() {
		if !b.weather.Configured() {
			b.log.Info("weather api key not set, skipping snapshot")
			return
		}
		item, ok := b.weather.Save(ctx, b.opts.Paths.Weather)
		if !ok {
			fail("feeds.weather_error", "failed to save weather to %s", b.opts.Paths.Weather)
			return
		}
		res.Weather = true
		weatherItem = &item
		b.log.Info("saved weather", logger.String("path", b.opts.Paths.Weather))
	})

	b.stage("rss", fail, "feeds.rss_error", func() {
		list := b.bulletins.Load()

		merged := make([]content.Item, 0, len(news)+1)
		merged = append(merged, news...)
		if weatherItem != nil {
			merged = append(merged, *weatherItem)
		}
		content.Sort(merged)

		xml := b.publisher.BuildFeed(list, merged)
		if xml == "" {
			fail("feeds.rss_error", "failed to build rss xml")
			return
		}
		if err := utils.WriteFileAtomic(b.opts.Paths.RSS, []byte(xml), 0o644); err != nil {
			fail("feeds.rss_error", "failed to write rss xml: %v", err)
			return
		}
		b.log.Info("saved rss", logger.String("path", b.opts.Paths.RSS),
			logger.Int("bulletins", len(list)), logger.Int("items", len(merged)))
	})

	res.FinishedAt = b.now()
	if res.OK {
		b.metrics.Inc("feeds.build_ok")
	} else {
		b.metrics.Inc("feeds.build_error")
	}
	b.mirrorResult(ctx, news, res)

	b.log.Info("build finished",
		logger.Bool("ok", res.OK),
		logger.Int("items", res.Items),
		logger.Duration("elapsed", res.Duration()))
	return res
}

// stage runs fn and turns a panic into a stage failure.
func (b *Builder) stage(name string, fail func(counter, format string, args ...any), counter string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			fail(counter, "%s stage panicked: %v", name, r)
		}
	}()
	fn()
}

func (b *Builder) mirrorResult(ctx context.Context, news []content.Item, res Result) {
	if b.mirror == nil {
		return
	}
	if err := b.mirror.SaveNews(ctx, news); err != nil {
		b.log.Warn("failed to mirror news to redis", logger.Error(err))
	}
	if err := b.mirror.SaveBuildStatus(ctx, res.Status()); err != nil {
		b.log.Warn("failed to mirror build status to redis", logger.Error(err))
	}
}

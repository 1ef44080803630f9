package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/thewebbaby/site/internal/build"
	"github.com/thewebbaby/site/internal/bulletins"
	"github.com/thewebbaby/site/internal/cache"
	"github.com/thewebbaby/site/internal/config"
	"github.com/thewebbaby/site/internal/feeds"
	"github.com/thewebbaby/site/internal/httpserver"
	"github.com/thewebbaby/site/internal/httpserver/deps"
	"github.com/thewebbaby/site/internal/index"
	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/metrics"
	"github.com/thewebbaby/site/internal/redis"
	"github.com/thewebbaby/site/internal/scheduler"
	redisstore "github.com/thewebbaby/site/internal/store/redis"
	"github.com/thewebbaby/site/internal/syndication"
	"github.com/thewebbaby/site/internal/version"
	"github.com/thewebbaby/site/internal/weather"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	metrics     *metrics.Registry
	redisClient *goredis.Client
	store       *redisstore.Store
	newsIndex   *index.NewsIndex
	bulletins   *bulletins.Store
	weather     *weather.Service
	builder     *build.Builder
}

// New wires every component from cfg. Redis is connected only when an
// address is configured and a failing connection is fatal.
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	reg := metrics.NewRegistry()
	reg.Inc("app_starts")

	a := &App{
		cfg:       cfg,
		logger:    loggerClient,
		metrics:   reg,
		newsIndex: index.NewNewsIndex(cfg.NewsFile, loggerClient, reg),
		bulletins: bulletins.NewStore(cfg.BulletinsFile, loggerClient, reg),
		weather: weather.NewService(weather.Config{
			APIURL:  cfg.WeatherAPIURL,
			APIKey:  cfg.WeatherAPIKey,
			City:    cfg.WeatherCity,
			Timeout: cfg.WeatherTimeout,
		}, loggerClient, reg),
	}

	if cfg.RedisEnabled() {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(ctx, redis.OptionsFromConfig(cfg), loggerClient)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redisClient = client
		a.store = redisstore.NewStore(client, cfg.RedisKeyPrefix)
		loggerClient.Info("Redis initialized successfully")
	} else {
		loggerClient.Info("redis not configured, build output is not mirrored")
	}

	var mirror build.Mirror
	if a.store != nil {
		mirror = a.store
	}

	a.builder = build.NewBuilder(
		build.Options{
			Sources:        cfg.RSSSources,
			LimitPerSource: cfg.LimitPerSource,
			Paths: build.Paths{
				News:    cfg.NewsFile,
				Weather: cfg.WeatherFile,
				RSS:     cfg.RSSFile,
			},
		},
		feeds.NewIngestor(feeds.Options{
			Timeout:   cfg.FetchTimeout,
			UserAgent: cfg.UserAgent,
		}, loggerClient, reg),
		a.weather,
		a.bulletins,
		syndication.NewPublisher(cfg.BaseURL, cfg.SiteName, loggerClient, reg),
		mirror,
		loggerClient,
		reg,
	)

	return a, nil
}

// Build runs the feed build job once.
func (a *App) Build(ctx context.Context) build.Result {
	return a.builder.Build(ctx)
}

// Validate checks the bulletins file and returns every problem found.
func (a *App) Validate() []string {
	return a.bulletins.Validate()
}

// Run serves HTTP and rebuilds the feeds on schedule until SIGINT/SIGTERM.
func (a *App) Run() error {
	a.logger.Infof("🚀 Starting webbaby %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("webbaby %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// A fresh container may have lost its files; restore news from the mirror.
	if a.store != nil {
		syncer := scheduler.NewRedisSyncer(a.store, a.cfg.NewsFile, a.cfg.LimitPerSource*len(a.cfg.RSSSources), a.logger)
		if _, err := syncer.Sync(ctx); err != nil {
			a.logger.Warn("failed to restore news from redis", logger.Error(err))
		}
	}

	reloadTrigger := make(chan struct{}, 1)
	rebuilder := scheduler.NewFeedRebuilder(a.builder, a.logger, a.cfg.BuildSchedule, reloadTrigger, a.newsIndex)
	if err := rebuilder.Start(ctx, a.cfg.BuildOnStart); err != nil {
		return fmt.Errorf("failed to start feed rebuilder: %w", err)
	}

	gc := scheduler.NewGarbageCollector(a.cfg.DataDir, a.logger, a.metrics, a.cfg.GCInterval, scheduler.DefaultGCThreshold)
	gc.Start(ctx)
	a.logger.Info("garbage collector started", logger.Duration("interval", a.cfg.GCInterval))

	server := httpserver.New(a.cfg, a.logger, a.deps(reloadTrigger))

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	rebuilder.Stop()
	gc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	a.Close()
	if runErr == nil {
		a.logger.Info("✅ webbaby stopped cleanly")
	}
	return runErr
}

// Close releases the Redis connection, if any.
func (a *App) Close() {
	if a.redisClient == nil {
		return
	}
	if err := a.redisClient.Close(); err != nil {
		a.logger.Warnf("failed to close redis: %v", err)
	} else {
		a.logger.Info("✅ Redis closed cleanly")
	}
	a.redisClient = nil
}

func (a *App) deps(reloadTrigger chan struct{}) deps.Deps {
	return deps.Deps{
		Logger:            a.logger,
		Metrics:           a.metrics,
		StartTime:         time.Now(),
		Version:           version.Version,
		Commit:            version.Commit,
		BuildDate:         version.BuildDate,
		GoVersion:         version.GoVersion,
		TimeNow:           time.Now,
		AllowedHosts:      a.cfg.AllowedHosts,
		AllowedCIDRS:      a.cfg.AllowedCIDRS,
		TrustProxy:        a.cfg.TrustProxy,
		SiteName:          a.cfg.SiteName,
		NewsPageSize:      a.cfg.NewsPageSize,
		APICacheTTL:       a.cfg.APICacheTTL,
		WeatherCacheTTL:   a.cfg.WeatherCacheTTL,
		ThemeCookieName:   a.cfg.ThemeCookieName,
		ThemeCookieMaxAge: a.cfg.ThemeCookieMaxAge,
		ThemeRateLimit:    a.cfg.ThemeRateLimit,
		NewsFile:          a.cfg.NewsFile,
		WeatherFile:       a.cfg.WeatherFile,
		RSSFile:           a.cfg.RSSFile,
		News:              a.newsIndex,
		Bulletins:         a.bulletins,
		Weather:           a.weather,
		Validator:         cache.NewValidator(a.logger),
		Store:             a.store,
		ReloadTrigger:     reloadTrigger,
	}
}

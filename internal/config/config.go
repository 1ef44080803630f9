package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultRSSSources are used when RSS_SOURCES is unset.
var DefaultRSSSources = []string{
	"https://planetpython.org/rss20.xml",
	"https://hnrss.org/frontpage",
	"https://realpython.com/atom.xml",
	"https://pypi.org/rss/updates.xml",
}

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Site
	SiteName string // channel/site label
	BaseURL  string // ex: https://thewebbaby.onrender.com (no trailing slash)

	// Data files
	DataDir       string
	NewsFile      string // news.json written by the build job
	BulletinsFile string // hand-authored bulletins.yaml
	WeatherFile   string // single weather snapshot
	RSSFile       string // published rss.xml

	// Weather (OpenWeather compatible)
	WeatherAPIURL   string
	WeatherAPIKey   string // empty => weather disabled
	WeatherCity     string
	WeatherTimeout  time.Duration
	WeatherCacheTTL time.Duration

	// News feed / API
	APICacheTTL    time.Duration
	NewsPageSize   int
	RSSSources     []string
	LimitPerSource int
	FetchTimeout   time.Duration
	UserAgent      string

	// Build job
	BuildSchedule string // cron spec, ex: "@every 30m" or "*/30 * * * *"
	BuildOnStart  bool
	GCInterval    time.Duration // sweep of orphaned temp files in DataDir

	// Theme cookie
	ThemeCookieName   string
	ThemeCookieMaxAge time.Duration
	ThemeRateLimit    int // POST /api/theme requests per minute per IP

	// Redis (optional, empty addr => disabled)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts
	RedisKeyPrefix        string        // namespace for every key, ex: "webbaby:"

	AllowedHosts []string // optional, restrict operator endpoints to specific Host headers
	AllowedCIDRS []string // optional, restrict operator endpoints to specific IP (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

// LoadEnvFiles loads .env style files into the process environment. Missing
// files are skipped and variables already set are never overridden, so the
// first file listed wins.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func Load() *Config {
	if err := LoadEnvFiles(".env.local", ".env"); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	dataDir := getenv("WEBBABY_DATA_DIR", "data")

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("WEBBABY_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("WEBBABY_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("WEBBABY_LOG_LEVEL", "info"),
		PrettyLog: mustBool("WEBBABY_PRETTY_LOG", false),

		// Site
		SiteName: getenv("SITE_NAME", "thewebbaby"),
		BaseURL:  strings.TrimRight(getenv("BASE_URL", "https://thewebbaby.onrender.com"), "/"),

		// Data files
		DataDir:       dataDir,
		NewsFile:      getenv("WEBBABY_NEWS_FILE", filepath.Join(dataDir, "news.json")),
		BulletinsFile: getenv("WEBBABY_BULLETINS_FILE", filepath.Join(dataDir, "bulletins.yaml")),
		WeatherFile:   getenv("WEBBABY_WEATHER_FILE", filepath.Join(dataDir, "weather_snapshot.json")),
		RSSFile:       getenv("WEBBABY_RSS_FILE", filepath.Join(dataDir, "rss.xml")),

		// Weather
		WeatherAPIURL:   weatherAPIURL(),
		WeatherAPIKey:   strings.TrimSpace(getenv("WEATHER_API_KEY", "")),
		WeatherCity:     strings.TrimSpace(getenv("WEATHER_CITY", "New York")),
		WeatherTimeout:  mustDuration("WEBBABY_WEATHER_TIMEOUT", 12*time.Second),
		WeatherCacheTTL: mustSeconds("WEATHER_CACHE_TTL", 300*time.Second),

		// News feed / API
		APICacheTTL:    mustSeconds("API_CACHE_TTL", 300*time.Second),
		NewsPageSize:   getenvInt("NEWS_PAGE_SIZE", 12),
		RSSSources:     rssSources(),
		LimitPerSource: getenvInt("WEBBABY_LIMIT_PER_SOURCE", 30),
		FetchTimeout:   mustDuration("WEBBABY_FETCH_TIMEOUT", 15*time.Second),
		UserAgent:      getenv("WEBBABY_USER_AGENT", "WebbabyRSS/1.0 (+https://thewebbaby)"),

		// Build job
		BuildSchedule: getenv("WEBBABY_BUILD_SCHEDULE", "@every 30m"),
		BuildOnStart:  mustBool("WEBBABY_BUILD_ON_START", true),
		GCInterval:    mustDuration("WEBBABY_GC_INTERVAL", 6*time.Hour),

		// Theme cookie
		ThemeCookieName:   getenv("WEBBABY_THEME_COOKIE_NAME", "theme"),
		ThemeCookieMaxAge: mustDuration("WEBBABY_THEME_COOKIE_MAX_AGE", 365*24*time.Hour),
		ThemeRateLimit:    getenvInt("WEBBABY_THEME_RATE_LIMIT", 30),

		// Redis settings
		RedisAddr:             getenv("WEBBABY_REDIS_ADDR", ""),
		RedisUser:             getenv("WEBBABY_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("WEBBABY_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("WEBBABY_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("WEBBABY_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),
		RedisKeyPrefix:        getenv("WEBBABY_REDIS_PREFIX", "webbaby:"),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("WEBBABY_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("WEBBABY_ALLOWED_CIDRS", "127.0.0.1, ::1")),
		TrustProxy:   mustBool("WEBBABY_TRUST_PROXY", false),
	}

	// A password is only mandatory when Redis is actually in use.
	if cfg.RedisEnabled() && cfg.RedisPasswordRequired {
		cfg.RedisPassword = requireEnv("WEBBABY_REDIS_PASSWORD")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.WeatherAPIKey != "" {
			cfgCopy.WeatherAPIKey = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// RedisEnabled reports whether the optional Redis mirror is configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// Validate reports settings the site cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.SiteName == "" {
		errs = append(errs, errors.New("SITE_NAME is empty"))
	}
	if c.BaseURL == "" {
		errs = append(errs, errors.New("BASE_URL is empty"))
	}
	if c.WeatherAPIURL == "" {
		errs = append(errs, errors.New("WEATHER_API_URL is empty"))
	}
	if len(c.RSSSources) == 0 {
		errs = append(errs, errors.New("RSS_SOURCES is empty"))
	}
	if c.NewsPageSize <= 0 {
		errs = append(errs, fmt.Errorf("NEWS_PAGE_SIZE must be positive, got %d", c.NewsPageSize))
	}
	return errors.Join(errs...)
}

// weatherAPIURL honours the legacy WEATHER_PROVIDER_URL alias when
// WEATHER_API_URL is not set.
func weatherAPIURL() string {
	if v := strings.TrimSpace(os.Getenv("WEATHER_API_URL")); v != "" {
		return v
	}
	if legacy := strings.TrimSpace(os.Getenv("WEATHER_PROVIDER_URL")); legacy != "" {
		return legacy
	}
	return "https://api.openweathermap.org/data/2.5/weather"
}

func rssSources() []string {
	if list := splitAndTrim(os.Getenv("RSS_SOURCES")); len(list) > 0 {
		return list
	}
	return append([]string(nil), DefaultRSSSources...)
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// mustSeconds reads a TTL given as whole seconds ("300") or a Go duration ("5m").
func mustSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return mustDuration(key, def)
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

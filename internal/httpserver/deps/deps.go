package deps

import (
	"time"

	"github.com/thewebbaby/site/internal/bulletins"
	"github.com/thewebbaby/site/internal/cache"
	"github.com/thewebbaby/site/internal/index"
	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/metrics"
	redisstore "github.com/thewebbaby/site/internal/store/redis"
	"github.com/thewebbaby/site/internal/weather"
)

type Deps struct {
	Logger       logger.Logger
	Metrics      *metrics.Registry
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed on operator endpoints
	AllowedCIDRS []string         // IPs allowed on operator endpoints (readyz, reload, metrics)
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	SiteName          string
	NewsPageSize      int
	APICacheTTL       time.Duration
	WeatherCacheTTL   time.Duration
	ThemeCookieName   string
	ThemeCookieMaxAge time.Duration
	ThemeRateLimit    int // requests per minute per client IP on POST /api/theme

	NewsFile    string
	WeatherFile string
	RSSFile     string

	News      *index.NewsIndex  // mtime-keyed view of the news file
	Bulletins *bulletins.Store  // read fresh on every request
	Weather   *weather.Service  // cached snapshot reader
	Validator *cache.Validator  // file ETag / Last-Modified
	Store     *redisstore.Store // nil when Redis is disabled

	ReloadTrigger chan struct{} // manual feed rebuild (nil when no scheduler runs)
}

// Now returns d.TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}

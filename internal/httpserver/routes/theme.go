package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thewebbaby/site/internal/httpserver/deps"
	"github.com/thewebbaby/site/internal/httpserver/handlers"
	"github.com/thewebbaby/site/internal/httpserver/mw"
)

func init() { Register(registerTheme) }

func registerTheme(r chi.Router, d deps.Deps) {
	perMin := d.ThemeRateLimit
	if perMin <= 0 {
		perMin = 30
	}
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             perMin,
		RefillPerIPPerMin: perMin,
		MaxEntries:        10000,
		IdleTTL:           15 * time.Minute,
		TrustProxy:        d.TrustProxy,
		Metrics:           d.Metrics,
	})
	r.With(limit).Post("/api/theme", handlers.Theme(d))
}

package handlers

import (
	"net/http"

	"github.com/thewebbaby/site/internal/cache"
	"github.com/thewebbaby/site/internal/httpserver/deps"
	"github.com/thewebbaby/site/internal/logger"
)

// Weather serves the last persisted weather snapshot.
func Weather(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := d.Weather.GetCached(d.WeatherFile)
		if !ok {
			writeError(w, d, http.StatusServiceUnavailable, "Weather data unavailable")
			return
		}

		body, err := marshal(snap.Data)
		if err != nil {
			d.Logger.Error("api/weather: encode failed", logger.Error(err))
			writeError(w, d, http.StatusInternalServerError, "Internal server error")
			return
		}

		etag := quoteETag(snap.ETag)
		if etag == "" {
			etag = bodyETag(body)
		}
		lastModified := snap.LastModified
		if lastModified == "" {
			lastModified = cache.FormatHTTPDate(d.Now())
		}

		serveCacheable(w, r, d, cacheable{
			body:         body,
			contentType:  contentTypeJSON,
			etag:         etag,
			lastModified: lastModified,
			maxAge:       d.WeatherCacheTTL,
		})
		d.Metrics.Inc("api_weather")
	}
}

package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/thewebbaby/site/internal/httpserver/deps"
	"github.com/thewebbaby/site/internal/logger"
)

// RSS serves the published rss.xml as written by the build job.
func RSS(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		xml, err := os.ReadFile(d.RSSFile)
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, d, http.StatusServiceUnavailable, "RSS feed unavailable")
			return
		}
		if err != nil {
			d.Logger.Error("api/rss: read failed", logger.String("path", d.RSSFile), logger.Error(err))
			writeError(w, d, http.StatusInternalServerError, "Internal server error")
			return
		}

		digest, ok := d.Validator.HashFile(d.RSSFile)
		etag := quoteETag(digest)
		if !ok {
			etag = bodyETag(xml)
		}
		lastModified, _ := d.Validator.FileLastModified(d.RSSFile)

		serveCacheable(w, r, d, cacheable{
			body:         xml,
			contentType:  "application/rss+xml; charset=utf-8",
			etag:         etag,
			lastModified: lastModified,
			maxAge:       d.APICacheTTL,
		})
		d.Metrics.Inc("api_rss")
	}
}

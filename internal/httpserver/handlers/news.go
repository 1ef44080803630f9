package handlers

import (
	"net/http"
	"strconv"

	"github.com/thewebbaby/site/internal/cache"
	"github.com/thewebbaby/site/internal/httpserver/deps"
	"github.com/thewebbaby/site/internal/logger"
)

// News serves one page of the news feed.
func News(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if raw := r.URL.Query().Get("page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, d, http.StatusBadRequest, "Invalid page")
				return
			}
			page = n
		}

		items, totalPages := d.News.Page(page, d.NewsPageSize)
		body, err := marshal(items)
		if err != nil {
			d.Logger.Error("api/news: encode failed", logger.Error(err))
			writeError(w, d, http.StatusInternalServerError, "Internal server error")
			return
		}

		lastModified := ""
		if mt := d.News.ModTime(); !mt.IsZero() {
			lastModified = cache.FormatHTTPDate(mt)
		}

		w.Header().Set("X-Total-Pages", strconv.Itoa(totalPages))
		serveCacheable(w, r, d, cacheable{
			body:         body,
			contentType:  contentTypeJSON,
			etag:         bodyETag(body),
			lastModified: lastModified,
			maxAge:       d.APICacheTTL,
		})
		d.Metrics.Inc("api_news")
	}
}

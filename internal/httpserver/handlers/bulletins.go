package handlers

import (
	"net/http"

	"github.com/thewebbaby/site/internal/bulletins"
	"github.com/thewebbaby/site/internal/httpserver/deps"
	"github.com/thewebbaby/site/internal/logger"
)

type bulletinResponse struct {
	bulletins.Bulletin
	BodyHTML string `json:"body_html"`
}

// Bulletins serves every bulletin with its body rendered to safe HTML. The
// file is read on each request so edits show up without a rebuild.
func Bulletins(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := d.Bulletins.Load()
		out := make([]bulletinResponse, 0, len(list))
		for _, b := range list {
			if b.Tags == nil {
				b.Tags = []string{}
			}
			if b.Links == nil {
				b.Links = []bulletins.Link{}
			}
			out = append(out, bulletinResponse{Bulletin: b, BodyHTML: bulletins.RenderHTML(b.BodyMD)})
		}

		body, err := marshal(out)
		if err != nil {
			d.Logger.Error("api/bulletins: encode failed", logger.Error(err))
			writeError(w, d, http.StatusInternalServerError, "Internal server error")
			return
		}
		lastModified, _ := d.Validator.FileLastModified(d.Bulletins.Path())

		serveCacheable(w, r, d, cacheable{
			body:         body,
			contentType:  contentTypeJSON,
			etag:         bodyETag(body),
			lastModified: lastModified,
			maxAge:       d.APICacheTTL,
		})
		d.Metrics.Inc("api_bulletins")
	}
}

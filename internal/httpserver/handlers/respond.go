package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/thewebbaby/site/internal/cache"
	"github.com/thewebbaby/site/internal/httpserver/deps"
	"github.com/thewebbaby/site/internal/logger"
)

const contentTypeJSON = "application/json; charset=utf-8"

type errorResponse struct {
	Error string `json:"error"`
}

// marshal encodes v as compact JSON without HTML escaping.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, d deps.Deps, status int, msg string) {
	d.Metrics.Inc("errors")
	writeJSON(w, status, errorResponse{Error: msg})
}

// quoteETag turns a hex digest into a strong entity tag.
func quoteETag(digest string) string {
	if digest == "" {
		return ""
	}
	return `"` + digest + `"`
}

// bodyETag hashes a response body.
func bodyETag(body []byte) string {
	digest, _ := cache.HashContent(body)
	return quoteETag(digest)
}

// cacheable is a response body with its validators.
type cacheable struct {
	body         []byte
	contentType  string
	etag         string
	lastModified string
	maxAge       time.Duration
}

// serveCacheable writes validators and answers 304 when the client copy is
// still current.
func serveCacheable(w http.ResponseWriter, r *http.Request, d deps.Deps, c cacheable) {
	h := w.Header()
	if c.etag != "" {
		h.Set("ETag", c.etag)
	}
	if c.lastModified != "" {
		h.Set("Last-Modified", c.lastModified)
	}
	h.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(c.maxAge.Seconds())))

	if cache.IsNotModified(r.Header.Get("If-None-Match"), r.Header.Get("If-Modified-Since"), c.etag, c.lastModified) {
		d.Metrics.Inc("http.not_modified")
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set("Content-Type", c.contentType)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(c.body); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}

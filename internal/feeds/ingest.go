// Package feeds pulls external RSS/Atom feeds and normalizes their entries
// into content items.
package feeds

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/thewebbaby/site/internal/content"
	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/metrics"
	"github.com/thewebbaby/site/internal/utils"
)

const (
	acceptHeader = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"

	// DefaultLimitPerSource applies when a non-positive limit is requested.
	DefaultLimitPerSource = 30

	defaultTimeout  = 15 * time.Second
	defaultMaxBytes = 10 << 20
	timestampLayout = "2006-01-02T15:04:05Z"
)

// Options tunes the HTTP side of the ingestor. Zero values pick defaults.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	MaxBytes  int64
}

// Ingestor fetches feeds one after the other. A failing source never stops
// the others.
type Ingestor struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	log       logger.Logger
	metrics   *metrics.Registry
	now       func() time.Time
}

// Result is the outcome of one ingestion run.
type Result struct {
	Items         []content.Item
	SourcesOK     int
	SourcesFailed int
}

func NewIngestor(opts Options, log logger.Logger, reg *metrics.Registry) *Ingestor {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "WebbabyRSS/1.0 (+https://thewebbaby)"
	}
	return &Ingestor{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
		log:       log.Named("rss_ingest"),
		metrics:   reg,
		now:       time.Now,
	}
}

// Fetch returns the de-duplicated items of every source, newest first.
func (in *Ingestor) Fetch(ctx context.Context, sources []string, limitPerSource int) []content.Item {
	return in.Run(ctx, sources, limitPerSource).Items
}

// Run is Fetch plus per-source accounting, used by the build job to decide
// whether the whole run failed.
func (in *Ingestor) Run(ctx context.Context, sources []string, limitPerSource int) Result {
	if limitPerSource <= 0 {
		limitPerSource = DefaultLimitPerSource
	}
	defer in.metrics.Time("rss.fetch_duration")()

	res := Result{Items: []content.Item{}}
	seen := make(map[string]struct{})

	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}

		feed, err := in.fetchFeed(ctx, src)
		if err != nil {
			res.SourcesFailed++
			in.metrics.Inc("rss.sources_error")
			in.log.Error("fetch error", logger.String("url", src), logger.Error(err))
			continue
		}
		res.SourcesOK++
		in.metrics.Inc("rss.sources_ok")

		title := strings.TrimSpace(feed.Title)
		if title == "" {
			title = src
		}

		entries := feed.Items
		if len(entries) > limitPerSource {
			entries = entries[:limitPerSource]
		}
		if len(entries) == 0 {
			in.metrics.Inc("rss.sources_empty")
		}

		for _, raw := range entries {
			if raw == nil {
				in.metrics.Inc("rss.items_error")
				continue
			}
			it := in.normalize(newGofeedEntry(raw), title)
			if _, dup := seen[it.ID]; dup {
				continue
			}
			seen[it.ID] = struct{}{}
			res.Items = append(res.Items, it)
			in.metrics.Inc("rss.items_ok")
		}
	}

	content.Sort(res.Items)
	in.log.Info("ingestion complete",
		logger.Int("sources_ok", res.SourcesOK),
		logger.Int("sources_failed", res.SourcesFailed),
		logger.Int("items", len(res.Items)),
	)
	return res
}

func (in *Ingestor) fetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", in.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := in.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, in.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// normalize maps one entry onto a content item. It cannot fail: missing
// fields degrade to empty values.
func (in *Ingestor) normalize(e Entry, source string) content.Item {
	published := in.entryTimestamp(e)
	return content.New(content.Fields{
		ID:          stableID(e, source, published),
		Source:      content.Truncate(source, content.MaxSourceLen),
		Title:       content.Truncate(strings.TrimSpace(str(e, "title")), content.MaxTitleLen),
		URL:         content.Truncate(strings.TrimSpace(str(e, "link")), content.MaxURLLen),
		PublishedAt: published,
		Tags:        []string{},
		Excerpt:     excerpt(e),
		Image:       image(e),
	})
}

// entryTimestamp prefers the feed's own structured dates and falls back to now.
func (in *Ingestor) entryTimestamp(e Entry) string {
	for _, key := range []string{"published_parsed", "updated_parsed", "created_parsed"} {
		if v, ok := e.GetField(key); ok {
			if t, ok := v.(time.Time); ok {
				return t.UTC().Format(timestampLayout)
			}
		}
	}
	return in.now().UTC().Format(timestampLayout)
}

func stableID(e Entry, source, published string) string {
	if id := firstNonEmpty(str(e, "id"), str(e, "guid"), str(e, "link")); id != "" {
		return content.Truncate(id, content.MaxIDLen)
	}
	raw := source + "|" + str(e, "title") + "|" + str(e, "link") + "|" + published
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func excerpt(e Entry) string {
	txt := firstNonEmpty(str(e, "summary"), str(e, "description"))
	return content.Truncate(strings.TrimSpace(txt), content.MaxExcerptLen)
}

// image looks at media:content, media:thumbnail, image enclosures, the
// entry image and finally the first <img> of the entry HTML. The first
// absolute http(s) candidate wins.
func image(e Entry) string {
	var candidates []string
	for _, key := range []string{"media_content", "media_thumbnail"} {
		if v, ok := e.GetField(key); ok {
			if refs, ok := v.([]MediaRef); ok && len(refs) > 0 {
				candidates = append(candidates, refs[0].URL)
			}
		}
	}
	if v, ok := e.GetField("links"); ok {
		if refs, ok := v.([]LinkRef); ok {
			for _, l := range refs {
				if l.Rel == "enclosure" && strings.HasPrefix(l.Type, "image/") {
					candidates = append(candidates, l.Href)
				}
			}
		}
	}
	candidates = append(candidates, str(e, "image"))

	for _, c := range candidates {
		if u := content.ValidURL(strings.TrimSpace(c)); u != "" {
			return content.Truncate(u, content.MaxURLLen)
		}
	}

	for _, key := range []string{"summary", "description"} {
		if u := firstImage(str(e, key)); u != "" {
			return content.Truncate(u, content.MaxURLLen)
		}
	}
	return ""
}

// firstImage returns the src of the first absolute http(s) <img> in html.
func firstImage(html string) string {
	if !strings.Contains(html, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	var found string
	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if u := content.ValidURL(strings.TrimSpace(src)); u != "" {
			found = u
			return false
		}
		return true
	})
	return found
}

func str(e Entry, key string) string {
	v, ok := e.GetField(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Persist writes items as a JSON array, atomically. It reports failure
// instead of returning an error; the caller decides what it means.
func (in *Ingestor) Persist(path string, items []content.Item) bool {
	data, err := content.EncodeList(items)
	if err != nil {
		in.metrics.Inc("rss.saved_error")
		in.log.Error("encode news", logger.String("path", path), logger.Error(err))
		return false
	}

	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		in.metrics.Inc("rss.saved_error")
		in.log.Error("save news", logger.String("path", path), logger.Error(err))
		return false
	}
	in.metrics.Inc("rss.saved_ok")
	return true
}

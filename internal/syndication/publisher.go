// Package syndication renders the public RSS 2.0 document from bulletins and
// content items.
package syndication

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/thewebbaby/site/internal/bulletins"
	"github.com/thewebbaby/site/internal/content"
	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/metrics"
)

// Output caps, in characters.
const (
	maxTitle       = 512
	maxLink        = 2048
	maxGUID        = 128
	maxDescription = 500
	maxDate        = 64
	maxSiteName    = 255

	channelPath        = "/webbabyguard"
	channelDescription = "Curated tech and project bulletins"
)

type Publisher struct {
	baseURL  string
	siteName string
	log      logger.Logger
	metrics  *metrics.Registry
	now      func() time.Time
}

func NewPublisher(baseURL, siteName string, log logger.Logger, reg *metrics.Registry) *Publisher {
	return &Publisher{
		baseURL:  strings.TrimRight(baseURL, "/"),
		siteName: content.Truncate(siteName, maxSiteName),
		log:      log.Named("rss_build"),
		metrics:  reg,
		now:      time.Now,
	}
}

// BuildFeed renders bulletins followed by items, in the order given. Blank
// records are skipped. Any internal failure yields "" and never partial XML.
func (p *Publisher) BuildFeed(list []bulletins.Bulletin, items []content.Item) (out string) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.Inc("rss.build_error")
			p.log.Error("rss build panicked", logger.String("panic", sprint(r)))
			out = ""
		}
	}()

	channelLink := p.baseURL + channelPath
	feed := &feeds.RssFeed{
		Title:         p.siteName + " — Webbabyguard",
		Link:          channelLink,
		Description:   channelDescription,
		LastBuildDate: p.now().UTC().Format(http.TimeFormat),
	}

	for idx, b := range list {
		if b.ID == "" && b.Title == "" {
			p.metrics.Inc("rss.build.bulletin_invalid")
			p.log.Warn("skipping blank bulletin", logger.Int("index", idx))
			continue
		}
		published := ""
		if b.Date != "" {
			published = b.Date + "T00:00:00Z"
		}
		feed.Items = append(feed.Items, rssItem(b.Title, channelLink, b.ID, b.BodyMD, published))
	}

	for idx, it := range items {
		if it.ID == "" {
			p.metrics.Inc("rss.build.item_invalid")
			p.log.Warn("skipping item without id", logger.Int("index", idx))
			continue
		}
		feed.Items = append(feed.Items, rssItem(it.Title, it.URL, it.ID, it.Excerpt, it.PublishedAt))
	}

	xml, err := feeds.ToXML(feed)
	if err != nil {
		p.metrics.Inc("rss.build_error")
		p.log.Error("rss encode failed", logger.Error(err))
		return ""
	}
	p.metrics.Inc("rss.build_ok")
	return xml
}

func rssItem(title, link, guid, description, published string) *feeds.RssItem {
	return &feeds.RssItem{
		Title:       content.Truncate(title, maxTitle),
		Link:        content.Truncate(link, maxLink),
		Guid:        &feeds.RssGuid{Id: content.Truncate(guid, maxGUID), IsPermaLink: "false"},
		Description: content.Truncate(description, maxDescription),
		PubDate:     content.Truncate(pubDate(published), maxDate),
	}
}

// pubDate converts a stored published date to RFC 1123 in GMT. Values that do
// not parse are passed through unchanged.
func pubDate(published string) string {
	if published == "" {
		return ""
	}
	if t, ok := content.ParseTime(published); ok {
		return t.Format(http.TimeFormat)
	}
	return published
}

func sprint(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}

package feeds

import (
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// Entry is the narrow view the ingestor needs of a parsed feed entry.
//
// Known fields: "id", "guid", "title", "link", "summary", "description"
// (strings), "published_parsed", "updated_parsed", "created_parsed"
// (time.Time), "media_content", "media_thumbnail" ([]MediaRef), "links"
// ([]LinkRef) and "image" (string).
type Entry interface {
	GetField(name string) (any, bool)
}

// MediaRef is one Media RSS content or thumbnail reference.
type MediaRef struct {
	URL string
}

// LinkRef is one link attached to an entry.
type LinkRef struct {
	Rel  string
	Type string
	Href string
}

// gofeedEntry adapts *gofeed.Item to Entry.
type gofeedEntry struct {
	item *gofeed.Item
}

func newGofeedEntry(item *gofeed.Item) Entry {
	return gofeedEntry{item: item}
}

func (e gofeedEntry) GetField(name string) (any, bool) {
	it := e.item
	if it == nil {
		return nil, false
	}
	switch name {
	case "id", "guid":
		return nonEmpty(it.GUID)
	case "title":
		return nonEmpty(it.Title)
	case "link":
		return nonEmpty(it.Link)
	case "summary":
		return nonEmpty(it.Description)
	case "description":
		return nonEmpty(it.Content)
	case "published_parsed":
		return timeField(it.PublishedParsed)
	case "updated_parsed":
		return timeField(it.UpdatedParsed)
	case "media_content":
		return mediaField(it.Extensions, "content")
	case "media_thumbnail":
		return mediaField(it.Extensions, "thumbnail")
	case "links":
		return linksField(it)
	case "image":
		if it.Image != nil {
			return nonEmpty(it.Image.URL)
		}
	}
	return nil, false
}

func nonEmpty(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	return s, true
}

func timeField(t *time.Time) (any, bool) {
	if t == nil || t.IsZero() {
		return nil, false
	}
	return *t, true
}

// mediaField collects media:<kind> urls, including those nested in media:group.
func mediaField(exts ext.Extensions, kind string) (any, bool) {
	media, ok := exts["media"]
	if !ok {
		return nil, false
	}

	var refs []MediaRef
	collect := func(list []ext.Extension) {
		for _, m := range list {
			if u := m.Attrs["url"]; u != "" {
				refs = append(refs, MediaRef{URL: u})
			}
		}
	}
	collect(media[kind])
	for _, g := range media["group"] {
		collect(g.Children[kind])
	}

	if len(refs) == 0 {
		return nil, false
	}
	return refs, true
}

func linksField(it *gofeed.Item) (any, bool) {
	var refs []LinkRef
	for _, enc := range it.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		refs = append(refs, LinkRef{Rel: "enclosure", Type: enc.Type, Href: enc.URL})
	}
	for _, l := range it.Links {
		if l != "" {
			refs = append(refs, LinkRef{Rel: "alternate", Href: l})
		}
	}
	if len(refs) == 0 {
		return nil, false
	}
	return refs, true
}

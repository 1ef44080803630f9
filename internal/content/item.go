// Package content defines Item, the canonical normalized record shared by the
// news feed, bulletins and the weather snapshot.
//
// Construction never fails: oversized fields are truncated, invalid URLs are
// dropped and unparsable dates are kept verbatim with a zero timestamp.
package content

import (
	"bytes"
	"cmp"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"
)

// Item is one piece of syndicated content. Build it with New or FromMap.
type Item struct {
	ID          string
	Source      string
	Title       string
	URL         string
	PublishedAt string
	Tags        []string
	Excerpt     string
	Image       string

	ts float64
}

// Fields is the raw, untrusted input to New.
type Fields struct {
	ID          string
	Source      string
	Title       string
	URL         string
	PublishedAt string
	Tags        []string
	Excerpt     string
	Image       string
}

// New normalizes f into an Item.
func New(f Fields) Item {
	it := Item{
		Source:  Truncate(f.Source, MaxSourceLen),
		Title:   Truncate(f.Title, MaxTitleLen),
		URL:     Truncate(ValidURL(f.URL), MaxURLLen),
		Tags:    NormalizeTags(f.Tags),
		Excerpt: Truncate(f.Excerpt, MaxExcerptLen),
		Image:   Truncate(ValidURL(f.Image), MaxURLLen),
	}
	it.PublishedAt, it.ts = normalizePublished(f.PublishedAt)

	if f.ID != "" {
		it.ID = Truncate(f.ID, MaxIDLen)
	} else {
		it.ID = DeriveID(it.Source, it.Title, it.URL, it.PublishedAt)
	}
	return it
}

// DeriveID hashes the identifying fields. Items with the same source, title,
// url and published date collide on purpose so they de-duplicate.
func DeriveID(source, title, url, published string) string {
	sum := sha1.Sum([]byte(source + "|" + title + "|" + url + "|" + published))
	return hex.EncodeToString(sum[:])
}

// Timestamp is the published date in epoch seconds, 0 when it did not parse.
func (it Item) Timestamp() float64 { return it.ts }

// Equal compares items by identity only.
func (it Item) Equal(other Item) bool { return it.ID == other.ID }

// Map returns the dict form persisted to the news/weather JSON files.
func (it Item) Map() map[string]any {
	return map[string]any{
		"id":           it.ID,
		"source":       it.Source,
		"title":        it.Title,
		"url":          it.URL,
		"published_at": it.PublishedAt,
		"tags":         tagsOrEmpty(it.Tags),
		"excerpt":      nullable(it.Excerpt),
		"image":        nullable(it.Image),
	}
}

type itemJSON struct {
	ID          string   `json:"id"`
	Source      string   `json:"source"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"published_at"`
	Tags        []string `json:"tags"`
	Excerpt     *string  `json:"excerpt"`
	Image       *string  `json:"image"`
}

func (it Item) MarshalJSON() ([]byte, error) {
	doc := itemJSON{
		ID:          it.ID,
		Source:      it.Source,
		Title:       it.Title,
		URL:         it.URL,
		PublishedAt: it.PublishedAt,
		Tags:        tagsOrEmpty(it.Tags),
	}
	if it.Excerpt != "" {
		doc.Excerpt = &it.Excerpt
	}
	if it.Image != "" {
		doc.Image = &it.Image
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes a dict form and renormalizes it.
func (it *Item) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*it = FromMap(doc)
	return nil
}

// Less reports whether a sorts before b: newest first, then title descending.
func Less(a, b Item) bool {
	return compareNewestFirst(a, b) < 0
}

func compareNewestFirst(a, b Item) int {
	if c := cmp.Compare(b.ts, a.ts); c != 0 {
		return c
	}
	return strings.Compare(b.Title, a.Title)
}

// Sort orders items newest-first in place, by (timestamp, title) descending.
func Sort(items []Item) {
	slices.SortStableFunc(items, compareNewestFirst)
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

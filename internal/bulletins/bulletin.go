// Package bulletins loads the hand-authored announcements from bulletins.yaml,
// sanitizes their bodies and maps them onto content items.
package bulletins

import (
	"strings"

	"github.com/thewebbaby/site/internal/content"
)

// Field caps.
const (
	MaxIDLen    = 128
	MaxTitleLen = 512
	MaxDateLen  = 10
	MaxBodyLen  = 1 << 20
	excerptLen  = 240

	// Source is the content source label used for bulletin items.
	Source = "webbabyguard"
)

// Bulletin is one entry of the bulletins file. BodyMD has already been
// through the allow-list sanitizer.
type Bulletin struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Date   string   `json:"date"`
	BodyMD string   `json:"body_md"`
	Tags   []string `json:"tags"`
	Links  []Link   `json:"links"`
}

// Link is an external reference attached to a bulletin.
type Link struct {
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`

	// malformed marks an entry that was not a mapping in the source file.
	malformed bool
}

// Excerpt is the first non-empty line of the body, capped at 240 characters.
func (b Bulletin) Excerpt() string {
	body := strings.TrimSpace(b.BodyMD)
	if body == "" {
		return ""
	}
	first, _, _ := strings.Cut(body, "\n")
	return content.Truncate(strings.TrimRight(first, "\r"), excerptLen)
}

// ToContentItem maps the bulletin onto the shared item model.
func (b Bulletin) ToContentItem() content.Item {
	published := ""
	if b.Date != "" {
		published = b.Date + "T00:00:00Z"
	}
	return content.New(content.Fields{
		ID:          b.ID,
		Source:      Source,
		Title:       b.Title,
		PublishedAt: published,
		Tags:        b.Tags,
		Excerpt:     b.Excerpt(),
	})
}

// ToContentItems converts a whole list, keeping order.
func ToContentItems(list []Bulletin) []content.Item {
	out := make([]content.Item, 0, len(list))
	for _, b := range list {
		out = append(out, b.ToContentItem())
	}
	return out
}

package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/thewebbaby/site/internal/logger"
)

// FromMap is the single deserialization entry point from an untyped document
// (decoded JSON or YAML) into an Item. Missing or mistyped values degrade to
// empty strings.
func FromMap(doc map[string]any) Item {
	return New(Fields{
		ID:          asString(doc["id"]),
		Source:      asString(doc["source"]),
		Title:       asString(doc["title"]),
		URL:         asString(doc["url"]),
		PublishedAt: asString(doc["published_at"]),
		Tags:        asTags(doc["tags"]),
		Excerpt:     asString(doc["excerpt"]),
		Image:       asString(doc["image"]),
	})
}

// CoerceList builds Items from raw documents and returns them newest-first.
// Documents that are nil or carry neither a title nor a url are dropped; one
// bad document never aborts the batch.
func CoerceList(docs []map[string]any, log logger.Logger) []Item {
	items := make([]Item, 0, len(docs))
	for idx, doc := range docs {
		if doc == nil {
			log.Warn("dropping empty news document", logger.Int("index", idx))
			continue
		}
		it := FromMap(doc)
		if it.Title == "" && it.URL == "" {
			log.Warn("dropping news item with no title and no url", logger.Int("index", idx))
			continue
		}
		items = append(items, it)
	}
	Sort(items)
	return items
}

// Maps converts items back to their dict forms.
func Maps(items []Item) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, it.Map())
	}
	return out
}

// EncodeList renders items as the indented JSON array stored on disk. HTML
// characters are left unescaped.
func EncodeList(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// asTags accepts a comma-separated string or any list of scalars.
func asTags(v any) []string {
	switch x := v.(type) {
	case string:
		return strings.Split(x, ",")
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, t := range x {
			if t == nil {
				continue
			}
			out = append(out, asString(t))
		}
		return out
	default:
		return nil
	}
}

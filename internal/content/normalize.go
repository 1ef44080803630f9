package content

import (
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// Field caps, in characters.
const (
	MaxIDLen          = 256
	MaxSourceLen      = 255
	MaxTitleLen       = 512
	MaxURLLen         = 2048
	MaxPublishedLen   = 64
	MaxExcerptLen     = 1024
	isoLayout         = "2006-01-02T15:04:05-07:00"
	isoLayoutFraction = "2006-01-02T15:04:05.000000-07:00"
)

// isoLayouts are tried in order once a trailing "Z" has been rewritten to "+00:00".
var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// lenientLayouts mirror the strptime patterns "%Y-%m-%d %H:%M:%S%z",
// "%Y-%m-%d %H:%M:%S" and "%Y-%m-%d".
var lenientLayouts = []string{
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Truncate cuts s to at most n characters (runes, not bytes).
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	if len(s) <= n || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// ValidURL returns s when it is an absolute http(s) URL with a host, else "".
func ValidURL(s string) string {
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return s
	}
	return ""
}

// ParseTags splits a comma-separated tag list and normalizes it.
func ParseTags(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}

// NormalizeTags lower-cases, trims and de-duplicates tags, keeping the order
// of first appearance. Blank entries are dropped. Never returns nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		key := strings.ToLower(strings.TrimSpace(t))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// ParseTime tries ISO-8601, then RFC 2822, then the lenient layouts. Results
// without a zone are taken as UTC. The returned time is always in UTC.
func ParseTime(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	iso := s
	if strings.HasSuffix(iso, "Z") || strings.HasSuffix(iso, "z") {
		iso = iso[:len(iso)-1] + "+00:00"
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, iso, time.UTC); err == nil {
			return t.UTC(), true
		}
	}

	numeric, _ := NumericZone(s)
	if t, err := mail.ParseDate(numeric); err == nil {
		return t.UTC(), true
	}

	for _, layout := range lenientLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatISO renders t as ISO-8601 in UTC with an explicit "+00:00" offset.
// Sub-second precision is kept to the microsecond when present.
func FormatISO(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/1000 != 0 {
		return t.Truncate(time.Microsecond).Format(isoLayoutFraction)
	}
	return t.Format(isoLayout)
}

// normalizePublished returns the stored form of a published date and its
// epoch seconds. Unparsable input is kept (trimmed, capped) with ts 0.
func normalizePublished(raw string) (string, float64) {
	if t, ok := ParseTime(raw); ok {
		return Truncate(FormatISO(t), MaxPublishedLen), epochSeconds(t)
	}
	return Truncate(strings.TrimSpace(raw), MaxPublishedLen), 0
}

func epochSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// obsZones are the RFC 2822 obsolete zone names. time.Parse only knows their
// offsets when they match the host's local zone.
var obsZones = map[string]string{
	"UT":  "+0000",
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
}

// NumericZone rewrites a trailing obsolete zone name of an RFC 2822 date to
// its numeric offset. It reports whether a rewrite happened.
func NumericZone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return s, false
	}
	offset, ok := obsZones[strings.ToUpper(s[i+1:])]
	if !ok {
		return s, false
	}
	return s[:i+1] + offset, true
}

package bulletins

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/thewebbaby/site/internal/content"
	"github.com/thewebbaby/site/internal/logger"
)

// Validate checks the bulletins file for authoring mistakes and returns one
// message per problem. An empty result means the file is good.
func (s *Store) Validate() []string {
	v := &validation{log: s.log}

	if _, err := os.Stat(s.path); err != nil {
		v.errf("Bulletins file not found: %s", s.path)
		s.metrics.Inc("content.bulletins_missing")
		return v.errs
	}

	list, err := s.read()
	if err != nil {
		v.errf("Error loading bulletins: %v", err)
		s.metrics.Inc("content.bulletins_load_error")
		return v.errs
	}
	s.metrics.Inc("content.bulletins_loaded")

	for _, b := range list {
		v.bulletin(b)
		v.asItem(b)
	}

	if len(v.errs) == 0 {
		s.metrics.Inc("content.bulletins_ok")
	} else {
		s.metrics.Inc("content.bulletins_error")
	}
	return v.errs
}

type validation struct {
	log  logger.Logger
	errs []string
}

func (v *validation) errf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	v.errs = append(v.errs, msg)
	v.log.Error(msg)
}

func (v *validation) bulletin(b Bulletin) {
	if b.ID == "" {
		v.errf("Bulletin missing id: %s", b.Title)
	}
	if b.Title == "" {
		v.errf("Bulletin missing title: %s", b.ID)
	}
	if !ValidDate(b.Date) {
		v.errf("Bulletin invalid date %q in %s", b.Date, b.ID)
	}
	if strings.TrimSpace(b.BodyMD) == "" {
		v.errf("Bulletin missing body_md: %s", b.ID)
	}
	for _, t := range b.Tags {
		if strings.TrimSpace(t) == "" {
			v.errf("Bulletin invalid tags in %s: %q", b.ID, b.Tags)
			break
		}
	}
	for _, l := range b.Links {
		if l.malformed {
			v.errf("Bulletin link is not a mapping in %s", b.ID)
			continue
		}
		if content.ValidURL(l.Href) == "" {
			v.errf("Bulletin invalid link href in %s: %q", b.ID, l.Href)
		}
	}
}

func (v *validation) asItem(b Bulletin) {
	it := b.ToContentItem()
	if it.ID == "" {
		v.errf("Item from bulletin missing id: %s", b.ID)
	}
	if it.Title == "" {
		v.errf("Item from bulletin missing title: %s", b.ID)
	}
	if it.Timestamp() == 0 || !ValidDate(it.PublishedAt) {
		v.errf("Item from bulletin invalid published_at: %s", b.ID)
	}
}

// ValidDate reports whether s starts with a plausible YYYY-MM-DD date.
func ValidDate(s string) bool {
	if len(s) < 10 {
		return false
	}
	parts := strings.Split(s[:10], "-")
	if len(parts) != 3 {
		return false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return false
		}
		nums[i] = n
	}
	year, month, day := nums[0], nums[1], nums[2]
	return month >= 1 && month <= 12 && day >= 1 && day <= 31 && year >= 1900 && year <= 9999
}

package bulletins

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thewebbaby/site/internal/content"
	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/metrics"
)

// Store reads bulletins.yaml fresh on every Load; it keeps no derived state.
type Store struct {
	path    string
	log     logger.Logger
	metrics *metrics.Registry
}

func NewStore(path string, log logger.Logger, reg *metrics.Registry) *Store {
	return &Store{path: path, log: log.Named("bulletins"), metrics: reg}
}

// Path is the bulletins file the store reads.
func (s *Store) Path() string { return s.path }

// Load returns the bulletins sorted by date, newest first. A missing or
// unreadable file yields an empty list. Bad records are logged and skipped.
func (s *Store) Load() []Bulletin {
	list, err := s.read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Info("bulletins file not found", logger.String("path", s.path))
			s.metrics.Inc("content.bulletins_missing")
		} else {
			s.log.Error("failed to load bulletins", logger.String("path", s.path), logger.Error(err))
			s.metrics.Inc("content.bulletins_load_error")
		}
		return []Bulletin{}
	}
	s.metrics.Inc("content.bulletins_loaded")
	return list
}

func (s *Store) read() ([]Bulletin, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var raw []any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse bulletins yaml: %w", err)
	}

	out := make([]Bulletin, 0, len(raw))
	for idx, rec := range raw {
		doc, ok := rec.(map[string]any)
		if !ok {
			s.log.Warn("skipping bulletin that is not a mapping", logger.Int("index", idx))
			s.metrics.Inc("content.bulletin_invalid")
			continue
		}
		out = append(out, fromDoc(doc))
	}

	slices.SortStableFunc(out, func(a, b Bulletin) int {
		return strings.Compare(b.Date, a.Date)
	})
	return out, nil
}

func fromDoc(doc map[string]any) Bulletin {
	return Bulletin{
		ID:     content.Truncate(scalar(doc["id"]), MaxIDLen),
		Title:  content.Truncate(scalar(doc["title"]), MaxTitleLen),
		Date:   content.Truncate(scalar(doc["date"]), MaxDateLen),
		BodyMD: content.Truncate(Sanitize(scalar(doc["body_md"])), MaxBodyLen),
		Tags:   tags(doc["tags"]),
		Links:  links(doc["links"]),
	}
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(time.DateOnly)
	default:
		return fmt.Sprint(x)
	}
}

// tags keeps list entries verbatim; non-string entries become blank so the
// validator reports them.
func tags(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, t := range list {
		s, _ := t.(string)
		out = append(out, s)
	}
	return out
}

func links(v any) []Link {
	list, ok := v.([]any)
	if !ok {
		return []Link{}
	}
	out := make([]Link, 0, len(list))
	for _, l := range list {
		m, ok := l.(map[string]any)
		if !ok {
			out = append(out, Link{malformed: true})
			continue
		}
		out = append(out, Link{
			Href:  strings.TrimSpace(scalar(m["href"])),
			Title: scalar(m["title"]),
		})
	}
	return out
}

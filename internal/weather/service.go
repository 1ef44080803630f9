// Package weather fetches the current conditions from an OpenWeather
// compatible endpoint and keeps one snapshot of them on disk.
package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/thewebbaby/site/internal/cache"
	"github.com/thewebbaby/site/internal/content"
	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/metrics"
	"github.com/thewebbaby/site/internal/utils"
)

const (
	// Source is the content source label of weather items.
	Source = "weather"

	defaultTimeout = 12 * time.Second
	userAgent      = "WebbabyWeather/1.0"
	iconURL        = "https://openweathermap.org/img/wn/%s.png"
	excerptLen     = 240
	maxBodyBytes   = 1 << 20
	idLayout       = "2006-01-02T15:04:05Z"
)

// Config is the upstream endpoint and the place to report on.
type Config struct {
	APIURL  string
	APIKey  string
	City    string
	Timeout time.Duration
}

type Service struct {
	apiURL    string
	apiKey    string
	city      string
	client    *http.Client
	validator *cache.Validator
	log       logger.Logger
	metrics   *metrics.Registry
	now       func() time.Time
}

// Snapshot is a persisted weather item plus its HTTP validators.
type Snapshot struct {
	Data         map[string]any
	ETag         string
	LastModified string
}

func NewService(cfg Config, log logger.Logger, reg *metrics.Registry) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	log = log.Named("weather")
	return &Service{
		apiURL:    strings.TrimSpace(cfg.APIURL),
		apiKey:    strings.TrimSpace(cfg.APIKey),
		city:      strings.TrimSpace(cfg.City),
		client:    &http.Client{Timeout: cfg.Timeout},
		validator: cache.NewValidator(log),
		log:       log,
		metrics:   reg,
		now:       time.Now,
	}
}

// Configured reports whether an API key has been provided.
func (s *Service) Configured() bool { return s.apiKey != "" }

type response struct {
	Main struct {
		Temp *json.Number `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

// Fetch asks the provider for the current conditions. It fails closed: any
// missing setting or upstream problem is logged, counted and yields false.
func (s *Service) Fetch(ctx context.Context) (content.Item, bool) {
	if s.apiURL == "" || s.apiKey == "" || s.city == "" {
		s.log.Error("missing configuration")
		s.metrics.Inc("weather.config_error")
		return content.Item{}, false
	}

	data, err := s.get(ctx)
	if err != nil {
		s.log.Error("fetch error", logger.String("city", s.city), logger.Error(err))
		s.metrics.Inc("weather.fetch_error")
		return content.Item{}, false
	}

	temp := "N/A"
	if data.Main.Temp != nil {
		temp = data.Main.Temp.String()
	}
	desc, icon := "N/A", ""
	if len(data.Weather) > 0 {
		if d := strings.TrimSpace(data.Weather[0].Description); d != "" {
			desc = d
		}
		icon = data.Weather[0].Icon
	}
	desc = capitalize(desc)

	image := ""
	if icon != "" {
		image = fmt.Sprintf(iconURL, url.PathEscape(icon))
	}

	ts := s.now().UTC().Format(idLayout)
	item := content.New(content.Fields{
		ID:          "weather-" + ts,
		Source:      Source,
		Title:       fmt.Sprintf("Weather in %s: %s°C, %s", s.city, temp, desc),
		PublishedAt: ts,
		Tags:        []string{"weather"},
		Excerpt:     content.Truncate(desc, excerptLen),
		Image:       image,
	})
	s.metrics.Inc("weather.fetch_ok")
	return item, true
}

func (s *Service) get(ctx context.Context) (*response, error) {
	u, err := url.Parse(s.apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	q := u.Query()
	q.Set("q", s.city)
	q.Set("appid", s.apiKey)
	q.Set("units", "metric")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	dec.UseNumber()
	var out response
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}

// Save fetches a fresh snapshot and replaces the file at path with it.
func (s *Service) Save(ctx context.Context, path string) (content.Item, bool) {
	item, ok := s.Fetch(ctx)
	if !ok {
		return content.Item{}, false
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(item); err != nil {
		s.metrics.Inc("weather.saved_error")
		s.log.Error("encode snapshot", logger.Error(err))
		return content.Item{}, false
	}
	if err := utils.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		s.metrics.Inc("weather.saved_error")
		s.log.Error("save snapshot", logger.String("path", path), logger.Error(err))
		return content.Item{}, false
	}
	s.metrics.Inc("weather.saved_ok")
	return item, true
}

// GetCached reads the persisted snapshot with its validators. A missing file
// is a cache miss.
func (s *Service) GetCached(path string) (Snapshot, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.metrics.Inc("weather.cache_miss")
		} else {
			s.metrics.Inc("weather.cache_error")
			s.log.Error("cache read error", logger.String("path", path), logger.Error(err))
		}
		return Snapshot{}, false
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		s.metrics.Inc("weather.cache_error")
		s.log.Error("cache decode error", logger.String("path", path), logger.Error(err))
		return Snapshot{}, false
	}

	snap := Snapshot{Data: data}
	snap.ETag, _ = s.validator.HashFile(path)
	snap.LastModified, _ = s.validator.FileLastModified(path)
	s.metrics.Inc("weather.cache_hit")
	return snap, true
}

// Item is the cached snapshot as a content item.
func (snap Snapshot) Item() content.Item {
	return content.FromMap(snap.Data)
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return strings.ToUpper(string(r)) + strings.ToLower(s[size:])
}

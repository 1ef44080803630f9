package build

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewebbaby/site/internal/bulletins"
	"github.com/thewebbaby/site/internal/content"
	"github.com/thewebbaby/site/internal/feeds"
	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/metrics"
	redisstore "github.com/thewebbaby/site/internal/store/redis"
	"github.com/thewebbaby/site/internal/syndication"
	"github.com/thewebbaby/site/internal/weather"
)

const feedBody = `<?xml version="1.0"?>
<rss version="2.0">
<channel>
<title>Src</title>
<link>https://example.com</link>
<description>d</description>
<item>
  <guid>n1</guid>
  <title>Fresh news</title>
  <link>https://example.com/n1</link>
  <pubDate>Sun, 07 Sep 2025 10:00:00 GMT</pubDate>
  <description>hello</description>
</item>
</channel>
</rss>`

const bulletinsYAML = `- id: b1
  title: Note
  date: "2025-09-01"
  body_md: body
`

type fakeMirror struct {
	news   []content.Item
	status *redisstore.BuildStatus
	err    error
}

func (m *fakeMirror) SaveNews(_ context.Context, items []content.Item) error {
	m.news = items
	return m.err
}

func (m *fakeMirror) SaveBuildStatus(_ context.Context, st redisstore.BuildStatus) error {
	m.status = &st
	return m.err
}

type fixture struct {
	dir     string
	paths   Paths
	reg     *metrics.Registry
	sources []string
	weather weather.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bulletins.yaml"), []byte(bulletinsYAML), 0o644))

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	t.Cleanup(feed.Close)

	wx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"main":{"temp":18},"weather":[{"description":"light rain","icon":"10d"}]}`))
	}))
	t.Cleanup(wx.Close)

	return &fixture{
		dir: dir,
		paths: Paths{
			News:    filepath.Join(dir, "news.json"),
			Weather: filepath.Join(dir, "weather.json"),
			RSS:     filepath.Join(dir, "rss.xml"),
		},
		reg:     metrics.NewRegistry(),
		sources: []string{feed.URL},
		weather: weather.Config{APIURL: wx.URL, APIKey: "k", City: "Paris", Timeout: 5 * time.Second},
	}
}

func (f *fixture) builder(mirror Mirror) *Builder {
	log := logger.NewNop()
	return NewBuilder(
		Options{Sources: f.sources, LimitPerSource: 10, Paths: f.paths},
		feeds.NewIngestor(feeds.Options{Timeout: 5 * time.Second}, log, f.reg),
		weather.NewService(f.weather, log, f.reg),
		bulletins.NewStore(filepath.Join(f.dir, "bulletins.yaml"), log, f.reg),
		syndication.NewPublisher("https://site.test", "Site", log, f.reg),
		mirror,
		log,
		f.reg,
	)
}

func TestBuildWritesEveryOutput(t *testing.T) {
	f := newFixture(t)
	mirror := &fakeMirror{}

	res := f.builder(mirror).Build(context.Background())
	require.True(t, res.OK, res.Errors)
	assert.Equal(t, 1, res.Items)
	assert.Equal(t, 1, res.SourcesOK)
	assert.True(t, res.Weather)

	raw, err := os.ReadFile(f.paths.News)
	require.NoError(t, err)
	var news []map[string]any
	require.NoError(t, json.Unmarshal(raw, &news))
	require.Len(t, news, 1)
	assert.Equal(t, "Fresh news", news[0]["title"])

	raw, err = os.ReadFile(f.paths.Weather)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Weather in Paris")

	raw, err = os.ReadFile(f.paths.RSS)
	require.NoError(t, err)
	xml := string(raw)
	assert.Contains(t, xml, "<rss")
	assert.Less(t, strings.Index(xml, "Note"), strings.Index(xml, "Fresh news"))
	assert.Contains(t, xml, "Weather in Paris")

	assert.Equal(t, int64(1), f.reg.Get("feeds.build_ok"))
	assert.Len(t, mirror.news, 1)
	require.NotNil(t, mirror.status)
	assert.True(t, mirror.status.OK)
}

func TestBuildSkipsUnconfiguredWeather(t *testing.T) {
	f := newFixture(t)
	f.weather.APIKey = ""

	res := f.builder(nil).Build(context.Background())
	assert.True(t, res.OK, res.Errors)
	assert.False(t, res.Weather)
	assert.NoFileExists(t, f.paths.Weather)
	assert.FileExists(t, f.paths.RSS)
}

func TestBuildFailsWhenAllSourcesFail(t *testing.T) {
	f := newFixture(t)
	f.sources = []string{"http://127.0.0.1:1/feed"}

	res := f.builder(nil).Build(context.Background())
	assert.False(t, res.OK)
	assert.Equal(t, 1, res.SourcesFailed)
	assert.Equal(t, int64(1), f.reg.Get("feeds.news_error"))
	assert.Equal(t, int64(1), f.reg.Get("feeds.build_error"))

	// later stages still ran
	assert.FileExists(t, f.paths.News)
	assert.FileExists(t, f.paths.RSS)
}

func TestBuildFailsOnWeatherError(t *testing.T) {
	f := newFixture(t)
	f.weather.APIURL = "http://127.0.0.1:1/weather"

	res := f.builder(nil).Build(context.Background())
	assert.False(t, res.OK)
	assert.Equal(t, int64(1), f.reg.Get("feeds.weather_error"))
	assert.FileExists(t, f.paths.RSS)
}

func TestBuildFailsOnUnwritableRSS(t *testing.T) {
	f := newFixture(t)
	blocker := filepath.Join(f.dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	f.paths.RSS = filepath.Join(blocker, "rss.xml")

	res := f.builder(nil).Build(context.Background())
	assert.False(t, res.OK)
	assert.Equal(t, int64(1), f.reg.Get("feeds.rss_error"))
	assert.FileExists(t, f.paths.News)
}

func TestBuildIgnoresMirrorErrors(t *testing.T) {
	f := newFixture(t)
	mirror := &fakeMirror{err: errors.New("redis down")}

	res := f.builder(mirror).Build(context.Background())
	assert.True(t, res.OK, res.Errors)
	assert.NotNil(t, mirror.status)
}

func TestResultStatus(t *testing.T) {
	start := time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)
	res := Result{OK: true, StartedAt: start, FinishedAt: start.Add(2 * time.Second), Items: 3, Errors: []string{"x"}}

	st := res.Status()
	assert.Equal(t, 2*time.Second, st.Duration)
	assert.Equal(t, 3, st.Items)
	assert.Equal(t, []string{"x"}, st.Errors)
}

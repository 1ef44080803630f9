package content

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/thewebbaby/site/internal/logger"
)

func TestNewParsesDates(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantISO   string
		wantEpoch int64
	}{
		{
			name:      "iso with Z",
			input:     "2025-09-07T12:00:00Z",
			wantISO:   "2025-09-07T12:00:00+00:00",
			wantEpoch: 1757246400,
		},
		{
			name:      "iso with offset is moved to UTC",
			input:     "2025-09-07T14:00:00+02:00",
			wantISO:   "2025-09-07T12:00:00+00:00",
			wantEpoch: 1757246400,
		},
		{
			name:      "naive iso is UTC",
			input:     "2025-09-07T12:00:00",
			wantISO:   "2025-09-07T12:00:00+00:00",
			wantEpoch: 1757246400,
		},
		{
			name:      "rfc 2822",
			input:     "Sun, 07 Sep 2025 12:00:00 +0000",
			wantISO:   "2025-09-07T12:00:00+00:00",
			wantEpoch: 1757246400,
		},
		{
			name:      "http date",
			input:     "Sun, 07 Sep 2025 12:00:00 GMT",
			wantISO:   "2025-09-07T12:00:00+00:00",
			wantEpoch: 1757246400,
		},
		{
			name:      "space separated with zone",
			input:     "2025-09-07 13:00:00+0100",
			wantISO:   "2025-09-07T12:00:00+00:00",
			wantEpoch: 1757246400,
		},
		{
			name:      "rfc 2822 EST",
			input:     "Mon, 08 Sep 2025 12:00:00 EST",
			wantISO:   "2025-09-08T17:00:00+00:00",
			wantEpoch: 1757350800,
		},
		{
			name:      "rfc 2822 EDT",
			input:     "Mon, 08 Sep 2025 12:00:00 EDT",
			wantISO:   "2025-09-08T16:00:00+00:00",
			wantEpoch: 1757347200,
		},
		{
			name:      "rfc 2822 CST",
			input:     "Mon, 08 Sep 2025 12:00:00 CST",
			wantISO:   "2025-09-08T18:00:00+00:00",
			wantEpoch: 1757354400,
		},
		{
			name:      "rfc 2822 CDT",
			input:     "Mon, 08 Sep 2025 12:00:00 CDT",
			wantISO:   "2025-09-08T17:00:00+00:00",
			wantEpoch: 1757350800,
		},
		{
			name:      "rfc 2822 MST",
			input:     "Mon, 08 Sep 2025 12:00:00 MST",
			wantISO:   "2025-09-08T19:00:00+00:00",
			wantEpoch: 1757358000,
		},
		{
			name:      "rfc 2822 MDT",
			input:     "Mon, 08 Sep 2025 12:00:00 MDT",
			wantISO:   "2025-09-08T18:00:00+00:00",
			wantEpoch: 1757354400,
		},
		{
			name:      "rfc 2822 PST",
			input:     "Mon, 08 Sep 2025 12:00:00 PST",
			wantISO:   "2025-09-08T20:00:00+00:00",
			wantEpoch: 1757361600,
		},
		{
			name:      "rfc 2822 PDT",
			input:     "Mon, 08 Sep 2025 12:00:00 PDT",
			wantISO:   "2025-09-08T19:00:00+00:00",
			wantEpoch: 1757358000,
		},
		{
			name:      "rfc 2822 UT",
			input:     "Mon, 08 Sep 2025 12:00:00 UT",
			wantISO:   "2025-09-08T12:00:00+00:00",
			wantEpoch: 1757332800,
		},
		{
			name:      "date only",
			input:     "2025-09-07",
			wantISO:   "2025-09-07T00:00:00+00:00",
			wantEpoch: 1757203200,
		},
		{
			name:      "fractional seconds",
			input:     "2025-09-07T12:00:00.250Z",
			wantISO:   "2025-09-07T12:00:00.250000+00:00",
			wantEpoch: 1757246400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := New(Fields{Title: "x", PublishedAt: tt.input})
			if it.PublishedAt != tt.wantISO {
				t.Errorf("PublishedAt = %q, want %q", it.PublishedAt, tt.wantISO)
			}
			if int64(it.Timestamp()) != tt.wantEpoch {
				t.Errorf("Timestamp() = %v, want %v", it.Timestamp(), tt.wantEpoch)
			}

			// Re-parsing the normalized value lands on the same instant.
			again := New(Fields{Title: "x", PublishedAt: it.PublishedAt})
			if again.Timestamp() != it.Timestamp() {
				t.Errorf("re-parse Timestamp() = %v, want %v", again.Timestamp(), it.Timestamp())
			}
		})
	}
}

func TestNewKeepsUnparsableDates(t *testing.T) {
	it := New(Fields{Title: "x", PublishedAt: "  sometime last week  "})
	if it.PublishedAt != "sometime last week" {
		t.Errorf("PublishedAt = %q", it.PublishedAt)
	}
	if it.Timestamp() != 0 {
		t.Errorf("Timestamp() = %v, want 0", it.Timestamp())
	}

	long := New(Fields{Title: "x", PublishedAt: strings.Repeat("z", 100)})
	if len(long.PublishedAt) != MaxPublishedLen {
		t.Errorf("len(PublishedAt) = %d, want %d", len(long.PublishedAt), MaxPublishedLen)
	}
}

func TestNewTruncatesFields(t *testing.T) {
	it := New(Fields{
		ID:      strings.Repeat("i", 300),
		Source:  strings.Repeat("s", 300),
		Title:   strings.Repeat("t", 600),
		Excerpt: strings.Repeat("e", 2000),
		URL:     "https://example.com/" + strings.Repeat("p", 3000),
	})

	checks := map[string]struct{ got, want int }{
		"id":      {len(it.ID), MaxIDLen},
		"source":  {len(it.Source), MaxSourceLen},
		"title":   {len(it.Title), MaxTitleLen},
		"excerpt": {len(it.Excerpt), MaxExcerptLen},
		"url":     {len(it.URL), MaxURLLen},
	}
	for field, c := range checks {
		if c.got != c.want {
			t.Errorf("len(%s) = %d, want %d", field, c.got, c.want)
		}
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Errorf("Truncate() = %q, want %q", got, "hé")
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Truncate() = %q, want %q", got, "abc")
	}
}

func TestNewValidatesURLs(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/a", "https://example.com/a"},
		{"http://example.com", "http://example.com"},
		{"ftp://example.com/file", ""},
		{"javascript:alert(1)", ""},
		{"/relative/path", ""},
		{"https://", ""},
		{"", ""},
	}
	for _, tt := range tests {
		it := New(Fields{Title: "x", URL: tt.in, Image: tt.in})
		if it.URL != tt.want {
			t.Errorf("URL(%q) = %q, want %q", tt.in, it.URL, tt.want)
		}
		if it.Image != tt.want {
			t.Errorf("Image(%q) = %q, want %q", tt.in, it.Image, tt.want)
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"case duplicates collapse", []string{"Go", "go", "GO"}, []string{"go"}},
		{"order of first appearance", []string{"b", "A", "a", "c", "B"}, []string{"b", "a", "c"}},
		{"blank entries dropped", []string{" ", "", "x "}, []string{"x"}},
		{"nil gives empty", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.in)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") || got == nil {
				t.Errorf("NormalizeTags() = %#v, want %#v", got, tt.want)
			}
		})
	}

	if got := ParseTags("Go, python,GO,,Rust"); strings.Join(got, ",") != "go,python,rust" {
		t.Errorf("ParseTags() = %v", got)
	}
}

func TestDerivedIDIsDeterministic(t *testing.T) {
	f := Fields{Source: "feed", Title: "T", URL: "https://x.com", PublishedAt: "2025-09-07T12:00:00Z"}
	a, b := New(f), New(f)
	if a.ID == "" || a.ID != b.ID {
		t.Fatalf("derived ids differ: %q vs %q", a.ID, b.ID)
	}
	if !a.Equal(b) {
		t.Error("Equal() = false for identical derived ids")
	}

	f.Title = "Other"
	if New(f).ID == a.ID {
		t.Error("different title produced the same id")
	}

	explicit := New(Fields{ID: "e1", Title: "T"})
	if explicit.ID != "e1" {
		t.Errorf("ID = %q, want e1", explicit.ID)
	}
}

func TestEqualComparesIDOnly(t *testing.T) {
	a := New(Fields{ID: "same", Title: "one"})
	b := New(Fields{ID: "same", Title: "two"})
	if !a.Equal(b) {
		t.Error("items with the same id should be equal")
	}
}

func TestCoerceListSortsAndDrops(t *testing.T) {
	docs := []map[string]any{
		{"id": "old", "title": "Old", "published_at": "2020-01-01T00:00:00Z"},
		{"id": "undated", "title": "Undated", "published_at": "not a date"},
		{"id": "new", "title": "New", "published_at": "2025-01-01T00:00:00Z"},
		{"id": "empty", "title": "", "url": "not-a-url"},
		nil,
		{"id": "tie-a", "title": "Alpha", "published_at": "2022-01-01T00:00:00Z"},
		{"id": "tie-b", "title": "Beta", "published_at": "2022-01-01T00:00:00Z"},
	}

	items := CoerceList(docs, logger.NewNop())

	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	want := "new,tie-b,tie-a,old,undated"
	if strings.Join(ids, ",") != want {
		t.Errorf("order = %v, want %v", ids, want)
	}
}

func TestCoerceListIsIdempotent(t *testing.T) {
	docs := []map[string]any{
		{"source": "Feed", "title": "A", "url": "https://a.example", "published_at": "Sun, 07 Sep 2025 12:00:00 GMT", "tags": "Go, go, Web"},
		{"id": "b", "title": "B", "published_at": "yesterday", "tags": []any{"X", "x"}, "excerpt": "hi"},
		{"id": "c", "title": "C", "url": "https://c.example", "image": "https://c.example/i.png"},
	}

	first := CoerceList(docs, logger.NewNop())
	second := CoerceList(Maps(first), logger.NewNop())

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("CoerceList is not idempotent:\n%s\n%s", a, b)
	}
}

func TestJSONRoundTripUsesNulls(t *testing.T) {
	it := New(Fields{ID: "x", Title: "T"})
	data, err := json.Marshal(it)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"excerpt":null`, `"image":null`, `"tags":[]`} {
		if !strings.Contains(s, want) {
			t.Errorf("json %s missing %s", s, want)
		}
	}

	var back Item
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(it) || back.Title != "T" {
		t.Errorf("round trip = %+v", back)
	}
}

func TestSortPutsUnparsableLast(t *testing.T) {
	items := []Item{
		New(Fields{ID: "bad", Title: "zzz", PublishedAt: "??"}),
		New(Fields{ID: "good", Title: "aaa", PublishedAt: time.Unix(10, 0).UTC().Format(time.RFC3339)}),
	}
	Sort(items)
	if items[0].ID != "good" {
		t.Errorf("first = %q, want good", items[0].ID)
	}
	if !Less(items[0], items[1]) {
		t.Error("Less(good, bad) = false")
	}
}

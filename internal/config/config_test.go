package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{
			name:     "true value",
			key:      "TEST_BOOL",
			value:    "true",
			def:      false,
			expected: true,
		},
		{
			name:     "false value",
			key:      "TEST_BOOL_FALSE",
			value:    "false",
			def:      true,
			expected: false,
		},
		{
			name:     "invalid value uses default",
			key:      "TEST_BOOL_INVALID",
			value:    "invalid",
			def:      true,
			expected: true,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_BOOL_MISSING",
			value:    "",
			def:      false,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustSeconds(t *testing.T) {
	t.Setenv("TEST_TTL_INT", "120")
	t.Setenv("TEST_TTL_DUR", "2m")
	t.Setenv("TEST_TTL_BAD", "soon")

	if got := mustSeconds("TEST_TTL_INT", time.Second); got != 2*time.Minute {
		t.Errorf("mustSeconds(int) = %v", got)
	}
	if got := mustSeconds("TEST_TTL_DUR", time.Second); got != 2*time.Minute {
		t.Errorf("mustSeconds(duration) = %v", got)
	}
	if got := mustSeconds("TEST_TTL_BAD", time.Second); got != time.Second {
		t.Errorf("mustSeconds(invalid) = %v", got)
	}
	if got := mustSeconds("TEST_TTL_MISSING", 3*time.Second); got != 3*time.Second {
		t.Errorf("mustSeconds(missing) = %v", got)
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(` a , "b",, 'c' `)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitAndTrim() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitAndTrim()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if splitAndTrim("") != nil {
		t.Error("splitAndTrim(\"\") should be nil")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WEBBABY_DATA_DIR", "/srv/data")
	t.Setenv("BASE_URL", "https://example.com/")

	cfg := Load()

	if cfg.BaseURL != "https://example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.NewsFile != filepath.Join("/srv/data", "news.json") {
		t.Errorf("NewsFile = %q", cfg.NewsFile)
	}
	if cfg.WeatherFile != filepath.Join("/srv/data", "weather_snapshot.json") {
		t.Errorf("WeatherFile = %q", cfg.WeatherFile)
	}
	if len(cfg.RSSSources) != len(DefaultRSSSources) {
		t.Errorf("RSSSources = %v", cfg.RSSSources)
	}
	if cfg.RedisEnabled() {
		t.Error("redis should be disabled without an address")
	}
	if cfg.BuildSchedule != "@every 30m" {
		t.Errorf("BuildSchedule = %q", cfg.BuildSchedule)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RSS_SOURCES", "https://a.example/feed, https://b.example/feed")
	t.Setenv("WEATHER_PROVIDER_URL", "https://legacy.example/weather")
	t.Setenv("API_CACHE_TTL", "60")

	cfg := Load()

	if len(cfg.RSSSources) != 2 || cfg.RSSSources[1] != "https://b.example/feed" {
		t.Errorf("RSSSources = %v", cfg.RSSSources)
	}
	if cfg.WeatherAPIURL != "https://legacy.example/weather" {
		t.Errorf("WeatherAPIURL = %q", cfg.WeatherAPIURL)
	}
	if cfg.APICacheTTL != time.Minute {
		t.Errorf("APICacheTTL = %v", cfg.APICacheTTL)
	}

	t.Setenv("WEATHER_API_URL", "https://primary.example/weather")
	if got := Load().WeatherAPIURL; got != "https://primary.example/weather" {
		t.Errorf("WEATHER_API_URL should win over the legacy alias, got %q", got)
	}
}

func TestLoadRedisPasswordRequired(t *testing.T) {
	t.Setenv("WEBBABY_REDIS_ADDR", "localhost:6379")
	t.Setenv("WEBBABY_REDIS_PASSWORD_REQUIRED", "true")

	defer func() {
		if r := recover(); r == nil {
			t.Error("Load() should panic when the redis password is required but missing")
		}
	}()
	Load()
}

func TestValidate(t *testing.T) {
	cfg := &Config{NewsPageSize: 0}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail on an empty config")
	}
	for _, want := range []string{"SITE_NAME", "BASE_URL", "WEATHER_API_URL", "RSS_SOURCES", "NEWS_PAGE_SIZE"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error %q does not mention %s", err, want)
		}
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	shared := filepath.Join(dir, ".env")
	if err := os.WriteFile(local, []byte("WEBBABY_TEST_KEY=local\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(shared, []byte("WEBBABY_TEST_KEY=shared\nWEBBABY_TEST_OTHER=shared\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WEBBABY_TEST_KEY", "")
	t.Setenv("WEBBABY_TEST_OTHER", "")
	os.Unsetenv("WEBBABY_TEST_KEY")
	os.Unsetenv("WEBBABY_TEST_OTHER")

	if err := LoadEnvFiles(local, shared, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnvFiles() = %v", err)
	}
	if got := os.Getenv("WEBBABY_TEST_KEY"); got != "local" {
		t.Errorf("WEBBABY_TEST_KEY = %q, want local", got)
	}
	if got := os.Getenv("WEBBABY_TEST_OTHER"); got != "shared" {
		t.Errorf("WEBBABY_TEST_OTHER = %q, want shared", got)
	}
}

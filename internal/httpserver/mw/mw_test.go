package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/metrics"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"ops.example.com", "*.internal.example.com"}, logger.NewNop())(ok)

	tests := []struct {
		host string
		want int
	}{
		{"ops.example.com", http.StatusOK},
		{"OPS.example.com:8080", http.StatusOK},
		{"a.internal.example.com", http.StatusOK},
		{"internal.example.com", http.StatusForbidden},
		{"evil.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/reload", nil)
			req.Host = tt.host
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("host %s: got %d, want %d", tt.host, rec.Code, tt.want)
			}
		})
	}
}

func TestEnforceHostPassthrough(t *testing.T) {
	h := EnforceHost(nil, logger.NewNop())(ok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected passthrough, got %d", rec.Code)
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, true, logger.NewNop())(ok)

	tests := []struct {
		name   string
		remote string
		xff    string
		want   int
	}{
		{"inside range", "10.1.2.3:1", "", http.StatusOK},
		{"outside range", "192.168.1.1:1", "", http.StatusForbidden},
		{"forwarded client", "127.0.0.1:1", "10.9.9.9", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRateLimiterRefill(t *testing.T) {
	l := newLimiter(RateLimitConfig{Burst: 2, RefillPerIPPerMin: 60})
	now := time.Now()

	for i := 0; i < 2; i++ {
		if allowed, _, _ := l.allow("1.2.3.4", now); !allowed {
			t.Fatalf("request %d should pass", i)
		}
	}
	allowed, _, retry := l.allow("1.2.3.4", now)
	if allowed || retry != 1 {
		t.Fatalf("expected rejection with retry=1, got allowed=%v retry=%d", allowed, retry)
	}
	if allowed, _, _ := l.allow("5.6.7.8", now); !allowed {
		t.Fatal("other clients have their own bucket")
	}
	if allowed, _, _ := l.allow("1.2.3.4", now.Add(time.Second)); !allowed {
		t.Fatal("one token should refill after a second")
	}
}

func TestServerTiming(t *testing.T) {
	reg := metrics.NewRegistry()
	h := ServerTiming(reg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hi"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if got := rec.Header().Get("Server-Timing"); len(got) < len("app;dur=") || got[:8] != "app;dur=" {
		t.Errorf("unexpected Server-Timing %q", got)
	}
	if reg.Get("requests") != 1 || reg.Get("requests_post") != 1 {
		t.Errorf("request counters not incremented: %+v", reg.Snapshot().Counters)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "Strict-Transport-Security", "Referrer-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}

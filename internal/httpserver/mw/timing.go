package mw

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/thewebbaby/site/internal/metrics"
)

// timingWriter stamps Server-Timing just before the header is flushed.
type timingWriter struct {
	http.ResponseWriter
	start       time.Time
	wroteHeader bool
}

func (w *timingWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		ms := float64(time.Since(w.start).Microseconds()) / 1000.0
		w.Header().Set("Server-Timing", fmt.Sprintf("app;dur=%.1f", ms))
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *timingWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// ServerTiming adds a Server-Timing header and counts requests per method.
func ServerTiming(reg *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tw := &timingWriter{ResponseWriter: w, start: time.Now()}
			next.ServeHTTP(tw, r)

			reg.Observe("http.request", time.Since(tw.start))
			reg.Inc("requests")
			reg.Inc("requests_" + strings.ToLower(r.Method))
		})
	}
}

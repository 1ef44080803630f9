package handlers

import (
	"net/http"

	"github.com/thewebbaby/site/internal/httpserver/deps"
	"github.com/thewebbaby/site/internal/logger"
)

// Reload queues a manual feed rebuild
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.ReloadTrigger == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte("❌ Feed rebuild is not running\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
			return
		}

		select {
		case d.ReloadTrigger <- struct{}{}:
			d.Logger.Info("manual feed rebuild triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			d.Metrics.Inc("reload.triggered")
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("✅ Rebuild triggered successfully\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		default:
			d.Logger.Warn("feed rebuild already pending",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte("⏳ Rebuild already pending, please wait\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		}
	}
}

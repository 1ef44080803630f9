package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/thewebbaby/site/internal/httpserver/deps"
	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/metrics"
	redisstore "github.com/thewebbaby/site/internal/store/redis"
)

type componentStatus struct {
	OK          bool   `json:"ok"`
	ItemsLoaded *int   `json:"items_loaded,omitempty"`
	LastReload  string `json:"last_reload,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Error       string `json:"error,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Service    string                     `json:"service"`
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
	Metrics    metrics.Snapshot           `json:"metrics"`
	LastBuild  *redisstore.BuildStatus    `json:"last_build,omitempty"`
}

// Health reports the service name, component state and the metrics snapshot.
func Health(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := d.News.Count()
		lastReload := "never"
		if t := d.News.GetLastReload(); !t.IsZero() {
			lastReload = t.UTC().Format(time.RFC3339)
		}

		components := map[string]componentStatus{
			"news": {
				OK:          count > 0,
				ItemsLoaded: &count,
				LastReload:  lastReload,
			},
			"weather": {
				OK:   d.Weather.Configured(),
				Mode: weatherMode(d),
			},
			"redis": checkRedis(r.Context(), d),
		}

		resp := healthResponse{
			Status:     "ok",
			Service:    d.SiteName,
			Mode:       determineMode(components),
			Components: components,
			Metrics:    d.Metrics.Snapshot(),
		}
		if d.Store != nil && components["redis"].OK {
			st, err := d.Store.LastBuildStatus(r.Context())
			if err != nil {
				d.Logger.Warn("api/health: failed to read build status", logger.Error(err))
			}
			resp.LastBuild = st
		}

		w.Header().Set("Cache-Control", "public, max-age=60")
		writeJSON(w, http.StatusOK, resp)
		d.Metrics.Inc("api_health")
	}
}

func weatherMode(d deps.Deps) string {
	if d.Weather.Configured() {
		return "enabled"
	}
	return "disabled"
}

// determineMode is "degraded" when no news is loaded or the Redis mirror is
// unreachable, "optimal" otherwise.
func determineMode(components map[string]componentStatus) string {
	if news, ok := components["news"]; ok && !news.OK {
		return "degraded"
	}
	if redis, ok := components["redis"]; ok && !redis.OK && redis.Mode != "disabled" {
		return "degraded"
	}
	return "optimal"
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{OK: false, Mode: "disabled"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{OK: false, Mode: "mirror", Error: "unreachable"}
	}
	return componentStatus{OK: true, Mode: "mirror"}
}

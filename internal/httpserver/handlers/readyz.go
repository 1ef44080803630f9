package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/thewebbaby/site/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready   bool     `json:"ready"`
	Missing []string `json:"missing,omitempty"`
}

// Readyz is ready once the build job has published the news and RSS files.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var missing []string
		for _, path := range []string{d.NewsFile, d.RSSFile} {
			if _, err := os.Stat(path); err != nil {
				missing = append(missing, path)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if len(missing) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(readyzResponse{
			Ready:   len(missing) == 0,
			Missing: missing,
		})
	}
}

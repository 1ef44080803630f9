package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/thewebbaby/site/internal/httpserver/deps"
)

const maxThemeBody = 1 << 10

var themes = map[string]bool{"light": true, "dark": true, "auto": true}

type themeRequest struct {
	Theme *string `json:"theme"`
}

type themeResponse struct {
	Theme string `json:"theme"`
}

// Theme stores the visitor's colour scheme preference in a cookie. A missing
// or unreadable body means "auto".
func Theme(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		theme := "auto"

		var req themeRequest
		raw, _ := io.ReadAll(io.LimitReader(r.Body, maxThemeBody))
		if err := json.Unmarshal(raw, &req); err == nil && req.Theme != nil {
			theme = *req.Theme
		}
		if !themes[theme] {
			writeError(w, d, http.StatusBadRequest, "Invalid theme")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     d.ThemeCookieName,
			Value:    theme,
			Path:     "/",
			MaxAge:   int(d.ThemeCookieMaxAge.Seconds()),
			Secure:   true,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, themeResponse{Theme: theme})
		d.Metrics.Inc("api_theme")
	}
}

package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/thewebbaby/site/internal/httpserver/deps"
	"github.com/thewebbaby/site/internal/httpserver/handlers"
)

func init() { Register(registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	r.Get("/api/news", handlers.News(d))
	r.Get("/api/weather", handlers.Weather(d))
	r.Get("/api/rss", handlers.RSS(d))
	r.Get("/api/bulletins", handlers.Bulletins(d))
	r.Get("/api/health", handlers.Health(d))
}

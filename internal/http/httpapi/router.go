package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aichat/internal/http/handlers"
	"aichat/internal/infra"
	"aichat/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger, countries middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.I18N(cfg.DefaultLocale, countries),
	)

	r.Get("/v1/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
		}
		r.Post("/api/chat", app.ChatCompletion)
		r.Post("/api/generate-image", app.GenerateImage)
		r.Post("/api/image-parsing", app.ImageParsing)
		r.Post("/api/image-to-image", app.ImageToImage)

		r.Route("/api/history", func(r chi.Router) {
			r.Get("/", app.HistoryList)
			r.Post("/", app.HistoryAppend)
			r.Delete("/", app.HistoryClear)
			r.Get("/{id}", app.HistoryGet)
			r.Patch("/{id}", app.HistoryRename)
			r.Delete("/{id}", app.HistoryDelete)
		})
	})

	return r
}

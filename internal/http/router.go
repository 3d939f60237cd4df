package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/agora/internal/http/handlers"
	"github.com/pribylovaa/agora/internal/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// AllowedOrigins — origin-ы сайтов с виджетом; пусто — любой.
	AllowedOrigins []string
	// RateRPS/RateBurst — лимит чтений прокси на IP; RateRPS <= 0 выключает лимит.
	RateRPS   float64
	RateBurst int
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(),            // счётчики по шаблону маршрута
		middleware.CORS(opts.AllowedOrigins),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	root.Route("/api", func(r chi.Router) {
		registerRoutes(r, h, opts)
	})

	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, opts Options) {
	// discussions (лимит на IP)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateRPS, opts.RateBurst))
		r.Get("/discussions", h.ListDiscussion)
		r.Get("/discussions/categories", h.ListCategories)
	})

	// oauth
	r.Get("/oauth/authorize", h.Authorize)
	r.Get("/oauth/callback", h.Callback)
	r.Post("/oauth/token", h.Token)
}

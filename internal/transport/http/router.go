package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/chat-service/pkg/httputil"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Handler     *Handler
	WS          http.HandlerFunc
	Auth        httpmw.Authenticator
	Limiter     *httpmw.RateLimiter // только POST сообщений; nil - без лимита
	Health      HealthChecker       // nil - всегда ok
	Logger      *slog.Logger
	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(httputil.MiddlewareRequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(httputil.RequestLogger(d.Logger))
	r.Use(middlewareChi.Recoverer)
	r.Use(httpmw.Metrics)

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID", "X-User-Name"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Health.Ping(ctx); err != nil {
				httputil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.OK(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// WS endpoint, авторизация внутри (access_token в query)
	if d.WS != nil {
		r.Get("/ws", d.WS)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.Auth(d.Auth))
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Route("/groups", func(gr chi.Router) {
			gr.Post("/", d.Handler.CreateGroup)
			gr.Get("/", d.Handler.UserGroups)

			gr.Route("/{id}", func(rr chi.Router) {
				rr.Post("/members", d.Handler.AddMember)
				rr.Get("/messages", d.Handler.History)
				if d.Limiter != nil {
					rr.With(d.Limiter.Middleware).Post("/messages", d.Handler.PostMessage)
				} else {
					rr.Post("/messages", d.Handler.PostMessage)
				}
			})
		})
		pr.Get("/users/search", d.Handler.SearchUsers)
	})

	return r
}

package rest

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string
	MaxUploadBytes int64
}

type Deps struct {
	Auth     Authenticator
	Posts    ports.PostService
	Identity ports.IdentityService
	Images   ports.ImageService
	Live     http.Handler // endpoint websocket, optionnel
}

// NewRouter assemble la chaîne : OTEL (racine) -> CORS -> chi (request id, logs, recover, auth) -> handlers.
func NewRouter(cfg RouterConfig, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(AuthMiddleware(deps.Auth))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Mount("/auth", NewAuthHandler(deps.Identity).Routes())
	r.Mount("/feed", NewFeedHandler(deps.Posts).Routes())

	images := NewImageHandler(deps.Images, cfg.MaxUploadBytes)
	r.Put("/post-image", images.Upload)
	r.Get("/images/*", images.Serve)

	if deps.Live != nil {
		r.Handle("/ws", deps.Live)
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type", "traceparent", "baggage"},
	})

	var h http.Handler = c.Handler(r)
	h = otelhttp.NewHandler(h, cfg.ServiceName, otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
		return fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
	}))
	return h
}

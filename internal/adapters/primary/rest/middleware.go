package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
)

// Authenticator dérive l'AuthContext depuis le header Authorization.
type Authenticator interface {
	AuthenticateHeader(header string) domain.AuthContext
}

// Clé privée pour le contexte (évite les collisions)
type contextKey struct{ name string }

var authCtxKey = &contextKey{"auth"}

// AuthMiddleware est permissif : il ne rejette jamais une requête.
// Un token absent ou invalide donne un contexte anonyme ; chaque opération
// décide elle-même si l'authentification est requise.
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := auth.AuthenticateHeader(r.Header.Get("Authorization"))
			ctx := context.WithValue(r.Context(), authCtxKey, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ForContext récupère l'AuthContext posé par AuthMiddleware (anonyme sinon).
func ForContext(ctx context.Context) domain.AuthContext {
	ac, ok := ctx.Value(authCtxKey).(domain.AuthContext)
	if !ok {
		return domain.Anonymous()
	}
	return ac
}

// requestLogger logue chaque requête avec slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
)

// ErrorResponse est le corps de toutes les erreurs.
type ErrorResponse struct {
	Message string              `json:"message"`
	Data    []domain.FieldError `json:"data,omitempty"`
}

// writeError traduit les erreurs du domaine en statut HTTP.
// Le texte des erreurs internes n'est jamais renvoyé au client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := errorResponse(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

func errorResponse(err error) (int, ErrorResponse) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, ErrorResponse{Message: "Validation failed.", Data: verr.Fields}
	case errors.Is(err, domain.ErrInternal):
		return http.StatusInternalServerError, ErrorResponse{Message: "Internal server error."}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorResponse{Message: "Not authenticated."}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorResponse{Message: "Wrong email or password."}
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, ErrorResponse{Message: "Invalid token."}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Message: "Not authorized!"}
	case errors.Is(err, domain.ErrPostNotFound):
		return http.StatusNotFound, ErrorResponse{Message: "Could not find post."}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, ErrorResponse{Message: "User not found."}
	case errors.Is(err, domain.ErrImageNotFound):
		return http.StatusNotFound, ErrorResponse{Message: "Image not found."}
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		return http.StatusConflict, ErrorResponse{Message: "E-Mail exists already!"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Message: "Internal server error."}
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Message: msg})
}

package rest

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
)

type AuthHandler struct {
	identity ports.IdentityService
}

func NewAuthHandler(identity ports.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Put("/signup", h.Signup)
	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)
	r.Get("/status", h.GetStatus)
	r.Patch("/status", h.UpdateStatus)

	return r
}

type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message   string `json:"message"`
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	ExpiresIn int64  `json:"expiresIn"` // secondes
}

// StatusRequest accepte aussi "newStatus", l'ancien nom du champ.
type StatusRequest struct {
	Status    *string `json:"status"`
	NewStatus *string `json:"newStatus"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "Invalid request body.")
		return
	}

	user, err := h.identity.Signup(r.Context(), ports.SignupCmd{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"message": "New User was created", "userId": user.ID})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "Invalid request body.")
		return
	}

	resp, err := h.identity.Login(r.Context(), ports.LoginCmd{Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, LoginResponse{
		Message:   "Logged successfully",
		Token:     resp.AccessToken,
		UserID:    resp.User.ID,
		ExpiresIn: int64(resp.ExpiresIn.Seconds()),
	})
}

func (h *AuthHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.GetUser(r.Context(), ForContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": user.Status})
}

func (h *AuthHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "Invalid request body.")
		return
	}
	status := req.Status
	if status == nil {
		status = req.NewStatus
	}
	if status == nil {
		badRequest(w, r, "Missing status.")
		return
	}

	user, err := h.identity.UpdateStatus(r.Context(), ForContext(r.Context()), strings.TrimSpace(*status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": user.Status})
}

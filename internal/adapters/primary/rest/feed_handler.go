package rest

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
)

type FeedHandler struct {
	posts ports.PostService
}

func NewFeedHandler(posts ports.PostService) *FeedHandler {
	return &FeedHandler{posts: posts}
}

func (h *FeedHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/posts", h.ListPosts)
	r.Post("/posts", h.CreatePost)
	r.Get("/posts/{postID}", h.GetPost)
	r.Put("/posts/{postID}", h.UpdatePost)
	r.Delete("/posts/{postID}", h.DeletePost)

	return r
}

// PostRequest : imageUrl absent (null) en update signifie "garder l'image".
type PostRequest struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	ImageURL *string `json:"imageUrl"`
}

func (req PostRequest) toInput() domain.PostInput {
	return domain.PostInput{Title: req.Title, Content: req.Content, ImageURL: req.ImageURL}
}

type ListPostsResponse struct {
	Message    string         `json:"message"`
	Posts      []*domain.Post `json:"posts"`
	TotalItems int            `json:"totalItems"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
}

type PostResponse struct {
	Message string          `json:"message"`
	Post    *domain.Post    `json:"post"`
	Creator *domain.Creator `json:"creator,omitempty"`
}

func (h *FeedHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	// Une page absente ou illisible vaut 1
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	result, err := h.posts.ListPosts(r.Context(), ForContext(r.Context()), page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, ListPostsResponse{
		Message:    "DB fetched successfully",
		Posts:      result.Posts,
		TotalItems: result.TotalPosts,
		Page:       result.Page,
		PageSize:   result.PageSize,
	})
}

func (h *FeedHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetPost(r.Context(), ForContext(r.Context()), chi.URLParam(r, "postID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, PostResponse{Message: "Post fetched successfully", Post: post})
}

func (h *FeedHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req PostRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "Invalid request body.")
		return
	}

	post, err := h.posts.CreatePost(r.Context(), ForContext(r.Context()), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, PostResponse{
		Message: "Post created successfully!",
		Post:    post,
		Creator: &post.Creator,
	})
}

func (h *FeedHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var req PostRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "Invalid request body.")
		return
	}

	post, err := h.posts.UpdatePost(r.Context(), ForContext(r.Context()), chi.URLParam(r, "postID"), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, PostResponse{Message: "Post updated successfully", Post: post})
}

func (h *FeedHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.DeletePost(r.Context(), ForContext(r.Context()), chi.URLParam(r, "postID")); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"message": "Post deleted successfully!"})
}

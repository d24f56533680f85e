package rest

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
)

const defaultMaxUploadBytes = 10 << 20

type ImageHandler struct {
	images   ports.ImageService
	maxBytes int64
}

func NewImageHandler(images ports.ImageService, maxBytes int64) *ImageHandler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &ImageHandler{images: images, maxBytes: maxBytes}
}

// Upload reçoit un fichier unique (champ multipart "image").
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	auth := ForContext(r.Context())
	if !auth.IsAuthenticated {
		writeError(w, r, domain.ErrUnauthenticated)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			render.Status(r, http.StatusRequestEntityTooLarge)
			render.JSON(w, r, ErrorResponse{Message: "File too large."})
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			render.JSON(w, r, map[string]string{"message": "No file provided!"})
		default:
			badRequest(w, r, "Invalid multipart body.")
		}
		return
	}
	defer file.Close()

	ref, err := h.images.Upload(r.Context(), auth, ports.UploadImageCmd{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Body:     file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"message": "File stored.", "filePath": ref})
}

// Serve sert /images/* depuis le Blob Store.
func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ref := domain.ImagePrefix + "/" + chi.URLParam(r, "*")

	body, info, err := h.images.Open(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", info.ContentType)
	if rs, ok := body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, ref, info.UpdatedAt, rs)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Last-Modified", info.UpdatedAt.UTC().Format(http.TimeFormat))
	if _, err := io.Copy(w, body); err != nil {
		slog.WarnContext(r.Context(), "Failed to stream image", "path", ref, "error", err)
	}
}

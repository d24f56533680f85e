package services

import (
	"context"
	"io"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
)

// ImageService gère l'upload d'une image unique, avant qu'un post ne la référence.
type ImageService struct {
	blobs ports.BlobStore
}

func NewImageService(blobs ports.BlobStore) *ImageService {
	return &ImageService{blobs: blobs}
}

func (s *ImageService) Upload(ctx context.Context, auth domain.AuthContext, cmd ports.UploadImageCmd) (string, error) {
	if !auth.IsAuthenticated {
		return "", domain.ErrUnauthenticated
	}
	if cmd.Body == nil {
		return "", &domain.ValidationError{Fields: []domain.FieldError{{Field: "image", Message: "No file provided"}}}
	}
	if !domain.IsAllowedImageType(cmd.MimeType) {
		return "", &domain.ValidationError{Fields: []domain.FieldError{{Field: "image", Message: "Only png, jpg and jpeg images are accepted"}}}
	}

	ref, err := s.blobs.Store(ctx, domain.NewImageKey(auth.UserID, cmd.Filename), cmd.MimeType, cmd.Body)
	if err != nil {
		return "", domain.Internal("store image", err)
	}
	return ref, nil
}

// Open sert une image stockée ; toute référence hors du préfixe images/ est inconnue.
func (s *ImageService) Open(ctx context.Context, ref string) (io.ReadCloser, *ports.BlobInfo, error) {
	clean, ok := domain.CleanImagePath(ref)
	if !ok {
		return nil, nil, domain.ErrImageNotFound
	}
	return s.blobs.Open(ctx, clean)
}

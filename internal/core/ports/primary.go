package ports

import (
	"context"
	"io"
	"time"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
)

// --- INPUTS ---

type SignupCmd struct {
	Email    string
	Name     string
	Password string
}

type LoginCmd struct {
	Email    string
	Password string
}

type UploadImageCmd struct {
	Filename string
	MimeType string
	Body     io.Reader
}

// --- OUTPUTS ---

type AuthResponse struct {
	User        *domain.User
	AccessToken string
	ExpiresIn   time.Duration
}

// --- PORTS PRIMAIRES (Driving) ---

// PostService est le gestionnaire du cycle de vie des posts.
// Toutes les opérations reçoivent l'AuthContext de la requête.
type PostService interface {
	ListPosts(ctx context.Context, auth domain.AuthContext, page int) (*domain.PostPage, error)
	GetPost(ctx context.Context, auth domain.AuthContext, postID string) (*domain.Post, error)
	CreatePost(ctx context.Context, auth domain.AuthContext, in domain.PostInput) (*domain.Post, error)
	UpdatePost(ctx context.Context, auth domain.AuthContext, postID string, in domain.PostInput) (*domain.Post, error)
	DeletePost(ctx context.Context, auth domain.AuthContext, postID string) error
}

type IdentityService interface {
	Signup(ctx context.Context, cmd SignupCmd) (*domain.User, error)
	Login(ctx context.Context, cmd LoginCmd) (*AuthResponse, error)
	GetUser(ctx context.Context, auth domain.AuthContext) (*domain.User, error)
	UpdateStatus(ctx context.Context, auth domain.AuthContext, status string) (*domain.User, error)
}

type ImageService interface {
	// Upload stocke l'image et retourne sa référence (chemin public).
	Upload(ctx context.Context, auth domain.AuthContext, cmd UploadImageCmd) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, *BlobInfo, error)
}

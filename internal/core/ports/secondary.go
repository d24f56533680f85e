package ports

import (
	"context"
	"io"
	"time"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
)

// --- PERSISTANCE ---

// PostRepository stocke les posts. Les lectures résolvent le nom du créateur.
type PostRepository interface {
	Save(ctx context.Context, post *domain.Post) error
	FindByID(ctx context.Context, postID string) (*domain.Post, error)
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, postID string) error

	// List retourne une page triée par created_at décroissant et le total.
	List(ctx context.Context, offset, limit int) ([]*domain.Post, int, error)

	// CountByImage compte les posts qui référencent encore l'image.
	CountByImage(ctx context.Context, imageRef string) (int, error)
}

// UserRepository est le Credential Store, propriétaire de l'ensemble des posts d'un user.
type UserRepository interface {
	Save(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error

	AddPost(ctx context.Context, userID, postID string) error
	RemovePost(ctx context.Context, userID, postID string) error

	// ReconcileOwnedPosts resynchronise l'ensemble possédé avec posts.creator.
	ReconcileOwnedPosts(ctx context.Context) (added, removed int, err error)
}

// Transactor exécute fn dans une transaction quand le store le permet.
// Sans support transactionnel, fn s'exécute directement (deux écritures séparées).
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// --- STOCKAGE BLOB ---

type BlobInfo struct {
	ContentType string
	Size        int64
	UpdatedAt   time.Time
}

type BlobStore interface {
	Store(ctx context.Context, key, mimeType string, r io.Reader) (string, error)
	Remove(ctx context.Context, ref string) error
	Open(ctx context.Context, ref string) (io.ReadCloser, *BlobInfo, error)
}

// --- NOTIFICATIONS ---

// EventPublisher diffuse les LifecycleEvent. Publish ne doit jamais bloquer
// l'appelant sur la livraison.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LifecycleEvent) error
}

// --- SÉCURITÉ ---

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenProvider interface {
	Generate(user *domain.User) (token string, expiresIn time.Duration, err error)
	Validate(token string) (*domain.Claims, error)
}

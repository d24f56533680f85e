package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
)

const (
	DefaultPageSize    = 2
	defaultBlobTimeout = 30 * time.Second
)

// PostConfig est passée explicitement à la construction (pas d'état global).
type PostConfig struct {
	PageSize    int
	BlobTimeout time.Duration // budget des suppressions d'images en arrière-plan
}

type PostService struct {
	posts     ports.PostRepository
	users     ports.UserRepository
	tx        ports.Transactor
	blobs     ports.BlobStore
	publisher ports.EventPublisher

	cfg   PostConfig
	now   func() time.Time
	locks *stripedLock

	// Suppressions d'images en cours (fire-and-forget, drainées par Wait).
	pending sync.WaitGroup
}

type PostOption func(*PostService)

// WithClock remplace l'horloge (tests).
func WithClock(now func() time.Time) PostOption {
	return func(s *PostService) { s.now = now }
}

func NewPostService(
	posts ports.PostRepository,
	users ports.UserRepository,
	tx ports.Transactor,
	blobs ports.BlobStore,
	publisher ports.EventPublisher,
	cfg PostConfig,
	opts ...PostOption,
) *PostService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.BlobTimeout <= 0 {
		cfg.BlobTimeout = defaultBlobTimeout
	}

	s := &PostService{
		posts:     posts,
		users:     users,
		tx:        tx,
		blobs:     blobs,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		locks:     newStripedLock(64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- QUERIES (Read) ---

func (s *PostService) ListPosts(ctx context.Context, auth domain.AuthContext, page int) (*domain.PostPage, error) {
	if !auth.IsAuthenticated {
		return nil, domain.ErrUnauthenticated
	}

	page, offset := domain.Offset(page, s.cfg.PageSize)
	posts, total, err := s.posts.List(ctx, offset, s.cfg.PageSize)
	if err != nil {
		return nil, domain.Internal("list posts", err)
	}
	if posts == nil {
		posts = []*domain.Post{}
	}

	return &domain.PostPage{
		Posts:      posts,
		TotalPosts: total,
		Page:       page,
		PageSize:   s.cfg.PageSize,
	}, nil
}

func (s *PostService) GetPost(ctx context.Context, auth domain.AuthContext, postID string) (*domain.Post, error) {
	if !auth.IsAuthenticated {
		return nil, domain.ErrUnauthenticated
	}
	return s.loadPost(ctx, postID)
}

// --- COMMANDS (Write) ---

func (s *PostService) CreatePost(ctx context.Context, auth domain.AuthContext, in domain.PostInput) (*domain.Post, error) {
	// 1. Authentification puis validation : aucune écriture avant ces contrôles
	if !auth.IsAuthenticated {
		return nil, domain.ErrUnauthenticated
	}
	if err := domain.ValidatePostInput(in, true); err != nil {
		return nil, err
	}
	// L'image doit avoir été uploadée par l'appelant
	imageRef, err := domain.CheckImageOwner(*in.ImageURL, auth.UserID)
	if err != nil {
		return nil, err
	}

	// 2. Le créateur doit exister (token valide mais user supprimé => "invalid user")
	user, err := s.users.GetByID(ctx, auth.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, domain.Internal("load creator", err)
	}

	now := s.now().UTC()
	post := &domain.Post{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Content:   in.Content,
		ImageURL:  imageRef,
		Creator:   domain.Creator{ID: user.ID, Name: user.Name},
		CreatedAt: now,
		UpdatedAt: now,
	}

	// 3. Deux écritures : post puis ensemble possédé (append-then-persist).
	// Une seule transaction quand le store le permet ; sinon un échec de la
	// seconde écriture laisse un écart que ReconcileOwnership répare.
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.posts.Save(ctx, post); err != nil {
			return domain.Internal("save post", err)
		}
		if err := s.users.AddPost(ctx, user.ID, post.ID); err != nil {
			slog.Error("Failed to append post to owner", "post_id", post.ID, "user_id", user.ID, "error", err)
			return domain.Internal("append owned post", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 4. Fan-out
	s.publish(ctx, domain.PostCreated(post))

	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, auth domain.AuthContext, postID string, in domain.PostInput) (*domain.Post, error) {
	if !auth.IsAuthenticated {
		return nil, domain.ErrUnauthenticated
	}

	unlock := s.locks.Lock(postID)
	defer unlock()

	// 1. Récupérer l'existant
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	// 2. Propriété avant validation : un non-propriétaire reçoit toujours Forbidden
	if !post.IsOwnedBy(auth.UserID) {
		return nil, domain.ErrForbidden
	}
	if err := domain.ValidatePostInput(in, false); err != nil {
		return nil, err
	}

	// 3. Mise à jour des champs ; pas de nouvelle image => on garde l'ancienne
	oldImage := post.ImageURL
	updated := *post
	updated.Title = in.Title
	updated.Content = in.Content
	if in.ImageURL != nil && *in.ImageURL != oldImage {
		imageRef, err := domain.CheckImageOwner(*in.ImageURL, auth.UserID)
		if err != nil {
			return nil, err
		}
		updated.ImageURL = imageRef
	}
	updated.UpdatedAt = s.now().UTC()

	// 4. Sauvegarde
	if err := s.posts.Update(ctx, &updated); err != nil {
		if errors.Is(err, domain.ErrPostNotFound) {
			return nil, domain.ErrPostNotFound
		}
		return nil, domain.Internal("update post", err)
	}

	// 5. L'ancienne image n'est supprimée qu'une fois le nouvel état sauvé
	if updated.ImageURL != oldImage {
		s.removeImage(ctx, oldImage, post.Creator.ID)
	}

	s.publish(ctx, domain.PostUpdated(&updated))

	return &updated, nil
}

func (s *PostService) DeletePost(ctx context.Context, auth domain.AuthContext, postID string) error {
	if !auth.IsAuthenticated {
		return domain.ErrUnauthenticated
	}

	unlock := s.locks.Lock(postID)
	defer unlock()

	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return err
	}
	if !post.IsOwnedBy(auth.UserID) {
		return domain.ErrForbidden
	}

	// Suppression du post puis pull de l'ensemble possédé (pull-then-persist)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.posts.Delete(ctx, post.ID); err != nil {
			if errors.Is(err, domain.ErrPostNotFound) {
				return domain.ErrPostNotFound
			}
			return domain.Internal("delete post", err)
		}
		if err := s.users.RemovePost(ctx, post.Creator.ID, post.ID); err != nil {
			slog.Error("Failed to pull post from owner", "post_id", post.ID, "user_id", post.Creator.ID, "error", err)
			return domain.Internal("pull owned post", err)
		}
		return nil
	})

	// L'image est retirée quel que soit le résultat de la suppression du record
	s.removeImage(ctx, post.ImageURL, post.Creator.ID)

	if err != nil {
		return err
	}

	s.publish(ctx, domain.PostDeleted(post.ID))
	return nil
}

// ReconcileOwnership répare les écarts entre posts.creator et l'ensemble possédé
// (écritures en deux temps interrompues).
func (s *PostService) ReconcileOwnership(ctx context.Context) error {
	added, removed, err := s.users.ReconcileOwnedPosts(ctx)
	if err != nil {
		return domain.Internal("reconcile owned posts", err)
	}
	if added > 0 || removed > 0 {
		slog.Warn("Owned posts reconciled", "added", added, "removed", removed)
	}
	return nil
}

// Wait attend la fin des suppressions d'images en arrière-plan (shutdown, tests).
func (s *PostService) Wait() {
	s.pending.Wait()
}

// --- HELPERS ---

func (s *PostService) loadPost(ctx context.Context, postID string) (*domain.Post, error) {
	if postID == "" {
		return nil, domain.ErrPostNotFound
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, domain.ErrPostNotFound) {
			return nil, domain.ErrPostNotFound
		}
		return nil, domain.Internal("find post", err)
	}
	return post, nil
}

// removeImage est fire-and-forget : l'erreur est loguée, jamais remontée.
// L'image n'est supprimée que si elle appartient à ownerID et qu'aucun post
// ne la référence encore.
func (s *PostService) removeImage(ctx context.Context, ref, ownerID string) {
	if ref == "" {
		return
	}
	if _, err := domain.CheckImageOwner(ref, ownerID); err != nil {
		slog.Warn("Image not owned by post creator, keeping it", "path", ref, "user_id", ownerID)
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		// On garde les valeurs du contexte (trace) mais pas son annulation :
		// la requête HTTP peut se terminer avant la suppression.
		rmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.BlobTimeout)
		defer cancel()

		refs, err := s.posts.CountByImage(rmCtx, ref)
		if err != nil {
			slog.Warn("Failed to count image references, keeping image", "path", ref, "error", err)
			return
		}
		if refs > 0 {
			slog.Debug("Image still referenced", "path", ref, "posts", refs)
			return
		}

		if err := s.blobs.Remove(rmCtx, ref); err != nil {
			slog.Warn("Failed to remove image", "path", ref, "error", err)
			return
		}
		slog.Debug("Image removed", "path", ref)
	}()
}

func (s *PostService) publish(ctx context.Context, event domain.LifecycleEvent) {
	// Ne fait pas échouer la requête : la donnée est déjà sauvée.
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Error("Failed to publish lifecycle event", "action", event.Kind, "post_id", event.PostID, "error", err)
	}
}

package memory

import (
	"context"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
)

// userRecord porte l'ensemble possédé dans user.Posts, modifié uniquement
// via domain.User (AddPost / RemovePost).
type userRecord struct {
	user domain.User
}

type UserRepo struct {
	s *Store
}

func (r *UserRepo) Save(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.emails[user.Email]; taken {
		return domain.ErrEmailAlreadyExists
	}

	rec := &userRecord{user: *user}
	rec.user.Posts = append([]string{}, user.Posts...)
	r.s.users[user.ID] = rec
	r.s.emails[user.Email] = user.ID
	return nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.s.users[id].toDomain(), nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return rec.toDomain(), nil
}

// Update persiste le profil (email, nom, hash, statut) ; l'ensemble possédé
// n'est modifié que par AddPost / RemovePost.
func (r *UserRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if user.Email != rec.user.Email {
		if _, taken := r.s.emails[user.Email]; taken {
			return domain.ErrEmailAlreadyExists
		}
		delete(r.s.emails, rec.user.Email)
		r.s.emails[user.Email] = user.ID
	}

	rec.user.Email = user.Email
	rec.user.Name = user.Name
	rec.user.PasswordHash = user.PasswordHash
	rec.user.Status = user.Status
	rec.user.UpdatedAt = user.UpdatedAt
	return nil
}

func (r *UserRepo) AddPost(_ context.Context, userID, postID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	rec.user.AddPost(postID)
	return nil
}

func (r *UserRepo) RemovePost(_ context.Context, userID, postID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	rec.user.RemovePost(postID)
	return nil
}

func (r *UserRepo) ReconcileOwnedPosts(_ context.Context) (added, removed int, err error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// 1. Retirer les ids dont le post n'existe plus ou appartient à un autre
	for id, rec := range r.s.users {
		var stale []string
		for _, postID := range rec.user.Posts {
			if p, ok := r.s.posts[postID]; !ok || p.post.Creator.ID != id {
				stale = append(stale, postID)
			}
		}
		for _, postID := range stale {
			rec.user.RemovePost(postID)
			removed++
		}
	}

	// 2. Ajouter les posts absents de l'ensemble de leur créateur
	for postID, p := range r.s.posts {
		rec, ok := r.s.users[p.post.Creator.ID]
		if !ok {
			continue
		}
		if !rec.user.OwnsPost(postID) {
			rec.user.AddPost(postID)
			added++
		}
	}
	return added, removed, nil
}

// --- HELPERS ---

func (rec *userRecord) toDomain() *domain.User {
	u := rec.user
	u.Posts = append([]string{}, rec.user.Posts...)
	return &u
}

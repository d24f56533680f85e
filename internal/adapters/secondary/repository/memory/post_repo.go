package memory

import (
	"context"
	"sort"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
)

type postRecord struct {
	post domain.Post
	seq  int64 // départage les created_at identiques (insertion la plus récente d'abord)
}

type PostRepo struct {
	s *Store
}

func (r *PostRepo) Save(_ context.Context, post *domain.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[post.Creator.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.s.seq++
	rec := &postRecord{post: *post, seq: r.s.seq}
	rec.post.Creator.Name = ""
	r.s.posts[post.ID] = rec
	return nil
}

func (r *PostRepo) FindByID(_ context.Context, postID string) (*domain.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.posts[postID]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	return r.resolve(rec), nil
}

// Update ne touche ni au créateur ni à la date de création.
func (r *PostRepo) Update(_ context.Context, post *domain.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.posts[post.ID]
	if !ok {
		return domain.ErrPostNotFound
	}
	rec.post.Title = post.Title
	rec.post.Content = post.Content
	rec.post.ImageURL = post.ImageURL
	rec.post.UpdatedAt = post.UpdatedAt
	return nil
}

func (r *PostRepo) Delete(_ context.Context, postID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[postID]; !ok {
		return domain.ErrPostNotFound
	}
	delete(r.s.posts, postID)
	return nil
}

func (r *PostRepo) List(_ context.Context, offset, limit int) ([]*domain.Post, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recs := make([]*postRecord, 0, len(r.s.posts))
	for _, rec := range r.s.posts {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.post.CreatedAt.Equal(b.post.CreatedAt) {
			return a.post.CreatedAt.After(b.post.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := len(recs)
	if offset < 0 {
		offset = 0
	}
	if offset >= total || limit <= 0 {
		return []*domain.Post{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	posts := make([]*domain.Post, 0, end-offset)
	for _, rec := range recs[offset:end] {
		posts = append(posts, r.resolve(rec))
	}
	return posts, total, nil
}

func (r *PostRepo) CountByImage(_ context.Context, imageRef string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, rec := range r.s.posts {
		if rec.post.ImageURL == imageRef {
			n++
		}
	}
	return n, nil
}

// resolve retourne une copie avec le nom du créateur à jour.
func (r *PostRepo) resolve(rec *postRecord) *domain.Post {
	p := rec.post
	if u, ok := r.s.users[p.Creator.ID]; ok {
		p.Creator.Name = u.user.Name
	}
	return &p
}

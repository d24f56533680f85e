package memory

import (
	"context"
	"testing"
	"time"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, s *Store, email, name string) *domain.User {
	t.Helper()
	u := domain.NewUser(email, name, "hash")
	require.NoError(t, s.Users().Save(context.Background(), u))
	return u
}

func newPost(id, creatorID string, at time.Time) *domain.Post {
	return &domain.Post{
		ID:        id,
		Title:     "Title " + id,
		Content:   "Content",
		ImageURL:  "images/" + id + ".png",
		Creator:   domain.Creator{ID: creatorID},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestUserRepo_SaveAndLookup(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, "max@example.com", "Max")

	byEmail, err := s.Users().GetByEmail(ctx, "max@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Max", byID.Name)
	assert.Empty(t, byID.Posts)

	_, err = s.Users().GetByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	dup := domain.NewUser("max@example.com", "Other", "hash")
	assert.ErrorIs(t, s.Users().Save(ctx, dup), domain.ErrEmailAlreadyExists)
}

func TestUserRepo_UpdateStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, "max@example.com", "Max")

	u.UpdateStatus("busy")
	require.NoError(t, s.Users().Update(ctx, u))

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "busy", got.Status)

	ghost := domain.NewUser("ghost@example.com", "Ghost", "hash")
	assert.ErrorIs(t, s.Users().Update(ctx, ghost), domain.ErrUserNotFound)
}

func TestUserRepo_OwnedSet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, "max@example.com", "Max")

	require.NoError(t, s.Users().AddPost(ctx, u.ID, "p1"))
	require.NoError(t, s.Users().AddPost(ctx, u.ID, "p1"))
	require.NoError(t, s.Users().AddPost(ctx, u.ID, "p2"))

	got, _ := s.Users().GetByID(ctx, u.ID)
	assert.Equal(t, []string{"p1", "p2"}, got.Posts)

	require.NoError(t, s.Users().RemovePost(ctx, u.ID, "p1"))
	got, _ = s.Users().GetByID(ctx, u.ID)
	assert.Equal(t, []string{"p2"}, got.Posts)

	assert.ErrorIs(t, s.Users().AddPost(ctx, "nope", "p3"), domain.ErrUserNotFound)
}

func TestPostRepo_CreatorNameResolvedOnRead(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, "max@example.com", "Max")

	require.NoError(t, s.Posts().Save(ctx, newPost("p1", u.ID, time.Now())))

	p, err := s.Posts().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Max", p.Creator.Name)

	// Le nom suit le profil, il n'est pas figé dans le post
	u.Name = "Maxime"
	require.NoError(t, s.Users().Update(ctx, u))
	p, err = s.Posts().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Maxime", p.Creator.Name)
}

func TestPostRepo_SaveUnknownCreator(t *testing.T) {
	s := NewStore()
	err := s.Posts().Save(context.Background(), newPost("p1", "ghost", time.Now()))
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestPostRepo_UpdateAndDelete(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, "max@example.com", "Max")
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Posts().Save(ctx, newPost("p1", u.ID, created)))

	upd := newPost("p1", "someone-else", created.Add(time.Hour))
	upd.Title = "Changed"
	upd.UpdatedAt = created.Add(time.Hour)
	require.NoError(t, s.Posts().Update(ctx, upd))

	got, err := s.Posts().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Changed", got.Title)
	assert.Equal(t, u.ID, got.Creator.ID, "creator is immutable")
	assert.True(t, got.CreatedAt.Equal(created))

	require.NoError(t, s.Posts().Delete(ctx, "p1"))
	assert.ErrorIs(t, s.Posts().Delete(ctx, "p1"), domain.ErrPostNotFound)
	assert.ErrorIs(t, s.Posts().Update(ctx, upd), domain.ErrPostNotFound)
	_, err = s.Posts().FindByID(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestPostRepo_ListOrderingAndPaging(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, "max@example.com", "Max")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Posts().Save(ctx, newPost("old", u.ID, base)))
	require.NoError(t, s.Posts().Save(ctx, newPost("mid", u.ID, base.Add(time.Minute))))
	require.NoError(t, s.Posts().Save(ctx, newPost("new", u.ID, base.Add(2*time.Minute))))
	// Même horodatage que "new" mais inséré après
	require.NoError(t, s.Posts().Save(ctx, newPost("tie", u.ID, base.Add(2*time.Minute))))

	page, total, err := s.Posts().List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "tie", page[0].ID)
	assert.Equal(t, "new", page[1].ID)

	page, _, err = s.Posts().List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "mid", page[0].ID)
	assert.Equal(t, "old", page[1].ID)

	page, total, err = s.Posts().List(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Equal(t, 4, total)
}

func TestUserRepo_ReconcileOwnedPosts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	a := seedUser(t, s, "a@example.com", "Alice")
	b := seedUser(t, s, "b@example.com", "Bob")

	// p1 existe mais n'est dans aucun ensemble ; "gone" est dans l'ensemble sans post ;
	// p2 appartient à a mais figure chez b.
	require.NoError(t, s.Posts().Save(ctx, newPost("p1", a.ID, time.Now())))
	require.NoError(t, s.Posts().Save(ctx, newPost("p2", a.ID, time.Now())))
	require.NoError(t, s.Users().AddPost(ctx, a.ID, "gone"))
	require.NoError(t, s.Users().AddPost(ctx, b.ID, "p2"))

	added, removed, err := s.Users().ReconcileOwnedPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 2, removed)

	gotA, _ := s.Users().GetByID(ctx, a.ID)
	assert.ElementsMatch(t, []string{"p1", "p2"}, gotA.Posts)
	gotB, _ := s.Users().GetByID(ctx, b.ID)
	assert.Empty(t, gotB.Posts)

	// Idempotent
	added, removed, err = s.Users().ReconcileOwnedPosts(ctx)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Zero(t, removed)
}

func TestPostRepo_CountByImage(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, "max@example.com", "Max")

	shared := newPost("a", u.ID, time.Now())
	other := newPost("b", u.ID, time.Now())
	other.ImageURL = shared.ImageURL
	require.NoError(t, s.Posts().Save(ctx, shared))
	require.NoError(t, s.Posts().Save(ctx, other))

	n, err := s.Posts().CountByImage(ctx, shared.ImageURL)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Posts().Delete(ctx, "a"))
	n, err = s.Posts().CountByImage(ctx, shared.ImageURL)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Posts().CountByImage(ctx, "images/unknown.png")
	require.NoError(t, err)
	assert.Zero(t, n)
}

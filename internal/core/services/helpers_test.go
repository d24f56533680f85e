package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
)

// --- Horloge ---

// stepClock avance d'une minute à chaque lecture : créations strictement ordonnées.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

// --- Publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LifecycleEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.LifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Events() []domain.LifecycleEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.LifecycleEvent(nil), p.events...)
}

// --- Décorateurs de stores ---

// spyPosts compte les accès au Post Store.
type spyPosts struct {
	ports.PostRepository
	calls atomic.Int32
}

func (s *spyPosts) Save(ctx context.Context, p *domain.Post) error {
	s.calls.Add(1)
	return s.PostRepository.Save(ctx, p)
}

func (s *spyPosts) FindByID(ctx context.Context, id string) (*domain.Post, error) {
	s.calls.Add(1)
	return s.PostRepository.FindByID(ctx, id)
}

func (s *spyPosts) Update(ctx context.Context, p *domain.Post) error {
	s.calls.Add(1)
	return s.PostRepository.Update(ctx, p)
}

func (s *spyPosts) Delete(ctx context.Context, id string) error {
	s.calls.Add(1)
	return s.PostRepository.Delete(ctx, id)
}

func (s *spyPosts) List(ctx context.Context, offset, limit int) ([]*domain.Post, int, error) {
	s.calls.Add(1)
	return s.PostRepository.List(ctx, offset, limit)
}

// spyUsers compte les accès au Credential Store et peut faire échouer
// les écritures de l'ensemble possédé.
type spyUsers struct {
	ports.UserRepository
	calls         atomic.Int32
	addPostErr    error
	removePostErr error
}

func (s *spyUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	s.calls.Add(1)
	return s.UserRepository.GetByID(ctx, id)
}

func (s *spyUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.calls.Add(1)
	return s.UserRepository.GetByEmail(ctx, email)
}

func (s *spyUsers) Save(ctx context.Context, u *domain.User) error {
	s.calls.Add(1)
	return s.UserRepository.Save(ctx, u)
}

func (s *spyUsers) Update(ctx context.Context, u *domain.User) error {
	s.calls.Add(1)
	return s.UserRepository.Update(ctx, u)
}

func (s *spyUsers) AddPost(ctx context.Context, userID, postID string) error {
	s.calls.Add(1)
	if s.addPostErr != nil {
		return s.addPostErr
	}
	return s.UserRepository.AddPost(ctx, userID, postID)
}

func (s *spyUsers) RemovePost(ctx context.Context, userID, postID string) error {
	s.calls.Add(1)
	if s.removePostErr != nil {
		return s.removePostErr
	}
	return s.UserRepository.RemovePost(ctx, userID, postID)
}

var errStoreDown = errors.New("store down")

// --- Sécurité ---

// plainHasher évite le coût d'Argon2 dans les tests du cœur.
type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "plain:" + pw, nil }

func (plainHasher) Compare(hash, pw string) error {
	if hash != "plain:"+pw {
		return errors.New("mismatch")
	}
	return nil
}

// stubTokens : token = "tok:<userID>".
type stubTokens struct{}

func (stubTokens) Generate(u *domain.User) (string, time.Duration, error) {
	return "tok:" + u.ID, time.Hour, nil
}

func (stubTokens) Validate(token string) (*domain.Claims, error) {
	id, ok := strings.CutPrefix(token, "tok:")
	if !ok || id == "" {
		return nil, domain.ErrInvalidToken
	}
	return &domain.Claims{UserID: id}, nil
}

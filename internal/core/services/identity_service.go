package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
)

// IdentityService implémente ports.IdentityService : inscription, login, statut.
type IdentityService struct {
	repo          ports.UserRepository
	hasher        ports.PasswordHasher
	tokenProvider ports.TokenProvider
}

func NewIdentityService(repo ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenProvider) *IdentityService {
	return &IdentityService{
		repo:          repo,
		hasher:        hasher,
		tokenProvider: tokens,
	}
}

// --- AUTHENTIFICATION ---

func (s *IdentityService) Signup(ctx context.Context, cmd ports.SignupCmd) (*domain.User, error) {
	// 1. Validation des entrées (toutes les violations d'un coup)
	if err := domain.ValidateSignup(cmd.Email, cmd.Name, cmd.Password); err != nil {
		return nil, err
	}

	// 2. Unicité de l'email (vérification "soft", la contrainte UNIQUE reste l'arbitre)
	existing, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(cmd.Email))
	if err == nil && existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.Internal("lookup email", err)
	}

	// 3. Hachage
	hash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, domain.Internal("hash password", err)
	}

	// 4. Persistance
	user := domain.NewUser(cmd.Email, cmd.Name, hash)
	if err := s.repo.Save(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return nil, domain.ErrEmailAlreadyExists
		}
		return nil, domain.Internal("save user", err)
	}

	return user, nil
}

func (s *IdentityService) Login(ctx context.Context, cmd ports.LoginCmd) (*ports.AuthResponse, error) {
	user, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(cmd.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.Internal("lookup email", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, cmd.Password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, expiresIn, err := s.tokenProvider.Generate(user)
	if err != nil {
		return nil, domain.Internal("generate token", fmt.Errorf("login token gen failed: %w", err))
	}

	return &ports.AuthResponse{
		User:        user,
		AccessToken: token,
		ExpiresIn:   expiresIn,
	}, nil
}

// --- GESTION UTILISATEUR ---

func (s *IdentityService) GetUser(ctx context.Context, auth domain.AuthContext) (*domain.User, error) {
	if !auth.IsAuthenticated {
		return nil, domain.ErrUnauthenticated
	}
	return s.loadUser(ctx, auth.UserID)
}

func (s *IdentityService) UpdateStatus(ctx context.Context, auth domain.AuthContext, status string) (*domain.User, error) {
	if !auth.IsAuthenticated {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.loadUser(ctx, auth.UserID)
	if err != nil {
		return nil, err
	}

	user.UpdateStatus(status)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, domain.Internal("update status", err)
	}
	return user, nil
}

func (s *IdentityService) loadUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Internal("get user", err)
	}
	return user, nil
}

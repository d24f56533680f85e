package services

import (
	"context"
	"testing"
	"time"

	"github.com/jupiterclapton/cenackle-feed/internal/adapters/secondary/repository/memory"
	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdentityFixture() (*IdentityService, *spyUsers) {
	users := &spyUsers{UserRepository: memory.NewStore().Users()}
	return NewIdentityService(users, plainHasher{}, stubTokens{}), users
}

func TestSignup_Success(t *testing.T) {
	svc, users := newIdentityFixture()
	ctx := context.Background()

	u, err := svc.Signup(ctx, ports.SignupCmd{Email: "  Alice@Example.com ", Name: "Alice", Password: "secret"})
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "plain:secret", u.PasswordHash)
	assert.Empty(t, u.Posts)

	stored, err := users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)
}

func TestSignup_Validation(t *testing.T) {
	svc, users := newIdentityFixture()

	_, err := svc.Signup(context.Background(), ports.SignupCmd{Email: "not-an-email", Name: "A", Password: "abc"})
	require.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"email", "name", "password"}, fields)
	assert.Zero(t, users.calls.Load())
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _ := newIdentityFixture()
	ctx := context.Background()

	_, err := svc.Signup(ctx, ports.SignupCmd{Email: "bob@example.com", Name: "Bob", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, ports.SignupCmd{Email: "BOB@example.com", Name: "Bobby", Password: "other"})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestLogin(t *testing.T) {
	svc, _ := newIdentityFixture()
	ctx := context.Background()

	u, err := svc.Signup(ctx, ports.SignupCmd{Email: "carol@example.com", Name: "Carol", Password: "secret"})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		res, err := svc.Login(ctx, ports.LoginCmd{Email: "Carol@example.com", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, "tok:"+u.ID, res.AccessToken)
		assert.Equal(t, time.Hour, res.ExpiresIn)
		assert.Equal(t, u.ID, res.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, ports.LoginCmd{Email: "carol@example.com", Password: "nope"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, ports.LoginCmd{Email: "nobody@example.com", Password: "secret"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestStatus(t *testing.T) {
	svc, _ := newIdentityFixture()
	ctx := context.Background()

	u, err := svc.Signup(ctx, ports.SignupCmd{Email: "dave@example.com", Name: "Dave", Password: "secret"})
	require.NoError(t, err)
	auth := domain.Authenticated(u.ID)

	got, err := svc.GetUser(ctx, auth)
	require.NoError(t, err)
	assert.Equal(t, "I am new!", got.Status)

	_, err = svc.UpdateStatus(ctx, auth, "  Busy  ")
	require.NoError(t, err)

	got, err = svc.GetUser(ctx, auth)
	require.NoError(t, err)
	assert.Equal(t, "Busy", got.Status)

	_, err = svc.GetUser(ctx, domain.Anonymous())
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = svc.UpdateStatus(ctx, domain.Anonymous(), "x")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = svc.GetUser(ctx, domain.Authenticated("ghost"))
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

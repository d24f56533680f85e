package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend(t *testing.T) {
	b := New()
	ctx := context.Background()

	ref, err := b.Store(ctx, "images/1_a.jpg", "image/jpeg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	assert.True(t, b.Exists(ref))
	assert.Equal(t, 1, b.Len())

	rc, info, err := b.Open(ctx, ref)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, "image/jpeg", info.ContentType)

	require.NoError(t, b.Remove(ctx, ref))
	assert.False(t, b.Exists(ref))
	assert.ErrorIs(t, b.Remove(ctx, ref), domain.ErrImageNotFound)

	_, _, err = b.Open(ctx, ref)
	assert.ErrorIs(t, err, domain.ErrImageNotFound)
}

func TestBackend_InvalidKey(t *testing.T) {
	_, err := New().Store(context.Background(), "other/x.png", "image/png", strings.NewReader("x"))
	assert.Error(t, err)
}

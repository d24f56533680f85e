package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_StoreOpenRemove(t *testing.T) {
	dir := t.TempDir()
	b, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := b.Store(ctx, "images/abc_cat.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "images/abc_cat.png", ref)
	assert.FileExists(t, filepath.Join(dir, "images", "abc_cat.png"))

	rc, info, err := b.Open(ctx, ref)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", info.ContentType)
	assert.EqualValues(t, 9, info.Size)

	require.NoError(t, b.Remove(ctx, ref))
	assert.NoFileExists(t, filepath.Join(dir, "images", "abc_cat.png"))
	// Le répertoire images/ vide est nettoyé, pas la racine
	assert.NoDirExists(t, filepath.Join(dir, "images"))
	assert.DirExists(t, dir)
}

func TestBackend_RemoveMissing(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	err = b.Remove(context.Background(), "images/nope.png")
	assert.ErrorIs(t, err, domain.ErrImageNotFound)
}

func TestBackend_OpenMissing(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	_, _, err = b.Open(context.Background(), "images/nope.png")
	assert.ErrorIs(t, err, domain.ErrImageNotFound)
}

func TestBackend_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	b, err := New(filepath.Join(dir, "store"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("x"), 0o600))

	_, err = b.Store(context.Background(), "../secret.txt", "image/png", strings.NewReader("x"))
	assert.Error(t, err)

	_, _, err = b.Open(context.Background(), "images/../../secret.txt")
	assert.ErrorIs(t, err, domain.ErrImageNotFound)

	assert.ErrorIs(t, b.Remove(context.Background(), "../secret.txt"), domain.ErrImageNotFound)
	assert.FileExists(t, filepath.Join(dir, "secret.txt"))
}

func TestBackend_StoreCancelled(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = b.Store(ctx, "images/x.png", "image/png", strings.NewReader("data"))
	assert.ErrorIs(t, err, context.Canceled)

	_, _, err = b.Open(context.Background(), "images/x.png")
	assert.ErrorIs(t, err, domain.ErrImageNotFound)
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

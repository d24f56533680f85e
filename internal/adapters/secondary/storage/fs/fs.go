package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
)

// Backend stocke les images sous un répertoire local.
// La référence retournée est la clé relative (images/<uuid>_<nom>).
type Backend struct {
	mu      sync.RWMutex
	baseDir string
}

func New(baseDir string) (*Backend, error) {
	if baseDir == "" {
		return nil, errors.New("base directory is required")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &Backend{baseDir: abs}, nil
}

func (b *Backend) Store(ctx context.Context, key, mimeType string, r io.Reader) (string, error) {
	clean, ok := domain.CleanImagePath(key)
	if !ok {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	filePath := b.path(clean)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(file, contextReader{ctx: ctx, r: r}); err != nil {
		file.Close()
		os.Remove(filePath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return clean, nil
}

func (b *Backend) Remove(_ context.Context, ref string) error {
	clean, ok := domain.CleanImagePath(ref)
	if !ok {
		return domain.ErrImageNotFound
	}
	filePath := b.path(clean)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrImageNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	b.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

func (b *Backend) Open(_ context.Context, ref string) (io.ReadCloser, *ports.BlobInfo, error) {
	clean, ok := domain.CleanImagePath(ref)
	if !ok {
		return nil, nil, domain.ErrImageNotFound
	}
	filePath := b.path(clean)

	b.mu.RLock()
	defer b.mu.RUnlock()

	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, domain.ErrImageNotFound
		}
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, nil, domain.ErrImageNotFound
	}

	contentType := mime.TypeByExtension(filepath.Ext(filePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return file, &ports.BlobInfo{
		ContentType: contentType,
		Size:        info.Size(),
		UpdatedAt:   info.ModTime(),
	}, nil
}

func (b *Backend) path(key string) string {
	return filepath.Join(b.baseDir, filepath.FromSlash(key))
}

// cleanupEmptyDirectories remonte jusqu'à baseDir en supprimant les répertoires vides.
func (b *Backend) cleanupEmptyDirectories(dir string) {
	if dir == b.baseDir || len(dir) <= len(b.baseDir) {
		return
	}
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}

// contextReader interrompt la copie quand la requête est annulée.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
)

type object struct {
	data        []byte
	contentType string
	updatedAt   time.Time
}

// Backend garde les images en mémoire (tests, DB_URL=memory sans STORAGE_URL).
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
}

func New() *Backend {
	return &Backend{objects: make(map[string]object)}
}

func (b *Backend) Store(_ context.Context, key, mimeType string, r io.Reader) (string, error) {
	clean, ok := domain.CleanImagePath(key)
	if !ok {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[clean] = object{data: data, contentType: mimeType, updatedAt: time.Now().UTC()}
	return clean, nil
}

func (b *Backend) Remove(_ context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.objects[ref]; !ok {
		return domain.ErrImageNotFound
	}
	delete(b.objects, ref)
	return nil
}

func (b *Backend) Open(_ context.Context, ref string) (io.ReadCloser, *ports.BlobInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[ref]
	if !ok {
		return nil, nil, domain.ErrImageNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), &ports.BlobInfo{
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
		UpdatedAt:   obj.updatedAt,
	}, nil
}

// Exists est utilisé par les tests pour observer les suppressions.
func (b *Backend) Exists(ref string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.objects[ref]
	return ok
}

// Len retourne le nombre d'objets stockés.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

package services

import (
	"context"
	"sync"
	"testing"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_FanOut(t *testing.T) {
	n := NewNotifier(4)
	a, b := n.Subscribe(), n.Subscribe()
	defer a.Close()
	defer b.Close()
	require.Equal(t, 2, n.Len())

	ev := domain.PostDeleted("p1")
	require.NoError(t, n.Publish(context.Background(), ev))

	assert.Equal(t, ev, <-a.Events())
	assert.Equal(t, ev, <-b.Events())
}

func TestNotifier_SlowObserverDropsWithoutBlocking(t *testing.T) {
	n := NewNotifier(1)
	slow := n.Subscribe()
	defer slow.Close()

	ctx := context.Background()
	require.NoError(t, n.Publish(ctx, domain.PostDeleted("first")))
	require.NoError(t, n.Publish(ctx, domain.PostDeleted("second")))

	got := <-slow.Events()
	assert.Equal(t, "first", got.PostID)
	select {
	case ev := <-slow.Events():
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestNotifier_CloseIsIdempotent(t *testing.T) {
	n := NewNotifier(0)
	o := n.Subscribe()

	o.Close()
	o.Close()
	assert.Zero(t, n.Len())

	_, ok := <-o.Events()
	assert.False(t, ok)

	// Plus aucun envoi vers un observateur fermé
	assert.NoError(t, n.Publish(context.Background(), domain.PostDeleted("p1")))
}

func TestNotifier_ConcurrentPublishAndClose(t *testing.T) {
	n := NewNotifier(8)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		o := n.Subscribe()
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = n.Publish(context.Background(), domain.PostDeleted("p"))
			}
		}()
		go func() {
			defer wg.Done()
			o.Close()
		}()
	}
	wg.Wait()
	assert.Zero(t, n.Len())
}

func TestStripedLock_SameKeySerialized(t *testing.T) {
	l := newStripedLock(4)
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("post-1")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
}

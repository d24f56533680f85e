package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
)

const defaultObserverBuffer = 16

// Notifier diffuse les LifecycleEvent à tous les observateurs connectés.
// Pas de replay, pas de file durable : un observateur absent ne reçoit rien,
// un observateur trop lent (buffer plein) perd l'événement.
type Notifier struct {
	mu        sync.RWMutex
	observers map[*Observer]struct{}
	buffer    int
}

func NewNotifier(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = defaultObserverBuffer
	}
	return &Notifier{
		observers: make(map[*Observer]struct{}),
		buffer:    buffer,
	}
}

// Observer est l'abonnement d'un client (une connexion websocket en pratique).
type Observer struct {
	ch     chan domain.LifecycleEvent
	parent *Notifier
	once   sync.Once
}

func (o *Observer) Events() <-chan domain.LifecycleEvent {
	return o.ch
}

// Close désabonne l'observateur et ferme son canal. Idempotent.
func (o *Observer) Close() {
	o.once.Do(func() {
		o.parent.mu.Lock()
		delete(o.parent.observers, o)
		close(o.ch)
		o.parent.mu.Unlock()
	})
}

func (n *Notifier) Subscribe() *Observer {
	o := &Observer{
		ch:     make(chan domain.LifecycleEvent, n.buffer),
		parent: n,
	}
	n.mu.Lock()
	n.observers[o] = struct{}{}
	n.mu.Unlock()
	return o
}

// Publish n'attend jamais : chaque envoi est non bloquant.
func (n *Notifier) Publish(_ context.Context, event domain.LifecycleEvent) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for o := range n.observers {
		select {
		case o.ch <- event:
		default:
			slog.Debug("Observer buffer full, dropping event", "action", event.Kind, "post_id", event.PostID)
		}
	}
	return nil
}

// Len retourne le nombre d'observateurs connectés.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

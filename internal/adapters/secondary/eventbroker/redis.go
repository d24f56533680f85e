package eventbroker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

const defaultPublishTimeout = 5 * time.Second

// RedisPublisher publie en Redis pub/sub sans bloquer l'appelant :
// l'envoi part dans une goroutine bornée par un timeout.
type RedisPublisher struct {
	client  redis.UniversalClient
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client, timeout: defaultPublishTimeout}
}

func (p *RedisPublisher) Publish(ctx context.Context, event domain.LifecycleEvent) error {
	data, err := encode(event)
	if err != nil {
		return err
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		if err := p.client.Publish(pubCtx, Subject, data).Err(); err != nil {
			slog.Error("❌ Redis publish failed", "action", event.Kind, "post_id", event.PostID, "error", err)
		}
	}()
	return nil
}

// Wait attend les publications en cours (shutdown).
func (p *RedisPublisher) Wait() {
	p.wg.Wait()
}

// RedisRelay consomme le channel Subject et republie dans le notifier local.
type RedisRelay struct {
	client redis.UniversalClient
	local  ports.EventPublisher
	done   chan struct{}
}

func NewRedisRelay(client redis.UniversalClient, local ports.EventPublisher) *RedisRelay {
	return &RedisRelay{client: client, local: local, done: make(chan struct{})}
}

// Start s'abonne puis consomme en arrière-plan jusqu'à l'annulation de ctx.
func (r *RedisRelay) Start(ctx context.Context) error {
	ps := r.client.Subscribe(ctx, Subject)
	// Receive attend la confirmation de l'abonnement
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	slog.Info("🎧 Listening for lifecycle events", "broker", "redis", "channel", Subject)

	go func() {
		defer close(r.done)
		defer ps.Close()

		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.handle(ctx, msg.Payload)
			}
		}
	}()
	return nil
}

// Done est fermé quand la boucle de consommation s'arrête.
func (r *RedisRelay) Done() <-chan struct{} {
	return r.done
}

func (r *RedisRelay) handle(ctx context.Context, payload string) {
	event, err := deliver(ctx, r.local, []byte(payload))
	if err != nil {
		slog.Error("❌ Failed to relay event", "broker", "redis", "error", err)
		return
	}
	slog.Debug("📨 Event relayed", "broker", "redis", "action", event.Kind, "post_id", event.PostID)
}

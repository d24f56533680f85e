package eventbroker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// NatsPublisher publie les LifecycleEvent en NATS core (fire-and-forget).
type NatsPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc, subject: Subject}
}

func (p *NatsPublisher) Publish(ctx context.Context, event domain.LifecycleEvent) error {
	msg, err := newMsg(ctx, p.subject, event)
	if err != nil {
		return err
	}

	slog.Debug("📢 Publishing event with trace context", "topic", msg.Subject, "action", event.Kind, "post_id", event.PostID)

	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

func newMsg(ctx context.Context, subject string, event domain.LifecycleEvent) (*nats.Msg, error) {
	data, err := encode(event)
	if err != nil {
		return nil, err
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	// Le trace ID de la requête HTTP voyage dans les headers NATS
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))
	return msg, nil
}

// NatsRelay consomme Subject et republie chaque event dans le notifier local.
type NatsRelay struct {
	nc    *nats.Conn
	local ports.EventPublisher
	sub   *nats.Subscription
}

func NewNatsRelay(nc *nats.Conn, local ports.EventPublisher) *NatsRelay {
	return &NatsRelay{nc: nc, local: local}
}

func (r *NatsRelay) Start() error {
	sub, err := r.nc.Subscribe(Subject, r.handle)
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	r.sub = sub
	slog.Info("🎧 Listening for lifecycle events", "broker", "nats", "subject", Subject)
	return nil
}

func (r *NatsRelay) Close() error {
	if r.sub == nil {
		return nil
	}
	return r.sub.Unsubscribe()
}

func (r *NatsRelay) handle(msg *nats.Msg) {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))

	ctx, span := otel.Tracer("eventbroker").Start(ctx, "relay_lifecycle_event", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	event, err := deliver(ctx, r.local, msg.Data)
	if err != nil {
		span.RecordError(err)
		slog.Error("❌ Failed to relay event", "broker", "nats", "error", err)
		return
	}
	slog.Debug("📨 Event relayed", "broker", "nats", "action", event.Kind, "post_id", event.PostID)
}
